package actions

import (
	"reflect"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"
	"github.com/lorenzodonini/ocpp-go/ocppj"

	"charge_point_tester/codec"
	"charge_point_tester/common"
)

// ValidateInbound checks the central system's answer to the request of kind
// expected. Authorize and StartTransaction confirmations record the idTag and
// transactionId into state when they pass.
func ValidateInbound(expected common.ActionKind, state *common.FlowState, request common.Payload, response *codec.Frame) error {
	r, ok := rules[expected]
	if !ok {
		return common.InboundValidationError.New("no rules for action %v", expected)
	}

	switch response.Type {
	case ocppj.CALL_RESULT:
	case ocppj.CALL_ERROR:
		return common.InboundValidationError.New("%v rejected with CallError %s: %s",
			expected, response.ErrorCode, response.ErrorDescription)
	default:
		return common.InboundValidationError.New("response messageTypeId is %d, expected %d",
			response.Type, ocppj.CALL_RESULT)
	}

	payload, ok := response.PayloadObject()
	if !ok {
		return common.InboundValidationError.New("%v response payload is not a JSON object", expected)
	}
	return r.inbound(state, request, payload)
}

func idTagStatus(response common.Payload) interface{} {
	info, _ := response["idTagInfo"].(map[string]interface{})
	return info["status"]
}

func bootNotificationAccepted(_ *common.FlowState, _ common.Payload, response common.Payload) error {
	if status := response["status"]; status != string(core.RegistrationStatusAccepted) {
		return common.InboundValidationError.New("status is not 'Accepted', but '%v'", status)
	}
	if interval, ok := response["interval"].(float64); !ok || interval != ExpectedHeartbeatInterval {
		return common.InboundValidationError.New("interval is not %d, but '%v'", ExpectedHeartbeatInterval, response["interval"])
	}
	return nil
}

func authorizeAccepted(state *common.FlowState, request common.Payload, response common.Payload) error {
	if status := idTagStatus(response); status != string(types.AuthorizationStatusAccepted) {
		return common.InboundValidationError.New("idTagInfo status is not 'Accepted', but '%v'", status)
	}
	if idTag, ok := request["idTag"].(string); ok {
		state.SaveIdTag(idTag)
	}
	return nil
}

func heartbeatAnswered(_ *common.FlowState, _ common.Payload, response common.Payload) error {
	if _, ok := response["currentTime"]; !ok {
		return common.InboundValidationError.New("'currentTime' is missing in response payload")
	}
	return nil
}

func startTransactionAccepted(state *common.FlowState, request common.Payload, response common.Payload) error {
	if status := idTagStatus(response); status != string(types.AuthorizationStatusAccepted) {
		return common.InboundValidationError.New("idTagInfo status is not 'Accepted', but '%v'", status)
	}
	idTag, _ := request["idTag"].(string)
	if !state.HasIdTag() || *state.SavedIdTag != idTag {
		return common.InboundValidationError.New("idTag '%s' does not match the idTag saved from Authorize", idTag)
	}
	transactionId, ok := response["transactionId"]
	if !ok || transactionId == nil {
		return common.InboundValidationError.New("'transactionId' is missing in response payload")
	}
	state.SavedTransactionId = transactionId
	return nil
}

func statusNotificationAcknowledged(_ *common.FlowState, _ common.Payload, response common.Payload) error {
	if len(response) != 0 {
		return common.InboundValidationError.New("StatusNotification response is not empty: %v", response)
	}
	return nil
}

// TODO: validate idTagInfo in the StopTransaction confirmation instead of only matching the one known rejection.
func stopTransactionAccepted(_ *common.FlowState, _ common.Payload, response common.Payload) error {
	code, _ := response["errorCode"].(float64)
	if code == stopTransactionErrorCode && response["ErrorDescription"] == stopTransactionErrorDescription {
		return common.InboundValidationError.New("central system rejected StopTransaction: %s", stopTransactionErrorDescription)
	}
	return nil
}

func meterValuesAccepted(state *common.FlowState, request common.Payload, response common.Payload) error {
	if status := response["Status"]; status != "Accepted" {
		return common.InboundValidationError.New("Status is not 'Accepted', but '%v'", status)
	}
	if !state.HasTransaction() || !reflect.DeepEqual(state.SavedTransactionId, request["transactionId"]) {
		return common.InboundValidationError.New("transactionId %v does not match the saved transactionId %v",
			request["transactionId"], state.SavedTransactionId)
	}
	return nil
}
