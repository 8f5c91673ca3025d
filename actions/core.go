// Package actions holds the per-action rules of the core profile messages a
// charge point sends: which fields a request needs, how its payload is
// rewritten from flow state, and what the central system must answer.
package actions

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"

	"charge_point_tester/common"
)

const (
	// ExpectedHeartbeatInterval is the interval a conforming central system must return on boot.
	ExpectedHeartbeatInterval = 900

	stopTransactionErrorCode        = 6
	stopTransactionErrorDescription = "Invalid payload for StopTransaction message"
)

type inboundRule func(state *common.FlowState, request common.Payload, response common.Payload) error

type rewriteRule func(state *common.FlowState, payload common.Payload, now time.Time) error

type rule struct {
	required []string
	strings  []string
	enums    map[string]string
	inbound  inboundRule
	rewrite  rewriteRule
	settles  bool
}

var rules = map[common.ActionKind]rule{
	common.BootNotification: {
		required: []string{"chargePointVendor", "chargePointModel"},
		strings:  []string{"chargePointVendor", "chargePointModel"},
		inbound:  bootNotificationAccepted,
	},
	common.Authorize: {
		required: []string{"idTag"},
		strings:  []string{"idTag"},
		inbound:  authorizeAccepted,
	},
	common.HeartBeat: {
		inbound: heartbeatAnswered,
	},
	common.StartTransaction: {
		required: []string{"connectorId", "idTag", "meterStart", "timestamp"},
		strings:  []string{"idTag", "timestamp"},
		inbound:  startTransactionAccepted,
		rewrite:  stampStartTransaction,
	},
	common.StatusNotification: {
		required: []string{"connectorId", "errorCode", "status", "timestamp"},
		enums: map[string]string{
			"errorCode": "chargePointErrorCode",
			"status":    "chargePointStatus",
		},
		inbound: statusNotificationAcknowledged,
	},
	common.StopTransaction: {
		required: []string{"idTag", "meterStop", "timestamp", "transactionId"},
		inbound:  stopTransactionAccepted,
		rewrite:  linkStopTransaction,
	},
	common.MeterValues: {
		required: []string{"connectorId", "meterValue"},
		inbound:  meterValuesAccepted,
		rewrite:  linkMeterValues,
		settles:  true,
	},
}

var chargePointErrorCodes = map[core.ChargePointErrorCode]struct{}{
	core.ConnectorLockFailure: {},
	core.EVCommunicationError: {},
	core.GroundFailure:        {},
	core.HighTemperature:      {},
	core.InternalError:        {},
	core.LocalListConflict:    {},
	core.NoError:              {},
}

var chargePointStatuses = map[core.ChargePointStatus]struct{}{
	core.ChargePointStatusAvailable:     {},
	core.ChargePointStatusPreparing:     {},
	core.ChargePointStatusCharging:      {},
	core.ChargePointStatusSuspendedEVSE: {},
	core.ChargePointStatusSuspendedEV:   {},
	core.ChargePointStatusFinishing:     {},
	core.ChargePointStatusReserved:      {},
	core.ChargePointStatusUnavailable:   {},
	core.ChargePointStatusFaulted:       {},
}

// validate checks enum fields against the OCPP 1.6 value sets.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("chargePointErrorCode", func(fl validator.FieldLevel) bool {
		_, ok := chargePointErrorCodes[core.ChargePointErrorCode(fl.Field().String())]
		return ok
	})
	_ = v.RegisterValidation("chargePointStatus", func(fl validator.FieldLevel) bool {
		_, ok := chargePointStatuses[core.ChargePointStatus(fl.Field().String())]
		return ok
	})
	return v
}

// Settles reports whether the flow must pause after an accepted response to action.
func Settles(action common.ActionKind) bool {
	return rules[action].settles
}

func (r rule) isString(field string) bool {
	for _, f := range r.strings {
		if f == field {
			return true
		}
	}
	return false
}
