package actions

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge_point_tester/common"
)

func statusNotification() common.Payload {
	return common.Payload{
		"connectorId": float64(1),
		"errorCode":   "NoError",
		"status":      "Available",
		"timestamp":   "2024-01-01T00:00:00Z",
	}
}

func TestEveryActionHasRules(t *testing.T) {
	for _, kind := range common.ActionKinds {
		r, ok := rules[kind]
		assert.True(t, ok, "missing rules for %v", kind)
		assert.NotNil(t, r.inbound, "missing inbound rule for %v", kind)
	}
}

func TestValidateOutboundStatusNotification(t *testing.T) {
	assert.NoError(t, ValidateOutbound(common.StatusNotification, statusNotification()))

	payload := statusNotification()
	payload["status"] = "Broken"
	err := ValidateOutbound(common.StatusNotification, payload)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, common.OutboundValidationError))

	payload = statusNotification()
	payload["errorCode"] = "OverVoltage"
	assert.Error(t, ValidateOutbound(common.StatusNotification, payload))

	payload = statusNotification()
	payload["errorCode"] = 3
	assert.Error(t, ValidateOutbound(common.StatusNotification, payload))

	for _, field := range []string{"connectorId", "errorCode", "status", "timestamp"} {
		payload = statusNotification()
		delete(payload, field)
		assert.Error(t, ValidateOutbound(common.StatusNotification, payload), "without %s", field)
	}
}

func TestValidateOutboundStatusNotificationAcceptsEveryStatus(t *testing.T) {
	for _, status := range []string{"Available", "Preparing", "Charging", "SuspendedEVSE", "SuspendedEV", "Finishing", "Reserved", "Unavailable", "Faulted"} {
		payload := statusNotification()
		payload["status"] = status
		assert.NoError(t, ValidateOutbound(common.StatusNotification, payload), status)
	}
	for _, code := range []string{"ConnectorLockFailure", "EVCommunicationError", "GroundFailure", "HighTemperature", "InternalError", "LocalListConflict", "NoError"} {
		payload := statusNotification()
		payload["errorCode"] = code
		assert.NoError(t, ValidateOutbound(common.StatusNotification, payload), code)
	}
}

func TestValidateOutbound(t *testing.T) {
	tests := []struct {
		name    string
		action  common.ActionKind
		payload common.Payload
		valid   bool
	}{
		{"boot", common.BootNotification, common.Payload{"chargePointVendor": "V", "chargePointModel": "M"}, true},
		{"boot without model", common.BootNotification, common.Payload{"chargePointVendor": "V"}, false},
		{"boot numeric vendor", common.BootNotification, common.Payload{"chargePointVendor": 1, "chargePointModel": "M"}, false},
		{"authorize", common.Authorize, common.Payload{"idTag": "ABC123"}, true},
		{"authorize numeric idTag", common.Authorize, common.Payload{"idTag": 123}, false},
		{"authorize empty", common.Authorize, common.Payload{}, false},
		{"heartbeat", common.HeartBeat, common.Payload{}, true},
		{"start", common.StartTransaction, common.Payload{"connectorId": 1, "idTag": "ABC123", "meterStart": 0, "timestamp": "t"}, true},
		{"start numeric idTag", common.StartTransaction, common.Payload{"connectorId": 1, "idTag": 5, "meterStart": 0, "timestamp": "t"}, false},
		{"start without meterStart", common.StartTransaction, common.Payload{"connectorId": 1, "idTag": "A", "timestamp": "t"}, false},
		{"stop", common.StopTransaction, common.Payload{"idTag": "A", "meterStop": 10, "timestamp": "t", "transactionId": 77}, true},
		{"stop without transaction", common.StopTransaction, common.Payload{"idTag": "A", "meterStop": 10, "timestamp": "t"}, false},
		{"meter values", common.MeterValues, common.Payload{"connectorId": 1, "meterValue": []interface{}{}}, true},
		{"meter values without samples", common.MeterValues, common.Payload{"connectorId": 1}, false},
		{"unknown", common.ActionUnknown, common.Payload{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutbound(tt.action, tt.payload)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errorx.IsOfType(err, common.OutboundValidationError), "unexpected %v", err)
			}
		})
	}
}
