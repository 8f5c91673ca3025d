package actions

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge_point_tester/codec"
	"charge_point_tester/common"
)

func result(t *testing.T, text string) *codec.Frame {
	t.Helper()
	frame, err := codec.Decode([]byte(text))
	require.NoError(t, err)
	return frame
}

func assertInboundFailure(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, common.InboundValidationError), "unexpected %v", err)
}

func TestBootNotificationResponse(t *testing.T) {
	state := &common.FlowState{}
	assert.NoError(t, ValidateInbound(common.BootNotification, state, nil,
		result(t, `[3,"1",{"status":"Accepted","interval":900,"currentTime":"2024-01-01T00:00:00Z"}]`)))

	assertInboundFailure(t, ValidateInbound(common.BootNotification, state, nil,
		result(t, `[3,"1",{"status":"Accepted","interval":901}]`)))
	assertInboundFailure(t, ValidateInbound(common.BootNotification, state, nil,
		result(t, `[3,"1",{"status":"Accepted","interval":"900"}]`)))
	assertInboundFailure(t, ValidateInbound(common.BootNotification, state, nil,
		result(t, `[3,"1",{"status":"Pending","interval":900}]`)))
}

func TestAuthorizeSavesRequestIdTag(t *testing.T) {
	state := &common.FlowState{}
	request := common.Payload{"idTag": "ABC123"}

	assertInboundFailure(t, ValidateInbound(common.Authorize, state, request,
		result(t, `[3,"2",{"idTagInfo":{"status":"Blocked"}}]`)))
	assert.False(t, state.HasIdTag())

	require.NoError(t, ValidateInbound(common.Authorize, state, request,
		result(t, `[3,"2",{"idTagInfo":{"status":"Accepted"}}]`)))
	require.True(t, state.HasIdTag())
	assert.Equal(t, "ABC123", *state.SavedIdTag)

	require.NoError(t, ValidateInbound(common.Authorize, state, common.Payload{"idTag": "OTHER"},
		result(t, `[3,"2",{"idTagInfo":{"status":"Accepted"}}]`)))
	assert.Equal(t, "ABC123", *state.SavedIdTag)
}

func TestStartTransactionLinksToAuthorize(t *testing.T) {
	accepted := `[3,"3",{"idTagInfo":{"status":"Accepted"},"transactionId":"77"}]`

	state := &common.FlowState{}
	state.SaveIdTag("ABC123")

	assertInboundFailure(t, ValidateInbound(common.StartTransaction, state, common.Payload{"idTag": "XYZ999"}, result(t, accepted)))
	assert.False(t, state.HasTransaction())

	require.NoError(t, ValidateInbound(common.StartTransaction, state, common.Payload{"idTag": "ABC123"}, result(t, accepted)))
	assert.Equal(t, "77", state.SavedTransactionId)
}

func TestStartTransactionResponseFailures(t *testing.T) {
	request := common.Payload{"idTag": "ABC123"}

	state := &common.FlowState{}
	assertInboundFailure(t, ValidateInbound(common.StartTransaction, state, request,
		result(t, `[3,"3",{"idTagInfo":{"status":"Accepted"},"transactionId":1}]`)))

	state.SaveIdTag("ABC123")
	assertInboundFailure(t, ValidateInbound(common.StartTransaction, state, request,
		result(t, `[3,"3",{"idTagInfo":{"status":"Accepted"}}]`)))
	assertInboundFailure(t, ValidateInbound(common.StartTransaction, state, request,
		result(t, `[3,"3",{"idTagInfo":{"status":"Invalid"},"transactionId":1}]`)))
	assert.False(t, state.HasTransaction())
}

func TestHeartbeatResponse(t *testing.T) {
	state := &common.FlowState{}
	assert.NoError(t, ValidateInbound(common.HeartBeat, state, nil, result(t, `[3,"4",{"currentTime":"2024-01-01T00:00:00Z"}]`)))
	assertInboundFailure(t, ValidateInbound(common.HeartBeat, state, nil, result(t, `[3,"4",{}]`)))
}

func TestStatusNotificationResponse(t *testing.T) {
	state := &common.FlowState{}
	assert.NoError(t, ValidateInbound(common.StatusNotification, state, nil, result(t, `[3,"5",{}]`)))
	assertInboundFailure(t, ValidateInbound(common.StatusNotification, state, nil, result(t, `[3,"5",{"status":"Accepted"}]`)))
}

func TestStopTransactionResponse(t *testing.T) {
	state := &common.FlowState{}
	assert.NoError(t, ValidateInbound(common.StopTransaction, state, nil, result(t, `[3,"6",{}]`)))
	assert.NoError(t, ValidateInbound(common.StopTransaction, state, nil, result(t, `[3,"6",{"errorCode":6}]`)))
	assertInboundFailure(t, ValidateInbound(common.StopTransaction, state, nil,
		result(t, `[3,"6",{"errorCode":6,"ErrorDescription":"Invalid payload for StopTransaction message"}]`)))
}

func TestMeterValuesResponse(t *testing.T) {
	state := &common.FlowState{SavedTransactionId: float64(77)}

	assert.NoError(t, ValidateInbound(common.MeterValues, state, common.Payload{"transactionId": float64(77)},
		result(t, `[3,"7",{"Status":"Accepted"}]`)))
	assertInboundFailure(t, ValidateInbound(common.MeterValues, state, common.Payload{"transactionId": float64(78)},
		result(t, `[3,"7",{"Status":"Accepted"}]`)))
	assertInboundFailure(t, ValidateInbound(common.MeterValues, state, common.Payload{"transactionId": float64(77)},
		result(t, `[3,"7",{}]`)))
	assertInboundFailure(t, ValidateInbound(common.MeterValues, &common.FlowState{}, common.Payload{"transactionId": float64(77)},
		result(t, `[3,"7",{"Status":"Accepted"}]`)))
}

func TestInboundFrameChecks(t *testing.T) {
	state := &common.FlowState{}
	assertInboundFailure(t, ValidateInbound(common.HeartBeat, state, nil,
		result(t, `[4,"8","NotImplemented","unknown action",{}]`)))
	assertInboundFailure(t, ValidateInbound(common.HeartBeat, state, nil,
		result(t, `[2,"8","Heartbeat",{"currentTime":"x"}]`)))
	assertInboundFailure(t, ValidateInbound(common.HeartBeat, state, nil,
		result(t, `[3,"8","currentTime"]`)))
}
