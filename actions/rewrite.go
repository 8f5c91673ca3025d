package actions

import (
	"time"

	"github.com/relvacode/iso8601"

	"charge_point_tester/common"
)

const (
	// TimestampLayout is ISO-8601 with milliseconds, always rendered in UTC.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// StartTransactionBackdate places a synthesized transaction start in the past.
	StartTransactionBackdate = 2 * time.Hour
	// MeterValuesStep is how far each MeterValues sample advances the saved timestamp.
	MeterValuesStep = time.Minute
)

// Rewrite fills a record's payload from flow state right before it is
// validated and sent. Actions without a rewrite rule are left untouched.
func Rewrite(record *common.RequestRecord, state *common.FlowState, now time.Time) error {
	r, ok := rules[record.Action]
	if !ok || r.rewrite == nil {
		return nil
	}
	if record.Payload == nil {
		record.Payload = common.Payload{}
	}
	return r.rewrite(state, record.Payload, now)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func stampStartTransaction(state *common.FlowState, payload common.Payload, now time.Time) error {
	timestamp := FormatTimestamp(now.Add(-StartTransactionBackdate))
	payload["timestamp"] = timestamp
	state.SaveTimestamp(timestamp)
	return nil
}

func linkMeterValues(state *common.FlowState, payload common.Payload, _ time.Time) error {
	if !state.HasTransaction() {
		return common.SequenceError.New("MeterValues needs a transactionId from an accepted StartTransaction")
	}
	if !state.HasTimestamp() {
		return common.SequenceError.New("MeterValues needs a timestamp from StartTransaction")
	}
	previous, err := iso8601.ParseString(*state.SavedTimestamp)
	if err != nil {
		return common.SequenceError.Wrap(err, "saved timestamp %q is not ISO-8601", *state.SavedTimestamp)
	}

	samples, _ := payload["meterValue"].([]interface{})
	var first map[string]interface{}
	if len(samples) > 0 {
		first, _ = samples[0].(map[string]interface{})
	}
	if first == nil {
		return common.OutboundValidationError.New("MeterValues: meterValue must be a non-empty list of objects")
	}

	next := FormatTimestamp(previous.Add(MeterValuesStep))
	payload["transactionId"] = state.SavedTransactionId
	first["timestamp"] = next
	state.SaveTimestamp(next)
	return nil
}

func linkStopTransaction(state *common.FlowState, payload common.Payload, _ time.Time) error {
	if !state.HasTransaction() {
		return common.SequenceError.New("StopTransaction needs a transactionId from an accepted StartTransaction")
	}
	payload["transactionId"] = state.SavedTransactionId
	return nil
}
