// Package codec frames OCPP-J Call, CallResult and CallError arrays.
package codec

import (
	"encoding/json"

	"github.com/lorenzodonini/ocpp-go/ocppj"

	"charge_point_tester/common"
)

// Frame is a decoded OCPP-J array. Which fields are set depends on Type:
// Call fills Action and Payload, CallResult fills Payload, CallError fills the Error fields.
type Frame struct {
	Type             ocppj.MessageType
	UniqueID         string
	Action           string
	Payload          interface{}
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     interface{}
}

// EncodeCall builds the [2, uniqueId, action, payload] wire text.
func EncodeCall(action string, uniqueID string, payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = common.Payload{}
	}
	return json.Marshal([]interface{}{ocppj.CALL, uniqueID, action, payload})
}

// Decode parses wire text into a Frame. It only checks that the text is a JSON
// array of at least three elements; the meaning of the frame is left to the validator.
func Decode(data []byte) (*Frame, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, common.MalformedJSON.Wrap(err, "response is not valid JSON")
	}
	elements, ok := raw.([]interface{})
	if !ok {
		return nil, common.NotAnArray.New("response is not a JSON array")
	}
	if len(elements) < 3 {
		return nil, common.TooShort.New("response array has %d elements, expected at least 3", len(elements))
	}

	frame := &Frame{}
	if n, ok := elements[0].(float64); ok {
		frame.Type = ocppj.MessageType(n)
	}
	frame.UniqueID, _ = elements[1].(string)

	switch frame.Type {
	case ocppj.CALL:
		frame.Action, _ = elements[2].(string)
		if len(elements) > 3 {
			frame.Payload = elements[3]
		}
	case ocppj.CALL_ERROR:
		frame.ErrorCode, _ = elements[2].(string)
		if len(elements) > 3 {
			frame.ErrorDescription, _ = elements[3].(string)
		}
		if len(elements) > 4 {
			frame.ErrorDetails = elements[4]
		}
	default:
		frame.Payload = elements[2]
	}
	return frame, nil
}

// PayloadObject returns the payload when it is a JSON object.
func (f *Frame) PayloadObject() (common.Payload, bool) {
	payload, ok := f.Payload.(map[string]interface{})
	return payload, ok
}
