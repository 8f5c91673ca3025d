package common

import (
	"encoding/json"
	"fmt"

	"github.com/lorenzodonini/ocpp-go/ocppj"
)

// Payload is the JSON object carried by a Call or CallResult.
type Payload = map[string]interface{}

// RequestRecord is one [2, uniqueId, action, payload] entry of a fixture.
// ActionName keeps the spelling found in the fixture, which is what goes on the wire.
type RequestRecord struct {
	UniqueID   string
	Action     ActionKind
	ActionName string
	Payload    Payload
}

func (r *RequestRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("record is not an array: %w", err)
	}
	if len(fields) != 4 {
		return fmt.Errorf("record has %d elements, expected 4", len(fields))
	}

	var messageType ocppj.MessageType
	if err := json.Unmarshal(fields[0], &messageType); err != nil || messageType != ocppj.CALL {
		return fmt.Errorf("record messageTypeId must be %d", ocppj.CALL)
	}
	if err := json.Unmarshal(fields[1], &r.UniqueID); err != nil {
		return fmt.Errorf("record uniqueId must be a string")
	}
	if err := json.Unmarshal(fields[2], &r.ActionName); err != nil {
		return fmt.Errorf("record action must be a string")
	}
	kind, err := ParseActionKind(r.ActionName)
	if err != nil {
		return err
	}
	r.Action = kind

	r.Payload = Payload{}
	if err := json.Unmarshal(fields[3], &r.Payload); err != nil || r.Payload == nil {
		return fmt.Errorf("record payload must be a JSON object")
	}
	return nil
}

func (r RequestRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{ocppj.CALL, r.UniqueID, r.ActionName, r.Payload})
}
