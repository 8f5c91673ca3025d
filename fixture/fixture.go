// Package fixture loads the recorded request sequences replayed by the tester.
package fixture

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"charge_point_tester/common"
)

// Load reads a fixture file. The file holds either a sequence of
// [2, uniqueId, action, payload] records or a single such record.
// Records with an empty uniqueId get a fresh one.
func Load(path string) ([]*common.RequestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.FixtureError.Wrap(err, "cannot read fixture %s", path)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, common.FixtureError.Wrap(err, "invalid fixture %s", path)
	}
	return records, nil
}

func Parse(data []byte) ([]*common.RequestRecord, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, common.FixtureError.Wrap(err, "fixture is not a JSON array")
	}
	if len(top) == 0 {
		return nil, common.FixtureError.New("fixture holds no records")
	}

	// A single record starts with its messageTypeId rather than a nested array.
	if first := bytes.TrimSpace(top[0]); len(first) > 0 && first[0] != '[' {
		top = []json.RawMessage{data}
	}

	records := make([]*common.RequestRecord, 0, len(top))
	for i, raw := range top {
		record := &common.RequestRecord{}
		if err := json.Unmarshal(raw, record); err != nil {
			return nil, common.FixtureError.Wrap(err, "record %d", i)
		}
		if record.UniqueID == "" {
			record.UniqueID = uuid.NewString()
		}
		records = append(records, record)
	}
	return records, nil
}
