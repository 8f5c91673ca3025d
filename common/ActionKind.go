package common

import (
	"encoding/json"
	"fmt"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
)

// ActionKind is the closed set of charge point initiated messages the tester can replay.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	BootNotification
	Authorize
	HeartBeat
	StartTransaction
	StatusNotification
	MeterValues
	StopTransaction
)

// HeartBeatActionName is the spelling used by the recorded fixtures.
// OCPP itself spells the feature "Heartbeat"; both are accepted.
const HeartBeatActionName = "HeartBeat"

// ActionKinds lists every supported kind.
var ActionKinds = []ActionKind{
	BootNotification,
	Authorize,
	HeartBeat,
	StartTransaction,
	StatusNotification,
	MeterValues,
	StopTransaction,
}

var actionNames = map[ActionKind]string{
	BootNotification:   core.BootNotificationFeatureName,
	Authorize:          core.AuthorizeFeatureName,
	HeartBeat:          HeartBeatActionName,
	StartTransaction:   core.StartTransactionFeatureName,
	StatusNotification: core.StatusNotificationFeatureName,
	MeterValues:        core.MeterValuesFeatureName,
	StopTransaction:    core.StopTransactionFeatureName,
}

var actionKinds = map[string]ActionKind{
	core.HeartbeatFeatureName: HeartBeat,
}

func init() {
	for kind, name := range actionNames {
		actionKinds[name] = kind
	}
}

// ParseActionKind maps an OCPP action name to its kind.
func ParseActionKind(name string) (ActionKind, error) {
	kind, ok := actionKinds[name]
	if !ok {
		return ActionUnknown, fmt.Errorf("unsupported action %q", name)
	}
	return kind, nil
}

func (a ActionKind) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(a))
}

func (a ActionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}
