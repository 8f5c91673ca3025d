package flow

import (
	"charge_point_tester/common"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingOpen
	StateRunning
	StateTerminating
	StateClosed
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:         "Idle",
	StateConnecting:   "Connecting",
	StateAwaitingOpen: "AwaitingOpen",
	StateRunning:      "Running",
	StateTerminating:  "Terminating",
	StateClosed:       "Closed",
	StateAborted:      "Aborted",
}

func (s State) String() string {
	return stateNames[s]
}

type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult is the verdict on one fixture record.
type StepResult struct {
	Index    int
	UniqueID string
	Action   common.ActionKind
	Outcome  Outcome
	Err      error
}

func (r StepResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Report summarizes a run.
type Report struct {
	State State
	// Sent counts requests written to the transport.
	Sent  int
	Steps []StepResult
}

func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, step := range r.Steps {
		if step.Outcome == outcome {
			n++
		}
	}
	return n
}

// Clean reports whether the run closed normally with every step passing.
func (r *Report) Clean() bool {
	return r.State == StateClosed && r.Count(OutcomePassed) == len(r.Steps)
}
