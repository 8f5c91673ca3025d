// Package flow replays a fixture against a central system one request at a
// time and judges every response.
package flow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"charge_point_tester/actions"
	"charge_point_tester/codec"
	"charge_point_tester/common"
	"charge_point_tester/notifier"
	"charge_point_tester/transport"
)

const DefaultSettleDelay = 20 * time.Second

// Policy decides what happens to a record that cannot be sent.
type Policy int

const (
	// PolicySkip reports the record and moves on to the next one.
	PolicySkip Policy = iota
	// PolicyAbort reports the record, closes the connection and fails the run.
	PolicyAbort
)

type Option func(*Orchestrator)

func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithSettleDelay sets the pause after an accepted MeterValues.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.settleDelay = d }
}

// WithResponseTimeout bounds the wait for each response. Zero waits forever.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.responseTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithNotifier(n notifier.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithLogger(log *logrus.Entry) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithState starts the run from a pre-seeded flow state.
func WithState(state common.FlowState) Option {
	return func(o *Orchestrator) { o.flow = state }
}

// Orchestrator drives one run. All state changes happen on the goroutine
// calling Run, in response to transport events and timers.
type Orchestrator struct {
	transport transport.Transport
	records   []*common.RequestRecord

	policy          Policy
	settleDelay     time.Duration
	responseTimeout time.Duration
	now             func() time.Time
	notifier        notifier.Notifier
	log             *logrus.Entry

	state    State
	flow     common.FlowState
	inFlight *common.RequestRecord
	report   Report
	// uniqueIds of requests whose response timed out; their late answers are dropped.
	timedOut map[string]struct{}

	responseTimer *time.Timer
	settleTimer   *time.Timer
}

func New(t transport.Transport, records []*common.RequestRecord, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport:   t,
		records:     records,
		policy:      PolicySkip,
		settleDelay: DefaultSettleDelay,
		now:         time.Now,
		notifier:    notifier.Discard{},
		log:         logrus.NewEntry(logrus.StandardLogger()),
		timedOut:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithField("component", "flow")
	return o
}

func (o *Orchestrator) State() State {
	return o.state
}

// FlowState returns a copy of the session state.
func (o *Orchestrator) FlowState() common.FlowState {
	return o.flow
}

// Run connects to url and replays every record. It returns when the run is
// Closed or Aborted. A non-nil error means the run failed as a whole: a
// transport failure, a cancelled context, or a rejected record under PolicyAbort.
func (o *Orchestrator) Run(ctx context.Context, url string, protocol string) (*Report, error) {
	defer o.stopTimers()

	o.setState(StateConnecting)
	if err := o.transport.Connect(ctx, url, protocol); err != nil {
		return o.finish(o.abort(common.TransportError.Wrap(err, "cannot connect to %s", url)))
	}
	o.setState(StateAwaitingOpen)

	events := o.transport.Events()
	for {
		var (
			done bool
			err  error
		)
		select {
		case <-ctx.Done():
			return o.finish(o.abort(common.TransportError.Wrap(ctx.Err(), "run cancelled")))
		case ev, ok := <-events:
			if !ok {
				return o.finish(o.abort(common.TransportError.New("transport event stream ended")))
			}
			done, err = o.handleEvent(ev)
		case <-timerC(o.responseTimer):
			o.responseTimer = nil
			o.responseTimedOut()
			done, err = o.sendNext()
		case <-timerC(o.settleTimer):
			o.settleTimer = nil
			done, err = o.sendNext()
		}
		if done {
			return o.finish(err)
		}
	}
}

func (o *Orchestrator) handleEvent(ev transport.Event) (bool, error) {
	switch ev.Kind {
	case transport.EventOpen:
		if o.state != StateAwaitingOpen {
			return false, nil
		}
		o.log.Info("connection opened")
		o.setState(StateRunning)
		o.flow.Cursor = 0
		return o.sendNext()

	case transport.EventMessage:
		o.log.WithField("data", string(ev.Data)).Info("received response")
		if o.state != StateRunning || o.inFlight == nil {
			o.log.Warn("no request in flight, ignoring message")
			return false, nil
		}
		frame, err := codec.Decode(ev.Data)
		if err == nil && o.lateResponse(frame) {
			o.log.WithFields(stepFields(o.flow.Cursor, o.inFlight)).
				Warnf("dropping late response to timed out request %q", frame.UniqueID)
			return false, nil
		}
		o.stopResponseTimer()
		if o.handleResponse(frame, err) && o.flow.Cursor < len(o.records) && o.settleDelay > 0 {
			o.log.Infof("waiting %v for meter values to settle", o.settleDelay)
			o.settleTimer = time.NewTimer(o.settleDelay)
			return false, nil
		}
		return o.sendNext()

	case transport.EventError:
		o.log.Errorf("transport error: %v", ev.Err)
		if o.state == StateTerminating || o.state == StateClosed {
			return true, nil
		}
		return true, o.abort(common.TransportError.Wrap(ev.Err, "connection failed"))

	case transport.EventClose:
		if o.state == StateTerminating || o.state == StateClosed {
			return true, nil
		}
		return true, o.abort(common.TransportError.New("connection closed by central system with code %d", ev.Code))
	}
	return false, nil
}

// sendNext sends the record under the cursor, skipping or aborting on records
// that cannot be sent. It terminates the run once the cursor passes the last record.
func (o *Orchestrator) sendNext() (bool, error) {
	if o.state != StateRunning {
		return true, nil
	}
	for o.flow.Cursor < len(o.records) {
		record := o.records[o.flow.Cursor]

		err := actions.Rewrite(record, &o.flow, o.now())
		if err == nil {
			err = actions.ValidateOutbound(record.Action, record.Payload)
		}
		var data []byte
		if err == nil {
			data, err = codec.EncodeCall(record.ActionName, record.UniqueID, record.Payload)
		}
		if err != nil {
			o.record(record, OutcomeSkipped, err)
			if o.policy == PolicyAbort {
				o.terminate()
				return true, err
			}
			o.flow.Cursor++
			continue
		}

		o.flow.ExpectedAction = record.Action
		o.log.WithFields(stepFields(o.flow.Cursor, record)).Infof("sending request %s", data)
		if err := o.transport.Send(data); err != nil {
			return true, o.abort(common.TransportError.Wrap(err, "cannot send %v", record.Action))
		}
		o.report.Sent++
		o.inFlight = record
		if o.responseTimeout > 0 {
			o.responseTimer = time.NewTimer(o.responseTimeout)
		}
		return false, nil
	}

	o.log.Info("all messages processed, closing connection")
	o.terminate()
	return true, nil
}

// handleResponse judges the answer to the request in flight and advances the
// cursor whatever the verdict. It reports whether the flow must now settle.
func (o *Orchestrator) handleResponse(frame *codec.Frame, err error) bool {
	record := o.inFlight
	o.inFlight = nil

	if err == nil {
		if frame.UniqueID != record.UniqueID {
			o.log.WithFields(stepFields(o.flow.Cursor, record)).
				Warnf("response uniqueId %q does not match request", frame.UniqueID)
		}
		err = actions.ValidateInbound(o.flow.ExpectedAction, &o.flow, record.Payload, frame)
	}
	if err != nil {
		o.record(record, OutcomeFailed, err)
		o.flow.Cursor++
		return false
	}
	o.record(record, OutcomePassed, nil)
	o.flow.Cursor++
	return actions.Settles(record.Action)
}

func (o *Orchestrator) responseTimedOut() {
	record := o.inFlight
	if record == nil {
		return
	}
	o.inFlight = nil
	o.timedOut[record.UniqueID] = struct{}{}
	o.record(record, OutcomeFailed, common.InboundValidationError.New("no response within %v", o.responseTimeout))
	o.flow.Cursor++
}

// lateResponse reports whether frame answers a request that already timed out
// rather than the one in flight. Each late answer is dropped once.
func (o *Orchestrator) lateResponse(frame *codec.Frame) bool {
	if frame.UniqueID == o.inFlight.UniqueID {
		return false
	}
	if _, ok := o.timedOut[frame.UniqueID]; !ok {
		return false
	}
	delete(o.timedOut, frame.UniqueID)
	return true
}

func (o *Orchestrator) record(record *common.RequestRecord, outcome Outcome, err error) {
	result := StepResult{
		Index:    o.flow.Cursor,
		UniqueID: record.UniqueID,
		Action:   record.Action,
		Outcome:  outcome,
		Err:      err,
	}
	o.report.Steps = append(o.report.Steps, result)

	entry := o.log.WithFields(stepFields(result.Index, record))
	switch outcome {
	case OutcomePassed:
		entry.Infof("%v validation successful", record.Action)
	case OutcomeFailed:
		entry.Warnf("validation failed: %v", err)
	case OutcomeSkipped:
		entry.Warnf("request not sent: %v", err)
	}

	o.notifier.Notify(notifier.Notification{
		Topic: notifier.TopicStep,
		Data: map[string]interface{}{
			"index":    result.Index,
			"uniqueId": result.UniqueID,
			"action":   result.Action.String(),
			"outcome":  string(result.Outcome),
			"reason":   result.Reason(),
		},
	})
}

func (o *Orchestrator) terminate() {
	o.setState(StateTerminating)
	if err := o.transport.Close(); err != nil {
		o.log.Warnf("error while closing connection: %v", err)
	}
	o.setState(StateClosed)
}

// abort tears the connection down after a transport level failure. No request
// is sent once the state is Aborted.
func (o *Orchestrator) abort(err error) error {
	o.log.Errorf("run aborted: %v", err)
	o.transport.Close() //nolint:errcheck
	o.setState(StateAborted)
	return err
}

func (o *Orchestrator) finish(err error) (*Report, error) {
	o.report.State = o.state
	data := map[string]interface{}{
		"state":   o.state.String(),
		"sent":    o.report.Sent,
		"passed":  o.report.Count(OutcomePassed),
		"failed":  o.report.Count(OutcomeFailed),
		"skipped": o.report.Count(OutcomeSkipped),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	o.notifier.Notify(notifier.Notification{Topic: notifier.TopicRun, Data: data})

	report := o.report
	return &report, err
}

func (o *Orchestrator) setState(s State) {
	if o.state == s {
		return
	}
	o.log.Debugf("state %v -> %v", o.state, s)
	o.state = s
}

func (o *Orchestrator) stopResponseTimer() {
	if o.responseTimer != nil {
		o.responseTimer.Stop()
		o.responseTimer = nil
	}
}

func (o *Orchestrator) stopTimers() {
	o.stopResponseTimer()
	if o.settleTimer != nil {
		o.settleTimer.Stop()
		o.settleTimer = nil
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stepFields(index int, record *common.RequestRecord) logrus.Fields {
	return logrus.Fields{"step": index, "action": record.Action, "uniqueId": record.UniqueID}
}
