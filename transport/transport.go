// Package transport connects the tester to a central system and reports
// connection activity as a stream of events.
package transport

import "context"

type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	Data []byte
	Err  error
	// Code is the WebSocket close code of an EventClose.
	Code int
}

// Transport is a bidirectional text message channel.
// Connect starts the handshake and returns; the outcome arrives as an
// EventOpen or EventError on Events.
type Transport interface {
	Connect(ctx context.Context, url string, protocol string) error
	Send(data []byte) error
	Events() <-chan Event
	Close() error
}
