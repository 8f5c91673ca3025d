package common

import "github.com/joomcode/errorx"

var (
	Errors = errorx.NewNamespace("cptester")

	// ConfigError: missing or invalid URL / sub-protocol. Fatal before the run.
	ConfigError = Errors.NewType("config")
	// FixtureError: missing or malformed fixture file. Fatal before the run.
	FixtureError = Errors.NewType("fixture")

	// DecodeError: malformed inbound frame. Counts as a failed step.
	DecodeError   = Errors.NewType("decode")
	MalformedJSON = DecodeError.NewSubtype("malformed_json")
	NotAnArray    = DecodeError.NewSubtype("not_an_array")
	TooShort      = DecodeError.NewSubtype("too_short")

	// OutboundValidationError: a request is missing a field or carries an invalid value.
	OutboundValidationError = Errors.NewType("outbound_validation")
	// InboundValidationError: a response does not match the expected semantics.
	InboundValidationError = Errors.NewType("inbound_validation")
	// SequenceError: a step depends on flow state that no earlier step produced.
	SequenceError = Errors.NewType("sequence")
	// TransportError: the connection failed. Aborts the run.
	TransportError = Errors.NewType("transport")
)
