package common

// FlowState is the session memory threaded through one replay run.
// It is owned by the flow orchestrator; the validator and rewriter only touch
// the fields documented for the action they handle.
type FlowState struct {
	// Cursor is the index of the next record to send.
	Cursor int
	// ExpectedAction is the action of the request currently in flight.
	ExpectedAction ActionKind
	// SavedIdTag is captured from the first accepted Authorize request and never cleared.
	SavedIdTag *string
	// SavedTransactionId holds the JSON value the central system assigned in
	// its StartTransaction confirmation. nil means no transaction yet.
	SavedTransactionId interface{}
	// SavedTimestamp is the last synthesized transaction timestamp.
	SavedTimestamp *string
}

func (s *FlowState) HasIdTag() bool {
	return s.SavedIdTag != nil
}

func (s *FlowState) HasTransaction() bool {
	return s.SavedTransactionId != nil
}

func (s *FlowState) HasTimestamp() bool {
	return s.SavedTimestamp != nil
}

func (s *FlowState) SaveIdTag(idTag string) {
	if s.SavedIdTag == nil {
		s.SavedIdTag = &idTag
	}
}

func (s *FlowState) SaveTimestamp(timestamp string) {
	s.SavedTimestamp = &timestamp
}
