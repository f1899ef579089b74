package workflow

import "fmt"

// GuardViolation reports an event that was understood but rejected by a
// transition guard. State is unchanged; the UI surfaces Reason inline.
type GuardViolation struct {
	State  State
	Event  EventKind
	Reason string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("workflow: %s rejected in %s: %s", e.Event, e.State, e.Reason)
}

// NoSuchTransitionError reports an event the transition table has no edge for
// in the current state. This is a binding-layer defect, never a user error:
// strict machines panic on it, production machines log it and carry on.
type NoSuchTransitionError struct {
	State State
	Event EventKind
}

func (e *NoSuchTransitionError) Error() string {
	return fmt.Sprintf("workflow: no transition for %s in %s", e.Event, e.State)
}
