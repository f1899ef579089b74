package workflow

import "github.com/jcrafford/assay/internal/asyncop"

// EventKind is the closed set of events the machine understands. Anything the
// UI can do maps to exactly one kind; unknown pairings are rejected by the
// transition table rather than silently dropped.
type EventKind string

const (
	EventBegin           EventKind = "begin"
	EventSelectCategory  EventKind = "select_category"
	EventEditCategory    EventKind = "edit_category"
	EventSubmitCategory  EventKind = "submit_category"
	EventSelectScale     EventKind = "select_scale"
	EventEditScale       EventKind = "edit_scale"
	EventSubmitScale     EventKind = "submit_scale"
	EventAddScale        EventKind = "add_scale"
	EventProceed         EventKind = "proceed"
	EventRequestGenerate EventKind = "request_generate"
	EventAsyncCompleted  EventKind = "async_completed"
	EventCancel          EventKind = "cancel"
	EventRetry           EventKind = "retry"
	EventRun             EventKind = "run_analysis"
	EventRerun           EventKind = "rerun"
	EventBack            EventKind = "back"
	EventReset           EventKind = "reset"
)

// GenerateTarget selects which field a generation request refreshes. Both is
// decomposed by the machine into two sequential single-flight operations,
// title first.
type GenerateTarget string

const (
	TargetTitle       GenerateTarget = "title"
	TargetDescription GenerateTarget = "description"
	TargetBoth        GenerateTarget = "both"
)

// Event is a single instruction fed to Machine.Dispatch. Only the fields
// relevant to its Kind are populated.
type Event struct {
	Kind        EventKind
	Title       string
	Description string
	Target      GenerateTarget
	OperationID string
	Outcome     asyncop.Outcome
}

// Begin opens the category picker.
func Begin() Event {
	return Event{Kind: EventBegin}
}

// SelectCategory stages a category for editing, seeded from a deck preset or
// empty for a fresh user-authored one.
func SelectCategory(title, description string) Event {
	return Event{Kind: EventSelectCategory, Title: title, Description: description}
}

// EditCategory carries the current values of the category form.
func EditCategory(title, description string) Event {
	return Event{Kind: EventEditCategory, Title: title, Description: description}
}

// SubmitCategory commits the staged category.
func SubmitCategory() Event {
	return Event{Kind: EventSubmitCategory}
}

// SelectScale stages a scale for editing, seeded from a preset or empty.
func SelectScale(title, description string) Event {
	return Event{Kind: EventSelectScale, Title: title, Description: description}
}

// EditScale carries the current values of the scale form.
func EditScale(title, description string) Event {
	return Event{Kind: EventEditScale, Title: title, Description: description}
}

// SubmitScale commits the staged scale.
func SubmitScale() Event {
	return Event{Kind: EventSubmitScale}
}

// AddScale stages another scale from the scale-set hub.
func AddScale(title, description string) Event {
	return Event{Kind: EventAddScale, Title: title, Description: description}
}

// Proceed advances from the scale-set hub to the analysis step.
func Proceed() Event {
	return Event{Kind: EventProceed}
}

// RequestGenerate asks the provider to refresh part of the entity under edit.
func RequestGenerate(target GenerateTarget) Event {
	return Event{Kind: EventRequestGenerate, Target: target}
}

// Completed reports the outcome of a provider call back into the machine. The
// binding layer enqueues this on the same message queue Dispatch consumes;
// provider goroutines never touch the machine directly.
func Completed(operationID string, outcome asyncop.Outcome) Event {
	return Event{Kind: EventAsyncCompleted, OperationID: operationID, Outcome: outcome}
}

// Cancel abandons the pending provider call.
func Cancel() Event {
	return Event{Kind: EventCancel}
}

// Retry re-arms the failed provider call.
func Retry() Event {
	return Event{Kind: EventRetry}
}

// Run starts the analysis.
func Run() Event {
	return Event{Kind: EventRun}
}

// Rerun starts a fresh analysis of the same pairing, linked to the previous
// result.
func Rerun() Event {
	return Event{Kind: EventRerun}
}

// Back navigates one step towards Idle, rolling back uncommitted edits.
func Back() Event {
	return Event{Kind: EventBack}
}

// Reset abandons the session from any state.
func Reset() Event {
	return Event{Kind: EventReset}
}
