package asyncop

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind enumerates the external provider calls a workflow step can make.
type Kind string

const (
	KindCategoryTitle       Kind = "generate_category_title"
	KindCategoryDescription Kind = "generate_category_description"
	KindScaleTitle          Kind = "generate_scale_title"
	KindScaleDescription    Kind = "generate_scale_description"
	KindAnalysis            Kind = "run_analysis"
)

// Status tracks an operation through its lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Failure classifies why a provider call did not produce a result.
type Failure string

const (
	FailureProvider  Failure = "provider_error"
	FailureTimeout   Failure = "timeout_error"
	FailureCancelled Failure = "cancelled_error"
)

// Outcome is the terminal report for one provider call: either Content is set
// (success) or Failure is.
type Outcome struct {
	Content string
	Failure Failure
	Detail  string
}

// Success wraps provider output in a successful outcome.
func Success(content string) Outcome {
	return Outcome{Content: content}
}

// Failed wraps a failure classification and human-readable detail.
func Failed(failure Failure, detail string) Outcome {
	return Outcome{Failure: failure, Detail: detail}
}

// IsFailure reports whether the outcome carries a failure.
func (o Outcome) IsFailure() bool {
	return o.Failure != ""
}

// Operation is the retry envelope around a single in-flight provider call.
// Attempt counts provider invocations and starts at 1; MaxAttempts bounds how
// many retries may follow the first invocation.
type Operation struct {
	ID          string
	Kind        Kind
	Status      Status
	Attempt     int
	MaxAttempts int
	LastError   string
}

// CanRetry reports whether a retry would be accepted right now.
func (op Operation) CanRetry() bool {
	return op.Status == StatusFailed && op.Attempt <= op.MaxAttempts
}

// DefaultMaxAttempts is the retry budget applied when none is configured.
const DefaultMaxAttempts = 3

// ErrConflict is returned by Start while another operation is pending. The
// workflow is single-flight: one outstanding provider call at a time.
var ErrConflict = errors.New("asyncop: an operation is already pending")

// StaleCompletionError reports a completion for an operation that is no longer
// live, typically a late provider callback racing a cancel or a newer start.
// Callers log it and move on; it never mutates state.
type StaleCompletionError struct {
	OperationID string
}

func (e *StaleCompletionError) Error() string {
	return fmt.Sprintf("asyncop: stale completion for operation %s", e.OperationID)
}

// Tracker owns the single outstanding operation for a workflow session. It is
// synchronous-logical: it records status transitions and leaves scheduling,
// delays, and the actual provider call to the caller.
type Tracker struct {
	newID       func() string
	maxAttempts int
	current     *Operation
}

// TrackerOption customizes a Tracker during construction.
type TrackerOption func(*Tracker)

// WithIDSource overrides the operation ID generator.
func WithIDSource(newID func() string) TrackerOption {
	return func(t *Tracker) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(max int) TrackerOption {
	return func(t *Tracker) {
		if max > 0 {
			t.maxAttempts = max
		}
	}
}

// NewTracker returns a tracker with no operation in flight.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		newID:       uuid.NewString,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start registers a new pending operation. It fails with ErrConflict while
// another operation is pending; resolved operations are displaced.
func (t *Tracker) Start(kind Kind) (Operation, error) {
	if t.current != nil && t.current.Status == StatusPending {
		return Operation{}, ErrConflict
	}
	t.current = &Operation{
		ID:          t.newID(),
		Kind:        kind,
		Status:      StatusPending,
		Attempt:     1,
		MaxAttempts: t.maxAttempts,
	}
	return *t.current, nil
}

// Complete resolves the pending operation identified by id. Completions for
// unknown, cancelled, or already-resolved operations are no-ops that signal
// StaleCompletionError so late provider callbacks cannot clobber newer work.
func (t *Tracker) Complete(id string, outcome Outcome) (Operation, error) {
	if t.current == nil || t.current.ID != id || t.current.Status != StatusPending {
		return Operation{}, &StaleCompletionError{OperationID: id}
	}
	switch {
	case outcome.Failure == FailureCancelled:
		t.current.Status = StatusCancelled
		t.current.LastError = outcome.Detail
	case outcome.IsFailure():
		t.current.Status = StatusFailed
		t.current.LastError = failureMessage(outcome)
	default:
		t.current.Status = StatusSucceeded
		t.current.LastError = ""
	}
	return *t.current, nil
}

// Retry re-arms a failed operation. Valid only while the operation is failed
// and its retry budget is not exhausted; the caller re-invokes the provider
// with the returned envelope.
func (t *Tracker) Retry(id string) (Operation, error) {
	if t.current == nil || t.current.ID != id {
		return Operation{}, fmt.Errorf("asyncop: no operation %s to retry", id)
	}
	if t.current.Status != StatusFailed {
		return Operation{}, fmt.Errorf("asyncop: operation %s is %s, not failed", id, t.current.Status)
	}
	if t.current.Attempt > t.current.MaxAttempts {
		return Operation{}, fmt.Errorf("asyncop: operation %s exhausted its %d retries", id, t.current.MaxAttempts)
	}
	t.current.Attempt++
	t.current.Status = StatusPending
	t.current.LastError = ""
	return *t.current, nil
}

// Cancel marks a pending operation cancelled. The underlying provider call is
// abandoned best-effort; its eventual completion trips the stale guard.
func (t *Tracker) Cancel(id string) (Operation, error) {
	if t.current == nil || t.current.ID != id {
		return Operation{}, fmt.Errorf("asyncop: no operation %s to cancel", id)
	}
	if t.current.Status != StatusPending {
		return Operation{}, fmt.Errorf("asyncop: operation %s is %s, not pending", id, t.current.Status)
	}
	t.current.Status = StatusCancelled
	return *t.current, nil
}

// Current returns a copy of the tracked operation, or nil when none exists.
func (t *Tracker) Current() *Operation {
	if t.current == nil {
		return nil
	}
	op := *t.current
	return &op
}

// Pending reports whether a provider call is outstanding.
func (t *Tracker) Pending() bool {
	return t.current != nil && t.current.Status == StatusPending
}

// Clear forgets a resolved operation. Pending operations must be cancelled or
// completed first.
func (t *Tracker) Clear() error {
	if t.current != nil && t.current.Status == StatusPending {
		return fmt.Errorf("asyncop: cannot clear operation %s while pending", t.current.ID)
	}
	t.current = nil
	return nil
}

func failureMessage(outcome Outcome) string {
	if outcome.Detail == "" {
		return string(outcome.Failure)
	}
	return fmt.Sprintf("%s: %s", outcome.Failure, outcome.Detail)
}
