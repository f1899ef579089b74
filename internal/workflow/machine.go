package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jcrafford/assay/internal/assessment"
	"github.com/jcrafford/assay/internal/asyncop"
)

// Logger records machine diagnostics. It matches logbook.Logbook's Printf-style
// methods so the TUI can feed machine noise into the session log.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Machine drives the assessment walkthrough. It is the sole mutator of the
// session: the UI and provider collaborators only ever see snapshots and feed
// events back through Dispatch. Dispatch runs to completion on one logical
// thread; suspension happens only at the provider boundary, whose outcome
// re-enters as an EventAsyncCompleted.
type Machine struct {
	session *assessment.Session
	tracker *asyncop.Tracker
	table   map[transitionKey]transition
	state   State
	logger  Logger
	strict  bool

	// queued holds the follow-up generation kind when a "refresh both"
	// request was decomposed; it launches after the first half succeeds and
	// is dropped if that half fails or is cancelled.
	queued asyncop.Kind
	// started is the operation opened by the dispatch in progress; the
	// binding layer launches the provider call for it.
	started *asyncop.Operation
	// completed is the operation resolved by the dispatch in progress, nil
	// when the completion was stale.
	completed *asyncop.Operation
}

// MachineOption customizes a Machine during construction.
type MachineOption func(*Machine)

// WithLogger routes machine diagnostics to the given logger.
func WithLogger(logger Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStrictTransitions makes NoSuchTransitionError panic instead of being
// logged; tests and debug builds use it to catch binding defects early.
func WithStrictTransitions() MachineOption {
	return func(m *Machine) {
		m.strict = true
	}
}

// NewMachine builds a machine around the given session and tracker. Nil
// collaborators get fresh defaults.
func NewMachine(session *assessment.Session, tracker *asyncop.Tracker, opts ...MachineOption) *Machine {
	m := &Machine{
		session: session,
		tracker: tracker,
		table:   newTransitionTable(),
		state:   StateIdle,
		logger:  nopLogger{},
	}
	if m.session == nil {
		m.session = assessment.NewSession()
	}
	if m.tracker == nil {
		m.tracker = asyncop.NewTracker()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current workflow state.
func (m *Machine) State() State {
	return m.state
}

// Dispatch applies one event. It either performs exactly the transition the
// table declares for (state, event) or reports why it did not; no error ever
// escapes as a panic outside strict mode, and a rejected event leaves the
// snapshot unchanged apart from the returned error.
func (m *Machine) Dispatch(ev Event) (Snapshot, error) {
	tr, ok := m.table[transitionKey{m.state, ev.Kind}]
	if !ok {
		err := &NoSuchTransitionError{State: m.state, Event: ev.Kind}
		if m.strict {
			panic(err)
		}
		m.logger.Printf("workflow: dropped %s in %s (no transition)", ev.Kind, m.state)
		return m.Snapshot(), err
	}

	for _, guard := range tr.Guards {
		if reason := guard(m, ev); reason != nil {
			// Rejection is pure: nothing below this point has run, so the
			// snapshot is identical to the pre-dispatch one.
			return m.Snapshot(), &GuardViolation{State: m.state, Event: ev.Kind, Reason: reason.Error()}
		}
	}

	m.started = nil
	m.completed = nil

	for _, effect := range tr.Effects {
		if err := effect(m, ev); err != nil {
			// Effect failures mean a guard is missing; state stays put.
			m.logger.Printf("workflow: effect for %s in %s failed: %v", ev.Kind, m.state, err)
			return m.Snapshot(), err
		}
	}

	if tr.Resolve != nil {
		m.state = tr.Resolve(m, ev)
	} else {
		m.state = tr.To
	}
	return m.Snapshot(), nil
}

// Guards. Each returns the user-visible rejection reason.

func guardNoPending(m *Machine, _ Event) error {
	if m.tracker.Pending() {
		return fmt.Errorf("an operation is already in flight")
	}
	return nil
}

func guardPending(m *Machine, _ Event) error {
	if !m.tracker.Pending() {
		return fmt.Errorf("nothing is in flight to cancel")
	}
	return nil
}

func guardRetryable(m *Machine, _ Event) error {
	op := m.tracker.Current()
	if op == nil || op.Status != asyncop.StatusFailed {
		return fmt.Errorf("nothing failed to retry")
	}
	if !op.CanRetry() {
		return fmt.Errorf("retry budget of %d exhausted", op.MaxAttempts)
	}
	return nil
}

func guardCategoryStaged(m *Machine, _ Event) error {
	if m.session.Category() == nil {
		return fmt.Errorf("no category selected")
	}
	return nil
}

func guardCategoryEditable(m *Machine, _ Event) error {
	if m.session.CategoryCommitted() {
		return fmt.Errorf("category is already committed")
	}
	return nil
}

func guardCategoryTitle(m *Machine, _ Event) error {
	cat := m.session.Category()
	if cat == nil || cat.Title == "" {
		return fmt.Errorf("category title must not be empty")
	}
	return nil
}

func guardCategoryCommitted(m *Machine, _ Event) error {
	if !m.session.CategoryCommitted() {
		return fmt.Errorf("commit a category first")
	}
	return nil
}

func guardScaleStaged(m *Machine, _ Event) error {
	if m.session.StagedScale() == nil {
		return fmt.Errorf("no scale selected")
	}
	return nil
}

func guardScaleTitle(m *Machine, _ Event) error {
	scale := m.session.StagedScale()
	if scale == nil || scale.Title == "" {
		return fmt.Errorf("scale title must not be empty")
	}
	return nil
}

func guardHasScales(m *Machine, _ Event) error {
	if len(m.session.Scales()) == 0 {
		return fmt.Errorf("add at least one scale")
	}
	return nil
}

func guardGenerateTarget(_ *Machine, ev Event) error {
	switch ev.Target {
	case TargetTitle, TargetDescription, TargetBoth:
		return nil
	default:
		return fmt.Errorf("unknown generate target %q", ev.Target)
	}
}

func guardHasResult(m *Machine, _ Event) error {
	if m.session.LastResult() == nil {
		return fmt.Errorf("no result to rerun")
	}
	return nil
}

// Effects.

func (m *Machine) stageCategory(ev Event) error {
	m.session.StageCategory(ev.Title, ev.Description, assessment.OriginUserAuthored)
	return nil
}

func (m *Machine) editCategory(ev Event) error {
	if err := m.session.SetCategoryTitle(ev.Title); err != nil {
		return err
	}
	return m.session.SetCategoryDescription(ev.Description)
}

func (m *Machine) commitCategory(Event) error {
	return m.session.CommitCategory()
}

func (m *Machine) discardCategory(Event) error {
	m.session.DiscardCategory()
	// Any resolved operation was minted for the discarded draft; it goes too,
	// along with a queued follow-up.
	m.queued = ""
	return m.tracker.Clear()
}

func (m *Machine) stageScale(ev Event) error {
	_, err := m.session.StageScale(ev.Title, ev.Description, assessment.OriginUserAuthored)
	return err
}

func (m *Machine) editScale(ev Event) error {
	if err := m.session.SetScaleTitle(ev.Title); err != nil {
		return err
	}
	return m.session.SetScaleDescription(ev.Description)
}

func (m *Machine) commitScale(Event) error {
	return m.session.CommitScale()
}

func (m *Machine) discardScale(Event) error {
	m.session.DiscardScale()
	m.queued = ""
	return m.tracker.Clear()
}

func (m *Machine) startGeneration(ev Event) error {
	primary, followUp, err := generationKinds(m.state, ev.Target)
	if err != nil {
		return err
	}
	op, err := m.tracker.Start(primary)
	if err != nil {
		return err
	}
	m.started = &op
	m.queued = followUp
	return nil
}

func (m *Machine) startAnalysis(Event) error {
	op, err := m.tracker.Start(asyncop.KindAnalysis)
	if err != nil {
		return err
	}
	m.started = &op
	return nil
}

func (m *Machine) retryOperation(Event) error {
	current := m.tracker.Current()
	retried, err := m.tracker.Retry(current.ID)
	if err != nil {
		return err
	}
	m.started = &retried
	return nil
}

func (m *Machine) cancelOperation(Event) error {
	current := m.tracker.Current()
	if _, err := m.tracker.Cancel(current.ID); err != nil {
		return err
	}
	m.queued = ""
	// Forgetting the cancelled envelope re-enables editing immediately; the
	// abandoned provider call trips the stale guard when it finally reports.
	return m.tracker.Clear()
}

func (m *Machine) applyCompletion(ev Event) error {
	resolved, err := m.tracker.Complete(ev.OperationID, ev.Outcome)
	if err != nil {
		var stale *asyncop.StaleCompletionError
		if errors.As(err, &stale) {
			m.logger.Printf("workflow: %v", stale)
			return nil
		}
		return err
	}
	m.completed = &resolved

	switch resolved.Status {
	case asyncop.StatusSucceeded:
		if err := m.applyContent(resolved.Kind, ev.Outcome.Content); err != nil {
			return err
		}
		if err := m.tracker.Clear(); err != nil {
			return err
		}
		if m.queued != "" {
			op, err := m.tracker.Start(m.queued)
			if err != nil {
				return err
			}
			m.started = &op
			m.queued = ""
		}
	case asyncop.StatusCancelled:
		m.queued = ""
		return m.tracker.Clear()
	default:
		// Failed: keep the envelope so retry stays available, drop any
		// queued follow-up.
		m.queued = ""
	}
	return nil
}

func (m *Machine) applyContent(kind asyncop.Kind, content string) error {
	switch kind {
	case asyncop.KindCategoryTitle:
		return m.session.SetCategoryTitle(content)
	case asyncop.KindCategoryDescription:
		return m.session.SetCategoryDescription(content)
	case asyncop.KindScaleTitle:
		return m.session.SetScaleTitle(content)
	case asyncop.KindScaleDescription:
		return m.session.SetScaleDescription(content)
	case asyncop.KindAnalysis:
		_, err := m.session.RecordResult(content)
		return err
	default:
		return fmt.Errorf("workflow: unknown operation kind %s", kind)
	}
}

func (m *Machine) resetSession(Event) error {
	if current := m.tracker.Current(); current != nil && current.Status == asyncop.StatusPending {
		if _, err := m.tracker.Cancel(current.ID); err != nil {
			return err
		}
	}
	if err := m.tracker.Clear(); err != nil {
		return err
	}
	m.session.Reset()
	m.queued = ""
	return nil
}

func (m *Machine) resolveAnalysis(Event) State {
	if m.completed == nil {
		return StateAnalyzing
	}
	switch m.completed.Status {
	case asyncop.StatusSucceeded:
		return StateResultReady
	case asyncop.StatusCancelled:
		return StateReadyToAnalyze
	default:
		return StateAnalyzing
	}
}

func generationKinds(state State, target GenerateTarget) (asyncop.Kind, asyncop.Kind, error) {
	var title, description asyncop.Kind
	switch state {
	case StateEditingCategory:
		title, description = asyncop.KindCategoryTitle, asyncop.KindCategoryDescription
	case StateEditingScale:
		title, description = asyncop.KindScaleTitle, asyncop.KindScaleDescription
	default:
		return "", "", fmt.Errorf("workflow: nothing to generate in %s", state)
	}
	switch target {
	case TargetTitle:
		return title, "", nil
	case TargetDescription:
		return description, "", nil
	case TargetBoth:
		// Sequential decomposition keeps the single-flight invariant: title
		// first, description queued behind its success.
		return title, description, nil
	default:
		return "", "", fmt.Errorf("workflow: unknown generate target %q", target)
	}
}

// Snapshot returns an immutable view of the walkthrough for the binding
// layer. A control is enabled iff the table has an outgoing edge for it in
// the current state and no guard currently blocks it.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:            m.state,
		Category:         m.session.Category(),
		Scales:           m.session.Scales(),
		StagedScale:      m.session.StagedScale(),
		PendingOperation: m.tracker.Current(),
		StartedOperation: m.started,
		LastResult:       m.session.LastResult(),
		EnabledControls:  m.enabledControls(),
	}
	return snap
}

func (m *Machine) enabledControls() []EventKind {
	var controls []EventKind
	for key, tr := range m.table {
		if key.State != m.state {
			continue
		}
		// Completions arrive on the message queue, not from a widget.
		if key.Event == EventAsyncCompleted {
			continue
		}
		blocked := false
		probe := probeEvent(key.Event)
		for _, guard := range tr.Guards {
			if guard(m, probe) != nil {
				blocked = true
				break
			}
		}
		if !blocked {
			controls = append(controls, key.Event)
		}
	}
	sort.Slice(controls, func(i, j int) bool { return controls[i] < controls[j] })
	return controls
}

// probeEvent builds a representative event for guard probing. Payload-bearing
// kinds get a minimal valid payload so payload-shape guards do not mask the
// state-dependent ones a control cares about.
func probeEvent(kind EventKind) Event {
	ev := Event{Kind: kind}
	if kind == EventRequestGenerate {
		ev.Target = TargetTitle
	}
	return ev
}

// Snapshot is the point-in-time view handed to the binding layer. All entity
// fields are copies; mutating them cannot touch session state.
type Snapshot struct {
	State            State
	Category         *assessment.Category
	Scales           []assessment.Scale
	StagedScale      *assessment.Scale
	PendingOperation *asyncop.Operation
	StartedOperation *asyncop.Operation
	LastResult       *assessment.Result
	EnabledControls  []EventKind
}

// ControlEnabled reports whether the given event currently has an unblocked
// outgoing edge.
func (s Snapshot) ControlEnabled(kind EventKind) bool {
	for _, control := range s.EnabledControls {
		if control == kind {
			return true
		}
	}
	return false
}

// Failed reports whether the active operation failed and awaits retry or
// navigation.
func (s Snapshot) Failed() bool {
	return s.PendingOperation != nil && s.PendingOperation.Status == asyncop.StatusFailed
}

// Busy reports whether a provider call is outstanding.
func (s Snapshot) Busy() bool {
	return s.PendingOperation != nil && s.PendingOperation.Status == asyncop.StatusPending
}
