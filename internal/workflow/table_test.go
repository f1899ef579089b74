package workflow

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jcrafford/assay/internal/asyncop"
)

func allEventKinds() []EventKind {
	return []EventKind{
		EventBegin,
		EventSelectCategory,
		EventEditCategory,
		EventSubmitCategory,
		EventSelectScale,
		EventEditScale,
		EventSubmitScale,
		EventAddScale,
		EventProceed,
		EventRequestGenerate,
		EventAsyncCompleted,
		EventCancel,
		EventRetry,
		EventRun,
		EventRerun,
		EventBack,
		EventReset,
	}
}

// TestTableSweep fires every event kind in every reachable state. An event is
// either handled, rejected by a guard, or has no edge at all; the last two
// must leave the machine exactly where it was.
func TestTableSweep(t *testing.T) {
	for _, state := range AllStates() {
		for _, kind := range allEventKinds() {
			t.Run(fmt.Sprintf("%s/%s", state, kind), func(t *testing.T) {
				m := newTestMachine(t)
				driveTo(t, m, state)
				before := m.State()

				_, err := m.Dispatch(probeEvent(kind))
				switch {
				case err == nil:
				case errors.As(err, new(*GuardViolation)),
					errors.As(err, new(*NoSuchTransitionError)):
					if m.State() != before {
						t.Fatalf("rejected %s moved %s to %s", kind, before, m.State())
					}
				default:
					t.Fatalf("dispatch %s in %s: unexpected error %v", kind, state, err)
				}
			})
		}
	}
}

// TestTableRejectsUnknownPairs spot-checks pairs that must have no edge.
func TestTableRejectsUnknownPairs(t *testing.T) {
	cases := []struct {
		state State
		ev    Event
	}{
		{StateIdle, Run()},
		{StateIdle, SubmitCategory()},
		{StateSelectingCategory, SubmitScale()},
		{StateEditingCategory, Rerun()},
		{StateCreatingScales, Run()},
		{StateAnalyzing, RequestGenerate(TargetTitle)},
		{StateResultReady, SubmitCategory()},
	}
	for _, tc := range cases {
		m := newTestMachine(t)
		driveTo(t, m, tc.state)
		var missing *NoSuchTransitionError
		if _, err := m.Dispatch(tc.ev); !errors.As(err, &missing) {
			t.Fatalf("%s in %s: err = %v, want NoSuchTransitionError", tc.ev.Kind, tc.state, err)
		}
		if missing.State != tc.state || missing.Event != tc.ev.Kind {
			t.Fatalf("error names %s/%s, want %s/%s", missing.State, missing.Event, tc.state, tc.ev.Kind)
		}
	}
}

// TestRandomWalkHoldsInvariants drives a machine through a long pseudo-random
// event stream. Whatever the ordering, there is never more than one pending
// operation and every rejection is one of the two declared error types.
func TestRandomWalkHoldsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5ca1e))
	kinds := allEventKinds()

	m := newTestMachine(t)
	for i := 0; i < 5000; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		ev := probeEvent(kind)
		switch kind {
		case EventSelectCategory, EventEditCategory, EventSelectScale, EventEditScale, EventAddScale:
			ev.Title = fmt.Sprintf("title-%d", i)
			ev.Description = fmt.Sprintf("desc-%d", i)
		case EventRequestGenerate:
			targets := []GenerateTarget{TargetTitle, TargetDescription, TargetBoth}
			ev.Target = targets[rng.Intn(len(targets))]
		case EventAsyncCompleted:
			ev.OperationID = fmt.Sprintf("ghost-%d", i)
			if pending := m.Snapshot().PendingOperation; pending != nil && rng.Intn(4) != 0 {
				ev.OperationID = pending.ID
			}
			switch rng.Intn(3) {
			case 0:
				ev.Outcome = asyncop.Success(fmt.Sprintf("content-%d", i))
			case 1:
				ev.Outcome = asyncop.Failed(asyncop.FailureProvider, "synthetic failure")
			default:
				ev.Outcome = asyncop.Failed(asyncop.FailureTimeout, "synthetic timeout")
			}
		}

		snap, err := m.Dispatch(ev)
		if err != nil &&
			!errors.As(err, new(*GuardViolation)) &&
			!errors.As(err, new(*NoSuchTransitionError)) {
			t.Fatalf("step %d: dispatch %s in %s: unexpected error %v", i, kind, m.State(), err)
		}
		if snap.State != m.State() {
			t.Fatalf("step %d: snapshot state %s disagrees with machine state %s", i, snap.State, m.State())
		}
		if pending := snap.PendingOperation; pending != nil && pending.Status != asyncop.StatusPending && pending.Status != asyncop.StatusFailed {
			t.Fatalf("step %d: tracker holds a finished operation: %+v", i, pending)
		}
		if snap.PendingOperation == nil {
			continue
		}
		// Single flight: a second start while one is in flight must never slip
		// through, regardless of the path that got us here.
		if _, err := m.Dispatch(RequestGenerate(TargetTitle)); err == nil && snap.PendingOperation.Status == asyncop.StatusPending {
			t.Fatalf("step %d: generate accepted while %s is pending", i, snap.PendingOperation.ID)
		}
	}
}
