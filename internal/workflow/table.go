package workflow

// The transition table is the single declaration of what the machine can do.
// Keeping it data-driven keeps the state space auditable: tests sweep every
// (state, event) pair and anything absent here is rejected with
// NoSuchTransitionError instead of silently doing nothing.

// GuardFunc is a precondition; a non-nil error rejects the event with its
// message as the user-visible reason. Guards never mutate.
type GuardFunc func(*Machine, Event) error

// EffectFunc applies a declared side effect while the transition runs.
type EffectFunc func(*Machine, Event) error

type transitionKey struct {
	State State
	Event EventKind
}

type transition struct {
	// To is the next state. Resolve, when set, picks the next state from the
	// event instead; async completions need this since failure keeps the
	// machine on its current step.
	To      State
	Resolve func(*Machine, Event) State
	Guards  []GuardFunc
	Effects []EffectFunc
}

func newTransitionTable() map[transitionKey]transition {
	table := map[transitionKey]transition{
		// Category authoring.
		{StateIdle, EventBegin}: {
			To: StateSelectingCategory,
		},
		{StateIdle, EventSelectCategory}: {
			To:      StateEditingCategory,
			Effects: []EffectFunc{(*Machine).stageCategory},
		},
		{StateSelectingCategory, EventSelectCategory}: {
			To:      StateEditingCategory,
			Effects: []EffectFunc{(*Machine).stageCategory},
		},
		{StateSelectingCategory, EventBack}: {
			To: StateIdle,
		},
		{StateEditingCategory, EventEditCategory}: {
			To:      StateEditingCategory,
			Guards:  []GuardFunc{guardCategoryStaged, guardCategoryEditable},
			Effects: []EffectFunc{(*Machine).editCategory},
		},
		{StateEditingCategory, EventRequestGenerate}: {
			To:      StateEditingCategory,
			Guards:  []GuardFunc{guardNoPending, guardCategoryStaged, guardGenerateTarget},
			Effects: []EffectFunc{(*Machine).startGeneration},
		},
		{StateEditingCategory, EventAsyncCompleted}: {
			To:      StateEditingCategory,
			Effects: []EffectFunc{(*Machine).applyCompletion},
		},
		{StateEditingCategory, EventCancel}: {
			To:      StateEditingCategory,
			Guards:  []GuardFunc{guardPending},
			Effects: []EffectFunc{(*Machine).cancelOperation},
		},
		{StateEditingCategory, EventRetry}: {
			To:      StateEditingCategory,
			Guards:  []GuardFunc{guardRetryable},
			Effects: []EffectFunc{(*Machine).retryOperation},
		},
		{StateEditingCategory, EventSubmitCategory}: {
			To:      StateSelectingScale,
			Guards:  []GuardFunc{guardNoPending, guardCategoryTitle},
			Effects: []EffectFunc{(*Machine).commitCategory},
		},
		{StateEditingCategory, EventBack}: {
			To:      StateSelectingCategory,
			Guards:  []GuardFunc{guardNoPending},
			Effects: []EffectFunc{(*Machine).discardCategory},
		},

		// Scale authoring.
		{StateSelectingScale, EventSelectScale}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardCategoryCommitted},
			Effects: []EffectFunc{(*Machine).stageScale},
		},
		{StateSelectingScale, EventBack}: {
			To:      StateSelectingCategory,
			Effects: []EffectFunc{(*Machine).discardCategory},
		},
		{StateEditingScale, EventEditScale}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardScaleStaged},
			Effects: []EffectFunc{(*Machine).editScale},
		},
		{StateEditingScale, EventRequestGenerate}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardNoPending, guardScaleStaged, guardGenerateTarget},
			Effects: []EffectFunc{(*Machine).startGeneration},
		},
		{StateEditingScale, EventAsyncCompleted}: {
			To:      StateEditingScale,
			Effects: []EffectFunc{(*Machine).applyCompletion},
		},
		{StateEditingScale, EventCancel}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardPending},
			Effects: []EffectFunc{(*Machine).cancelOperation},
		},
		{StateEditingScale, EventRetry}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardRetryable},
			Effects: []EffectFunc{(*Machine).retryOperation},
		},
		{StateEditingScale, EventSubmitScale}: {
			To:      StateCreatingScales,
			Guards:  []GuardFunc{guardNoPending, guardScaleTitle},
			Effects: []EffectFunc{(*Machine).commitScale},
		},
		{StateEditingScale, EventBack}: {
			To:      StateSelectingScale,
			Guards:  []GuardFunc{guardNoPending},
			Effects: []EffectFunc{(*Machine).discardScale},
		},
		{StateCreatingScales, EventAddScale}: {
			To:      StateEditingScale,
			Guards:  []GuardFunc{guardCategoryCommitted},
			Effects: []EffectFunc{(*Machine).stageScale},
		},
		{StateCreatingScales, EventProceed}: {
			To:     StateReadyToAnalyze,
			Guards: []GuardFunc{guardHasScales},
		},
		{StateCreatingScales, EventBack}: {
			To: StateSelectingScale,
		},

		// Analysis.
		{StateReadyToAnalyze, EventRun}: {
			To:      StateAnalyzing,
			Guards:  []GuardFunc{guardNoPending, guardHasScales},
			Effects: []EffectFunc{(*Machine).startAnalysis},
		},
		{StateReadyToAnalyze, EventBack}: {
			To: StateCreatingScales,
		},
		{StateAnalyzing, EventAsyncCompleted}: {
			Resolve: (*Machine).resolveAnalysis,
			Effects: []EffectFunc{(*Machine).applyCompletion},
		},
		{StateAnalyzing, EventCancel}: {
			To:      StateReadyToAnalyze,
			Guards:  []GuardFunc{guardPending},
			Effects: []EffectFunc{(*Machine).cancelOperation},
		},
		{StateAnalyzing, EventRetry}: {
			To:      StateAnalyzing,
			Guards:  []GuardFunc{guardRetryable},
			Effects: []EffectFunc{(*Machine).retryOperation},
		},
		{StateResultReady, EventRerun}: {
			To:      StateAnalyzing,
			Guards:  []GuardFunc{guardNoPending, guardHasResult},
			Effects: []EffectFunc{(*Machine).startAnalysis},
		},
		{StateResultReady, EventBack}: {
			To: StateReadyToAnalyze,
		},
	}

	// Reset is accepted from every state and always lands on Idle.
	for _, state := range AllStates() {
		table[transitionKey{state, EventReset}] = transition{
			To:      StateIdle,
			Effects: []EffectFunc{(*Machine).resetSession},
		}
	}

	// Abandoned provider calls can report long after a cancel or reset moved
	// the machine on. Every state accepts the completion so it can be routed
	// into the stale guard instead of tripping NoSuchTransitionError.
	for _, state := range AllStates() {
		key := transitionKey{state, EventAsyncCompleted}
		if _, exists := table[key]; exists {
			continue
		}
		table[key] = transition{
			To:      state,
			Effects: []EffectFunc{(*Machine).applyCompletion},
		}
	}

	return table
}
