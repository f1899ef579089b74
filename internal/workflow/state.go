package workflow

// State identifies where the assessment walkthrough currently sits. The
// topology is linear with branches: category authoring, scale authoring, then
// analysis, with failure surfacing as a failed pending operation on whichever
// async-bearing state owns it.
type State string

const (
	StateIdle              State = "idle"
	StateSelectingCategory State = "selecting_category"
	StateEditingCategory   State = "editing_category"
	StateSelectingScale    State = "selecting_scale"
	StateEditingScale      State = "editing_scale"
	StateCreatingScales    State = "creating_scales"
	StateReadyToAnalyze    State = "ready_to_analyze"
	StateAnalyzing         State = "analyzing"
	StateResultReady       State = "result_ready"
)

// AllStates returns every workflow state in walkthrough order.
func AllStates() []State {
	return []State{
		StateIdle,
		StateSelectingCategory,
		StateEditingCategory,
		StateSelectingScale,
		StateEditingScale,
		StateCreatingScales,
		StateReadyToAnalyze,
		StateAnalyzing,
		StateResultReady,
	}
}
