package ir

// NoCommand is the CommandIndex of a black/silence action.
const NoCommand = -1

// PlanAction is one step of a compiled plan: what a single media source (or
// the black backdrop, when CommandIndex is NoCommand) does during
// [Start, End) on the master timeline.
type PlanAction struct {
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	CommandIndex   int      `json:"command_index"`
	PlayFromStart  bool     `json:"play_from_start"`
	ShowVideo      bool     `json:"show_video"`
	Overlay        *Overlay `json:"overlay,omitempty"`
	PauseRequested bool     `json:"pause_requested"`
}

// IsBlack reports whether the action drives no media source.
func (a PlanAction) IsBlack() bool {
	return a.CommandIndex == NoCommand
}

// DurationMs returns End - Start.
func (a PlanAction) DurationMs() float64 {
	return a.End - a.Start
}

// Plan is an ordered sequence of actions sorted by Start. Actions sharing a
// Start form one frame and are dispatched together.
//
// A non-empty plan always ends with a 1ms black sentinel; End() is its Start.
type Plan struct {
	Actions []PlanAction `json:"actions"`
}

// Empty reports whether the plan has no actions.
func (p Plan) Empty() bool {
	return len(p.Actions) == 0
}

// End returns the plan's effective end: the start of the final (sentinel)
// action. Returns 0 for an empty plan.
func (p Plan) End() float64 {
	if p.Empty() {
		return 0
	}
	return p.Actions[len(p.Actions)-1].Start
}

// GroupEnd returns the index one past the last action sharing
// Actions[i].Start. Returns len(Actions) for the final frame.
func (p Plan) GroupEnd(i int) int {
	j := i
	for j < len(p.Actions) && p.Actions[j].Start == p.Actions[i].Start {
		j++
	}
	return j
}

// Group returns the actions of the frame starting at index i.
func (p Plan) Group(i int) []PlanAction {
	return p.Actions[i:p.GroupEnd(i)]
}

// FrameAt returns the index of the first action of the frame containing ms:
// the frame with the greatest Start <= ms. Ties between actions sharing that
// Start resolve to the earliest one. Returns -1 when ms precedes the plan or
// the plan is empty.
func (p Plan) FrameAt(ms float64) int {
	found := -1
	for i := 0; i < len(p.Actions); i = p.GroupEnd(i) {
		if p.Actions[i].Start > ms {
			break
		}
		found = i
	}
	return found
}

// Frames returns the starting index of every frame, in order.
func (p Plan) Frames() []int {
	var starts []int
	for i := 0; i < len(p.Actions); i = p.GroupEnd(i) {
		starts = append(starts, i)
	}
	return starts
}

// Visible returns the command index shown during the frame starting at i,
// or NoCommand.
func (p Plan) Visible(i int) int {
	for _, a := range p.Group(i) {
		if a.ShowVideo && !a.IsBlack() {
			return a.CommandIndex
		}
	}
	return NoCommand
}
