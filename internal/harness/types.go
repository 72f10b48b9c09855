package harness

// TraceEvent is one dispatch or transition recorded during a scenario.
type TraceEvent struct {
	Type string `json:"type"` // "dispatch" or "transition"
	Seq  int64  `json:"seq"`
	Step int    `json:"step"` // Index of the step that produced the event

	// Dispatch fields.
	FrameStart float64 `json:"frame_start,omitempty"`
	OffsetMs   float64 `json:"offset_ms,omitempty"`
	Visible    *int    `json:"visible,omitempty"`
	Terminal   bool    `json:"terminal,omitempty"`

	// Transition fields.
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	PositionMs float64 `json:"position_ms,omitempty"`
}

// FinalState is the engine state after the last step.
type FinalState struct {
	State      string  `json:"state"`
	PositionMs float64 `json:"position_ms"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// matched.
	Pass bool `json:"pass"`

	// Trace contains all dispatches and transitions in seq order.
	Trace []TraceEvent `json:"trace"`

	// SourceCalls holds every transport call per source, in order.
	SourceCalls [][]string `json:"source_calls"`

	// Guards lists start guards and warnings as "steps[i]: CODE".
	Guards []string `json:"guards,omitempty"`

	Final FinalState `json:"final"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		SourceCalls: [][]string{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Dispatches returns the dispatch events of the trace.
func (r *Result) Dispatches() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == "dispatch" {
			out = append(out, ev)
		}
	}
	return out
}

// Transitions returns the transition events of the trace.
func (r *Result) Transitions() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == "transition" {
			out = append(out, ev)
		}
	}
	return out
}
