package compiler

import (
	"math"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// TotalDuration returns the master-timeline length of the enabled commands,
// audio tails included: the start of the compiled plan's sentinel.
func TotalDuration(commands []ir.Command) float64 {
	return Compile(commands).End()
}

// Truncate ends a plan early at endMs. Actions starting at or after endMs are
// dropped, actions straddling it are clipped, and a 1ms black sentinel is
// appended at endMs.
//
// endMs outside (0, plan.End()) returns the plan unchanged. The input plan is
// never modified.
func Truncate(plan ir.Plan, endMs float64) ir.Plan {
	if plan.Empty() || !(endMs > 0) || endMs >= plan.End() || math.IsNaN(endMs) {
		return plan
	}

	actions := make([]ir.PlanAction, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		if a.Start >= endMs {
			break
		}
		a.Overlay = a.Overlay.Clone()
		if a.End > endMs {
			a.End = endMs
		}
		actions = append(actions, a)
	}
	actions = append(actions, ir.PlanAction{
		Start:        endMs,
		End:          endMs + 1,
		CommandIndex: ir.NoCommand,
		ShowVideo:    true,
	})
	return ir.Plan{Actions: actions}
}

// CompileRange compiles commands and truncates at endMs when endMs is set.
// A non-positive endMs is treated like nil, as in Truncate.
func CompileRange(commands []ir.Command, endMs *float64) ir.Plan {
	plan := Compile(commands)
	if endMs != nil {
		plan = Truncate(plan, *endMs)
	}
	return plan
}
