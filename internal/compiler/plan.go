package compiler

import (
	"slices"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// span is one command's extent on the master timeline.
type span struct {
	index    int
	start    float64
	end      float64
	audioEnd float64
	tail     bool
	overlay  *ir.Overlay
}

// surrounding classifies commands relative to one event point.
type surrounding struct {
	starting []int // start == point
	ongoing  []int // start < point < end
	tails    []int // end <= point < audioEnd
	stopping []int // audioEnd == point, tail only
}

// active returns starting and ongoing commands in list order.
func (s surrounding) active() []int {
	out := make([]int, 0, len(s.starting)+len(s.ongoing))
	out = append(out, s.starting...)
	out = append(out, s.ongoing...)
	slices.Sort(out)
	return out
}

// visible returns the highest-index active command, or ir.NoCommand.
func (s surrounding) visible() int {
	vis := ir.NoCommand
	for _, i := range s.starting {
		vis = max(vis, i)
	}
	for _, i := range s.ongoing {
		vis = max(vis, i)
	}
	return vis
}

// Compile turns the enabled commands into a playback plan using a sweep line
// over every start, end and audio-end point.
//
// List order is precedence: when commands overlap, the one listed last is
// visible. Commands are cloned first, so the plan never aliases timeline
// data. Commands whose effective duration is not positive play no part in
// the plan (see Degenerate).
//
// All boundary comparisons are exact float equality. Callers that need two
// boundaries to coincide must derive them from the same arithmetic.
func Compile(commands []ir.Command) ir.Plan {
	spans := buildSpans(commands)
	if len(spans) == 0 {
		return ir.Plan{}
	}

	points := eventPoints(spans)
	actions := make([]ir.PlanAction, 0, len(points)*2)

	for i := 0; i+1 < len(points); i++ {
		point, next := points[i], points[i+1]
		s := classify(spans, point)
		vis := s.visible()
		isStarting := func(idx int) bool { return slices.Contains(s.starting, idx) }

		for _, idx := range s.active() {
			a := ir.PlanAction{
				Start:         point,
				End:           next,
				CommandIndex:  idx,
				PlayFromStart: isStarting(idx),
				ShowVideo:     idx == vis,
			}
			if idx == vis {
				a.Overlay = spanOf(spans, idx).overlay.Clone()
			}
			actions = append(actions, a)
		}
		for _, idx := range s.tails {
			actions = append(actions, ir.PlanAction{
				Start:        point,
				End:          next,
				CommandIndex: idx,
			})
		}
		for _, idx := range s.stopping {
			actions = append(actions, ir.PlanAction{
				Start:          point,
				End:            next,
				CommandIndex:   idx,
				PauseRequested: true,
			})
		}
		if len(s.starting) == 0 && len(s.ongoing) == 0 && len(s.tails) == 0 {
			actions = append(actions, blackAction(point, next))
		}
	}

	last := points[len(points)-1]
	for _, idx := range classify(spans, last).stopping {
		actions = append(actions, ir.PlanAction{
			Start:          last,
			End:            last + 1,
			CommandIndex:   idx,
			PauseRequested: true,
		})
	}
	sentinel := blackAction(last, last+1)
	sentinel.ShowVideo = true
	actions = append(actions, sentinel)

	return ir.Plan{Actions: actions}
}

func blackAction(start, end float64) ir.PlanAction {
	return ir.PlanAction{Start: start, End: end, CommandIndex: ir.NoCommand}
}

// buildSpans snapshots the usable commands. Indices stay those of the input
// list so precedence and source lookup are unaffected by skipped commands.
func buildSpans(commands []ir.Command) []span {
	spans := make([]span, 0, len(commands))
	for i, c := range commands {
		if Degenerate(c) {
			continue
		}
		c = c.Clone()
		spans = append(spans, span{
			index:    i,
			start:    c.PositionMs,
			end:      c.EndTimeMs(),
			audioEnd: c.AudioEndTimeMs(),
			tail:     c.HasAudioTail(),
			overlay:  c.Overlay,
		})
	}
	return spans
}

// eventPoints returns 0 and every distinct boundary, ascending. 0 is always
// present so a gap before the first command is a black frame.
func eventPoints(spans []span) []float64 {
	points := []float64{0}
	for _, s := range spans {
		points = append(points, s.start, s.end)
		if s.tail {
			points = append(points, s.audioEnd)
		}
	}
	slices.Sort(points)
	return slices.Compact(points)
}

func classify(spans []span, point float64) surrounding {
	var s surrounding
	for _, sp := range spans {
		switch {
		case point == sp.start:
			s.starting = append(s.starting, sp.index)
		case sp.start < point && point < sp.end:
			s.ongoing = append(s.ongoing, sp.index)
		case sp.tail && sp.end <= point && point < sp.audioEnd:
			s.tails = append(s.tails, sp.index)
		case sp.tail && point == sp.audioEnd:
			s.stopping = append(s.stopping, sp.index)
		}
	}
	return s
}

func spanOf(spans []span, index int) span {
	for _, s := range spans {
		if s.index == index {
			return s
		}
	}
	return span{index: index}
}

// Degenerate reports whether a command has no positive effective duration
// (trim end at or before trim start, or a non-positive or non-finite rate),
// or a non-finite position or audio tail. Such commands are skipped by
// Compile.
func Degenerate(c ir.Command) bool {
	if !(c.SpeedPct > 0) {
		return true
	}
	d := c.ActualDurationMs()
	return !(d > 0) || !finite(d) || !finite(c.PositionMs) || !finite(c.ExtendAudioSec)
}

// DegenerateIndices returns the list indices Compile will skip.
func DegenerateIndices(commands []ir.Command) []int {
	var out []int
	for i, c := range commands {
		if Degenerate(c) {
			out = append(out, i)
		}
	}
	return out
}
