package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", describeEvent(ev))
		}
	}

	return buf.String()
}

func describeEvent(ev TraceEvent) string {
	if ev.Type == "transition" {
		return fmt.Sprintf("[%d] step %d: %s -> %s (%s at %vms)",
			ev.Seq, ev.Step, ev.From, ev.To, ev.Reason, ev.PositionMs)
	}
	visible := "none"
	if ev.Visible != nil && *ev.Visible >= 0 {
		visible = fmt.Sprint(*ev.Visible)
	}
	if ev.Terminal {
		visible = "end"
	}
	return fmt.Sprintf("[%d] step %d: frame %vms from %vms visible %s",
		ev.Seq, ev.Step, ev.FrameStart, ev.OffsetMs, visible)
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertDispatchCount:
			err = assertDispatchCount(result, a)
		case AssertVisibleOrder:
			err = assertVisibleOrder(result, a)
		case AssertSourceCall:
			err = assertSourceCall(result, a)
		case AssertTransitionOrder:
			err = assertTransitionOrder(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertDispatchCount checks the number of dispatches, the terminal one
// included.
func assertDispatchCount(result *Result, a Assertion) error {
	got := len(result.Dispatches())
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertDispatchCount,
		Expected: fmt.Sprintf("%d dispatches", *a.Count),
		Actual:   fmt.Sprintf("%d dispatches", got),
		Trace:    result.Trace,
	}
}

// assertVisibleOrder checks the visible command of every dispatch in order.
// The terminal dispatch reports -1.
func assertVisibleOrder(result *Result, a Assertion) error {
	var got []int
	for _, d := range result.Dispatches() {
		v := -1
		if d.Visible != nil {
			v = *d.Visible
		}
		got = append(got, v)
	}
	if slices.Equal(got, a.Visible) {
		return nil
	}
	return &AssertionError{
		Type:     AssertVisibleOrder,
		Expected: fmt.Sprintf("%v", a.Visible),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// assertSourceCall checks that a source received a call. With Count set the
// number of matching calls must be exact; without it at least one is
// required.
func assertSourceCall(result *Result, a Assertion) error {
	src := *a.Source
	if src >= len(result.SourceCalls) {
		return &AssertionError{
			Type:     AssertSourceCall,
			Expected: fmt.Sprintf("source %d", src),
			Actual:   fmt.Sprintf("%d sources", len(result.SourceCalls)),
		}
	}

	calls := result.SourceCalls[src]
	n := 0
	for _, c := range calls {
		if c == a.Call {
			n++
		}
	}

	switch {
	case a.Count != nil && n != *a.Count:
		return &AssertionError{
			Type:     AssertSourceCall,
			Expected: fmt.Sprintf("source %d to receive %s %d times", src, a.Call, *a.Count),
			Actual:   fmt.Sprintf("%d times in %v", n, calls),
		}
	case a.Count == nil && n == 0:
		return &AssertionError{
			Type:     AssertSourceCall,
			Expected: fmt.Sprintf("source %d to receive %s", src, a.Call),
			Actual:   fmt.Sprintf("not found in %v", calls),
		}
	}
	return nil
}

// assertTransitionOrder checks every transition as "reason:state" in order.
func assertTransitionOrder(result *Result, a Assertion) error {
	var got []string
	for _, t := range result.Transitions() {
		got = append(got, t.Reason+":"+t.To)
	}
	if slices.Equal(got, a.Transitions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTransitionOrder,
		Expected: fmt.Sprintf("%v", a.Transitions),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

func assertFinalState(result *Result, a Assertion) error {
	if a.State != "" && a.State != result.Final.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "state " + a.State,
			Actual:   "state " + result.Final.State,
		}
	}
	if a.PositionMs != nil && !approxEqual(*a.PositionMs, result.Final.PositionMs) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("position %vms", *a.PositionMs),
			Actual:   fmt.Sprintf("position %vms", result.Final.PositionMs),
		}
	}
	return nil
}
