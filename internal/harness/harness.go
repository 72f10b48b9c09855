package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/testutil"
)

// Epoch is the virtual wall-clock time every scenario starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// readyTimeout bounds how long the harness waits for the engine to observe
// source readiness. Readiness is signaled by goroutines, not the fake clock.
const readyTimeout = 2 * time.Second

// positionTolerance absorbs nanosecond rounding in ms <-> Duration conversion.
const positionTolerance = 1e-6

// Harness executes one scenario against a real engine driven by a fake clock.
type Harness struct {
	engine   *engine.Engine
	clock    *testutil.FakeClock
	sources  []*testutil.RecordingSource
	commands []ir.Command
	trace    *collector
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh engine, recording media sources and a fake
// clock, so runs are reproducible and golden traces stay stable.
//
// Execution flow:
//  1. Load the project and keep the enabled commands
//  2. Start the engine loop and wait for source readiness
//  3. Execute steps, checking each expect clause
//  4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	commands, err := scenarioCommands(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load commands: %w", err)
	}

	n := len(commands)
	if scenario.Sources != nil {
		n = *scenario.Sources
	}
	ready := scenario.SourcesReady == nil || *scenario.SourcesReady

	h := &Harness{
		clock:    testutil.NewFakeClock(Epoch),
		sources:  make([]*testutil.RecordingSource, n),
		commands: commands,
		trace:    &collector{},
	}
	srcs := make([]engine.Source, n)
	for i := range h.sources {
		h.sources[i] = testutil.NewRecordingSource(ready)
		srcs[i] = h.sources[i]
	}

	h.engine = engine.New(srcs,
		engine.WithClock(h.clock),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		engine.WithTracer(h.trace),
		engine.WithReadoutInterval(clock.Milliseconds(scenario.ReadoutMs)),
		engine.WithShowAllSources(scenario.ShowAllSources),
		engine.WithSessionIDGenerator(testutil.NewFixedSessionGenerator(scenario.SessionID)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.engine.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if ready {
		if err := h.waitReady(ctx); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.trace.setStep(i)
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	st, err := h.engine.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final status: %w", err)
	}
	result.Final = FinalState{State: st.State.String(), PositionMs: st.PositionMs}
	result.Trace = h.trace.events()
	for _, src := range h.sources {
		result.SourceCalls = append(result.SourceCalls, src.Calls())
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// scenarioCommands returns the enabled commands of the scenario's project.
// Inline commands go through the same loader as project files.
func scenarioCommands(s *Scenario) ([]ir.Command, error) {
	var project *ir.Project
	var err error
	if s.Project != "" {
		project, err = compiler.LoadProject(s.Project)
	} else {
		var data []byte
		data, err = yaml.Marshal(map[string]any{"commands": s.Commands})
		if err != nil {
			return nil, err
		}
		project, err = compiler.ParseProject(s.Name+".yaml", data)
	}
	if err != nil {
		return nil, err
	}
	return project.EnabledCommands(), nil
}

func (h *Harness) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(readyTimeout)
	for {
		st, err := h.engine.Status(ctx)
		if err != nil {
			return err
		}
		if st.Ready {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("media sources not ready after %v", readyTimeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// settle waits until the loop has processed everything queued so far.
func (h *Harness) settle(ctx context.Context) {
	_, _ = h.engine.Status(ctx)
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var out *engine.Outcome
	var err error

	switch step.Op() {
	case OpStart:
		o, serr := h.engine.Start(ctx, engine.StartRequest{
			ResumeFromMs: step.Start.ResumeMs,
			Commands:     h.commands,
			EndMs:        step.Start.EndMs,
		})
		out, err = &o, serr
		if err == nil {
			if o.Guard != nil {
				result.Guards = append(result.Guards, fmt.Sprintf("steps[%d]: %s", i, o.Guard.Code))
			}
			for _, w := range o.Warnings {
				result.Guards = append(result.Guards, fmt.Sprintf("steps[%d]: %s", i, w.Code))
			}
		}
	case OpPause:
		err = h.engine.Pause(ctx)
	case OpStop:
		err = h.engine.Stop(ctx)
	case OpSeek:
		err = h.engine.Seek(ctx, *step.SeekMs)
	case OpRewind:
		err = h.engine.Rewind(ctx, *step.RewindMs)
	case OpFastForward:
		err = h.engine.FastForward(ctx, *step.FastForwardMs)
	case OpAdvance:
		h.clock.AdvanceWith(clock.Milliseconds(*step.AdvanceMs), func() { h.settle(ctx) })
	case OpReady:
		for _, src := range h.sources {
			src.MarkReady()
		}
		err = h.waitReady(ctx)
	default:
		return fmt.Errorf("invalid step: operations %v", step.Ops())
	}
	if err != nil {
		return err
	}

	if step.Expect == nil {
		return nil
	}
	st, err := h.engine.Status(ctx)
	if err != nil {
		return err
	}
	for _, msg := range checkExpect(step.Expect, out, st) {
		result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
	}
	return nil
}

// checkExpect compares the clause with the start outcome (nil for other
// steps) and the engine status.
func checkExpect(e *ExpectClause, out *engine.Outcome, st engine.Status) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expected %s %v, got %v", field, want, got))
	}

	if out != nil {
		if e.Started != nil && *e.Started != out.Started {
			mismatch("started", *e.Started, out.Started)
		}
		if e.Guard != "" {
			got := ""
			if out.Guard != nil {
				got = string(out.Guard.Code)
			}
			if got != e.Guard {
				mismatch("guard", e.Guard, got)
			}
		}
		if e.Restarted != nil && *e.Restarted != out.Restarted {
			mismatch("restarted", *e.Restarted, out.Restarted)
		}
		if e.Warnings != nil {
			got := make([]string, len(out.Warnings))
			for i, w := range out.Warnings {
				got[i] = string(w.Code)
			}
			if !slices.Equal(got, e.Warnings) {
				mismatch("warnings", e.Warnings, got)
			}
		}
	}

	if e.State != "" && e.State != st.State.String() {
		mismatch("state", e.State, st.State.String())
	}
	if e.PositionMs != nil && !approxEqual(*e.PositionMs, st.PositionMs) {
		mismatch("position_ms", *e.PositionMs, st.PositionMs)
	}
	if e.FrameStart != nil && !approxEqual(*e.FrameStart, st.FrameStart) {
		mismatch("frame_start", *e.FrameStart, st.FrameStart)
	}
	return errs
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= positionTolerance
}

// collector is an engine.Tracer that tags each event with the step that
// produced it.
type collector struct {
	mu    sync.Mutex
	step  int
	trace []TraceEvent
}

func (c *collector) setStep(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = i
}

func (c *collector) SessionStarted(engine.Session) {}

func (c *collector) Dispatched(d engine.Dispatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	visible := d.Visible
	c.trace = append(c.trace, TraceEvent{
		Type:       "dispatch",
		Seq:        d.Seq,
		Step:       c.step,
		FrameStart: d.FrameStart,
		OffsetMs:   d.OffsetMs,
		Visible:    &visible,
		Terminal:   d.Terminal,
	})
}

func (c *collector) Transitioned(t engine.Transition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, TraceEvent{
		Type:       "transition",
		Seq:        t.Seq,
		Step:       c.step,
		From:       t.From.String(),
		To:         t.To.String(),
		Reason:     t.Reason,
		PositionMs: t.PositionMs,
	})
}

func (c *collector) events() []TraceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.trace)
}
