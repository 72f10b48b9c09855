package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/config"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/store"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/testutil"
)

// simulationEpoch is the virtual wall-clock time simulations start at.
var simulationEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// readyTimeout bounds the wait for the engine to observe source readiness.
const readyTimeout = 2 * time.Second

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	ResumeMs  *float64
	EndMs     *float64
	SessionID string // fixed session ID; empty generates a UUIDv7
}

// SimEvent is one line of a simulated timeline.
type SimEvent struct {
	Seq        int64    `json:"seq"`
	AtMs       float64  `json:"at_ms"` // Virtual time since the simulation began
	Type       string   `json:"type"`  // "dispatch" or "transition"
	FrameStart *float64 `json:"frame_start,omitempty"`
	OffsetMs   *float64 `json:"offset_ms,omitempty"`
	Visible    *int     `json:"visible,omitempty"`
	Terminal   bool     `json:"terminal,omitempty"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	PositionMs *float64 `json:"position_ms,omitempty"`
}

// SimulationResult is the JSON payload of the simulate command.
type SimulationResult struct {
	Started         bool       `json:"started"`
	Guard           string     `json:"guard,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	ResumedFromMs   float64    `json:"resumed_from_ms"`
	Restarted       bool       `json:"restarted,omitempty"`
	Skipped         []int      `json:"skipped,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	PlanEndMs       float64    `json:"plan_end_ms"`
	Events          []SimEvent `json:"events"`
	SourceCalls     [][]string `json:"source_calls"`
	Readouts        int        `json:"readouts"`
	FinalState      string     `json:"final_state"`
	FinalPositionMs float64    `json:"final_position_ms"`
	Database        string     `json:"database,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}
	var resumeMs, endMs float64

	cmd := &cobra.Command{
		Use:   "simulate <project>",
		Short: "Play a project against a virtual clock",
		Long: `Compile a project and play it to the end with the playback engine,
using recording media sources and a virtual clock. Prints every frame
dispatch and state transition.

With --db the session is recorded to a SQLite database for trace and verify.

Exit codes:
  0 - Playback ran to the end
  1 - Playback did not start (empty plan, sources not ready)
  2 - Command error (invalid project, database error, etc.)

Examples:
  vidsheet simulate ./project.cue
  vidsheet simulate ./project.cue --resume-ms 2500 --end-ms 8000
  vidsheet simulate ./project.cue --db ./vidsheet.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("resume-ms") {
				opts.ResumeMs = &resumeMs
			}
			if cmd.Flags().Changed("end-ms") {
				opts.EndMs = &endMs
			}
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&resumeMs, "resume-ms", 0, "start playback at this master-timeline time")
	cmd.Flags().Float64Var(&endMs, "end-ms", 0, "end playback early at this master-timeline time")
	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "use a fixed session ID")
	cmd.Flags().Float64("readout-ms", 100, "position readout period in ms (0 disables)")
	cmd.Flags().Bool("show-all", false, "keep every source visible (debug layout)")
	cmd.Flags().String("db", "", "record the session to this SQLite database")

	v := rootOpts.Viper()
	_ = v.BindPFlag(config.KeyReadoutMs, cmd.Flags().Lookup("readout-ms"))
	_ = v.BindPFlag(config.KeyShowAllSources, cmd.Flags().Lookup("show-all"))
	_ = v.BindPFlag(config.KeyDB, cmd.Flags().Lookup("db"))

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	cfg, err := opts.Settings()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := opts.Logger()

	project, err := LoadProject(path)
	if err != nil {
		return outputCommandError(f, loadErrorOf(err))
	}
	commands := project.EnabledCommands()
	f.VerboseLog("Simulating %d enabled command(s) from %s", len(commands), path)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	virtual := testutil.NewFakeClock(simulationEpoch)
	sources := testutil.NewRecordingSources(len(commands))
	srcs := make([]engine.Source, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}
	timeline := &timelineTracer{epoch: simulationEpoch}
	sink := &testutil.RecordingSink{}

	engineOpts := []engine.Option{
		engine.WithClock(virtual),
		engine.WithLogger(logger),
		engine.WithPositionSink(sink),
		engine.WithReadoutInterval(cfg.ReadoutInterval()),
		engine.WithShowAllSources(cfg.ShowAllSources),
	}
	if opts.SessionID != "" {
		engineOpts = append(engineOpts, engine.WithSessionIDGenerator(testutil.NewFixedSessionGenerator(opts.SessionID)))
	}

	var recorder *store.Recorder
	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return outputCommandError(f, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open database: %v", err)})
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.GetLastSeq(ctx)
		if err != nil {
			return outputCommandError(f, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to read sequence: %v", err)})
		}
		recorder = store.NewRecorder(ctx, st, logger)
		engineOpts = append(engineOpts,
			engine.WithTracer(teeTracer{timeline, recorder}),
			engine.WithSequence(engine.NewSequenceAt(last)),
		)
	} else {
		engineOpts = append(engineOpts, engine.WithTracer(timeline))
	}

	eng := engine.New(srcs, engineOpts...)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := waitEngineReady(runCtx, eng); err != nil {
		return WrapExitError(ExitCommandError, "engine not ready", err)
	}

	out, err := eng.Start(runCtx, engine.StartRequest{
		ResumeFromMs: opts.ResumeMs,
		Commands:     commands,
		EndMs:        opts.EndMs,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "start failed", err)
	}

	result := SimulationResult{
		Started:       out.Started,
		SessionID:     out.SessionID,
		ResumedFromMs: out.ResumedFromMs,
		Restarted:     out.Restarted,
		Skipped:       out.Skipped,
		Database:      cfg.DB,
	}
	if out.Guard != nil {
		result.Guard = string(out.Guard.Code)
	}
	for _, w := range out.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}

	if out.Started {
		st, err := eng.Status(runCtx)
		if err != nil {
			return WrapExitError(ExitCommandError, "status failed", err)
		}
		result.PlanEndMs = st.PlanEndMs
		// Run one millisecond past the end so the sentinel frame fires.
		remaining := clock.Milliseconds(st.PlanEndMs-out.ResumedFromMs) + time.Millisecond
		virtual.AdvanceWith(remaining, func() { _, _ = eng.Status(runCtx) })
	}

	final, err := eng.Status(runCtx)
	if err != nil {
		return WrapExitError(ExitCommandError, "status failed", err)
	}
	result.FinalState = final.State.String()
	result.FinalPositionMs = final.PositionMs
	result.Events = timeline.events()
	result.Readouts = len(sink.Positions())
	for _, s := range sources {
		result.SourceCalls = append(result.SourceCalls, s.Calls())
	}

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return outputCommandError(f, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("recording failed: %v", err)})
		}
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		outputSimulationText(f, result)
	}

	if !result.Started {
		return NewExitError(ExitFailure, fmt.Sprintf("playback did not start: %s", result.Guard))
	}
	return nil
}

// waitEngineReady polls the engine until it has observed source readiness.
func waitEngineReady(ctx context.Context, eng *engine.Engine) error {
	deadline := time.Now().Add(readyTimeout)
	for {
		st, err := eng.Status(ctx)
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

func outputSimulationText(f *OutputFormatter, result SimulationResult) {
	if !result.Started {
		f.Check(false, "Playback did not start: %s", result.Guard)
		return
	}

	f.Header(fmt.Sprintf("Session %s", result.SessionID))
	for _, w := range result.Warnings {
		f.Warn("%s", w)
	}
	for _, ev := range result.Events {
		fmt.Fprintf(f.Writer, "[%d] %8.1fms  %s\n", ev.Seq, ev.AtMs, describeSimEvent(ev))
	}
	fmt.Fprintln(f.Writer)
	f.Check(result.FinalState == engine.Stopped.String(),
		"%s at %vms after %d event(s)", result.FinalState, result.FinalPositionMs, len(result.Events))
	f.Dim("%d position readout(s)", result.Readouts)
	if result.Database != "" {
		f.Dim("recorded to %s", result.Database)
	}
}

func describeSimEvent(ev SimEvent) string {
	if ev.Type == "transition" {
		return fmt.Sprintf("%s -> %s (%s at %vms)", ev.From, ev.To, ev.Reason, *ev.PositionMs)
	}
	if ev.Terminal {
		return fmt.Sprintf("frame %vms end", *ev.FrameStart)
	}
	visible := "black"
	if ev.Visible != nil {
		visible = commandLabel(*ev.Visible)
	}
	return fmt.Sprintf("frame %vms from %vms show %s", *ev.FrameStart, *ev.OffsetMs, visible)
}

// timelineTracer collects engine events for printing.
type timelineTracer struct {
	epoch time.Time

	mu  sync.Mutex
	evs []SimEvent
}

func (t *timelineTracer) SessionStarted(engine.Session) {}

func (t *timelineTracer) Dispatched(d engine.Dispatch) {
	ev := SimEvent{
		Seq:        d.Seq,
		AtMs:       clock.SinceMs(d.At, t.epoch),
		Type:       "dispatch",
		FrameStart: &d.FrameStart,
		OffsetMs:   &d.OffsetMs,
		Terminal:   d.Terminal,
	}
	if !d.Terminal && d.Visible != ir.NoCommand {
		v := d.Visible
		ev.Visible = &v
	}
	t.append(ev)
}

func (t *timelineTracer) Transitioned(tr engine.Transition) {
	t.append(SimEvent{
		Seq:        tr.Seq,
		AtMs:       clock.SinceMs(tr.At, t.epoch),
		Type:       "transition",
		From:       tr.From.String(),
		To:         tr.To.String(),
		Reason:     tr.Reason,
		PositionMs: &tr.PositionMs,
	})
}

func (t *timelineTracer) append(ev SimEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evs = append(t.evs, ev)
}

func (t *timelineTracer) events() []SimEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SimEvent, len(t.evs))
	copy(out, t.evs)
	return out
}

// teeTracer forwards every event to each tracer in order.
type teeTracer []engine.Tracer

func (t teeTracer) SessionStarted(s engine.Session) {
	for _, tr := range t {
		tr.SessionStarted(s)
	}
}

func (t teeTracer) Dispatched(d engine.Dispatch) {
	for _, tr := range t {
		tr.Dispatched(d)
	}
}

func (t teeTracer) Transitioned(tr engine.Transition) {
	for _, x := range t {
		x.Transitioned(tr)
	}
}
