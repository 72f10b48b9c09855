package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// DefaultReadoutInterval is how often the position readout fires while
// playing.
const DefaultReadoutInterval = 100 * time.Millisecond

// Engine is the single-writer playback state machine.
//
// CRITICAL: All playback state is owned by the Run loop goroutine. Host
// calls are enqueued and block until the loop has executed them.
//
// Thread-safety model:
//   - Start/Pause/Stop/Seek/Rewind/FastForward/Status: safe from any goroutine
//   - IsPlaying/CurrentPosition: lock-free reads of a published snapshot
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	sources         []Source
	clock           clock.Clock
	logger          *slog.Logger
	overlay         OverlayRenderer
	backdrop        Backdrop
	sink            PositionSink
	notifier        Notifier
	tracer          Tracer
	sessionIDs      SessionIDGenerator
	seq             *Sequence
	metrics         *metrics
	readoutInterval time.Duration
	showAll         bool
	queue           *eventQueue

	// Loop-owned state.
	ready         bool
	state         State
	session       Session
	plan          ir.Plan
	commands      []ir.Command
	frame         int
	anchorTime    time.Time
	anchorOffset  float64
	positionMs    float64 // Stored position while paused or stopped
	resumeMs      float64
	firstDispatch bool
	playing       []bool // Per-source transport state as last commanded
	gen           uint64 // Bumped on every timer cancellation
	frameTimer    clock.Timer
	readoutTimer  clock.Timer

	snapMu sync.RWMutex
	snap   snapshot
}

// snapshot is the state published for lock-free readers.
type snapshot struct {
	state        State
	anchorTime   time.Time
	anchorOffset float64
	positionMs   float64
	endMs        float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Default: clock.RealClock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithBackdrop sets the black backdrop shown when no source is visible.
func WithBackdrop(b Backdrop) Option {
	return func(e *Engine) { e.backdrop = b }
}

// WithOverlayRenderer sets the overlay renderer.
func WithOverlayRenderer(r OverlayRenderer) Option {
	return func(e *Engine) { e.overlay = r }
}

// WithPositionSink sets the receiver of position readouts.
func WithPositionSink(s PositionSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithNotifier sets the receiver of guard notifications.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithTracer sets the playback tracer (e.g. a store.Recorder).
func WithTracer(t Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithReadoutInterval sets the position readout period.
//
// Default: 100ms (DefaultReadoutInterval). Zero disables the readout.
func WithReadoutInterval(d time.Duration) Option {
	return func(e *Engine) { e.readoutInterval = d }
}

// WithShowAllSources keeps every source visible, for diagnosing layouts.
// Transport commands are unaffected.
func WithShowAllSources(on bool) Option {
	return func(e *Engine) { e.showAll = on }
}

// WithSessionIDGenerator sets the session ID generator.
// Default: UUIDv7Generator.
func WithSessionIDGenerator(g SessionIDGenerator) Option {
	return func(e *Engine) { e.sessionIDs = g }
}

// WithSequence continues trace numbering from an existing sequence.
func WithSequence(s *Sequence) Option {
	return func(e *Engine) { e.seq = s }
}

// New creates an Engine driving sources, one per command index.
//
// The sources slice is copied; the handles themselves stay owned by the
// caller. Run must be called before host calls can complete.
func New(sources []Source, opts ...Option) *Engine {
	e := &Engine{
		sources:         append([]Source(nil), sources...),
		clock:           clock.RealClock{},
		logger:          slog.Default(),
		overlay:         nopOverlay{},
		backdrop:        nopBackdrop{},
		sink:            nopSink{},
		notifier:        nopNotifier{},
		tracer:          nopTracer{},
		sessionIDs:      UUIDv7Generator{},
		seq:             NewSequence(),
		readoutInterval: DefaultReadoutInterval,
		queue:           newEventQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	m, err := newMetrics(meter())
	if err != nil {
		e.logger.Warn("metrics disabled", "error", err)
		m = noopMetrics()
	}
	e.metrics = m
	e.playing = make([]bool, len(e.sources))
	e.frame = -1
	return e
}

// StartRequest is the input of Start.
type StartRequest struct {
	// ResumeFromMs is where playback begins. Nil resumes from the stored
	// position (0 after Stop, the pause point after Pause).
	ResumeFromMs *float64

	// Commands are the enabled commands in precedence order. Index i drives
	// source i.
	Commands []ir.Command

	// EndMs, when set, ends playback early at that master-timeline time.
	// Values outside (0, plan end), NaN included, are ignored and the whole
	// plan plays.
	EndMs *float64
}

// Outcome reports what a Start request did.
type Outcome struct {
	Started       bool
	Guard         *GuardError   // Why the request was ignored; nil when started
	Warnings      []*GuardError // Adjustments made to a started session
	SessionID     string
	ResumedFromMs float64
	Restarted     bool  // The resume target was invalid and clamped to 0
	Skipped       []int // Degenerate command indices left out of the plan
}

// Err returns the guard as an error, or nil when playback started.
func (o Outcome) Err() error {
	if o.Guard == nil {
		return nil
	}
	return o.Guard
}

// Status is a consistent view of the loop-owned state.
type Status struct {
	State      State
	PositionMs float64
	Ready      bool
	SessionID  string
	FrameStart float64
	PlanEndMs  float64
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Shutdown() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine. Every source command,
// timer and state change happens in this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "sources", len(e.sources))

	readyCtx, cancelReady := context.WithCancel(ctx)
	defer cancelReady()
	go e.awaitReady(readyCtx)

	defer e.shutdown()

	for {
		ev, ok := e.queue.pop()
		if ok {
			e.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			return ctx.Err()

		case <-e.queue.ready():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if e.queue.isClosed() && e.queue.len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Shutdown stops the Run loop. Pending and later host calls return
// ErrEngineStopped. Media sources are left as they are.
func (e *Engine) Shutdown() {
	release(e.queue.drain())
}

func (e *Engine) shutdown() {
	release(e.queue.drain())
	e.cancelTimers()
}

// release fails host calls that will never run.
func release(events []event) {
	for _, ev := range events {
		if ev.kind == eventCall {
			ev.done <- ErrEngineStopped
		}
	}
}

// do runs fn on the loop goroutine and waits for its result.
// If ctx ends first, do returns ctx.Err() but fn may still run later.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if !e.queue.push(event{kind: eventCall, call: fn, done: done}) {
		return ErrEngineStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// process routes an event to its handler.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(ev event) {
	switch ev.kind {
	case eventCall:
		ev.done <- ev.call()

	case eventFrameDue:
		if ev.gen != e.gen || e.state != Playing {
			e.logger.Debug("stale frame timer ignored", "gen", ev.gen, "current_gen", e.gen)
			return
		}
		e.frameTimer = nil
		e.advance(ev.frame)

	case eventReadoutTick:
		if ev.gen != e.gen || e.state != Playing {
			return
		}
		e.sink.Position(e.livePosition())
		e.armReadout()

	case eventSourcesReady:
		e.ready = true
		e.logger.Info("media sources ready", "sources", len(e.sources))

	default:
		e.logger.Error("unknown event kind", "kind", ev.kind)
	}
}

// Start compiles commands and begins playback.
//
// Guard conditions (sources not ready, empty plan, already playing) make
// the request a no-op reported in Outcome.Guard; they are never returned as
// errors. The error is non-nil only if the engine is stopped or ctx ends.
func (e *Engine) Start(ctx context.Context, req StartRequest) (Outcome, error) {
	var out Outcome
	if err := e.do(ctx, func() error {
		out = e.start(req)
		return nil
	}); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// Pause records the current position and pauses every playing source.
// No-op unless playing.
func (e *Engine) Pause(ctx context.Context) error {
	return e.do(ctx, func() error {
		e.pause("pause")
		return nil
	})
}

// Stop pauses and hides every source, shows the backdrop and resets the
// stored position to 0. Idempotent.
func (e *Engine) Stop(ctx context.Context) error {
	return e.do(ctx, func() error {
		e.stop()
		return nil
	})
}

// Seek moves playback to ms. While playing it restarts the session at ms
// with the same commands; otherwise it only stores the position.
func (e *Engine) Seek(ctx context.Context, ms float64) error {
	return e.do(ctx, func() error {
		e.seek(ms)
		return nil
	})
}

// Rewind seeks deltaMs back from the current position, floored at 0.
func (e *Engine) Rewind(ctx context.Context, deltaMs float64) error {
	return e.do(ctx, func() error {
		e.seek(e.livePosition() - deltaMs)
		return nil
	})
}

// FastForward seeks deltaMs ahead of the current position.
func (e *Engine) FastForward(ctx context.Context, deltaMs float64) error {
	return e.do(ctx, func() error {
		e.seek(e.livePosition() + deltaMs)
		return nil
	})
}

// Status returns a snapshot taken on the loop goroutine. Because calls are
// processed in order, Status also waits for every previously queued event.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := e.do(ctx, func() error {
		st = Status{
			State:      e.state,
			PositionMs: e.livePosition(),
			Ready:      e.ready,
			SessionID:  e.session.ID,
			PlanEndMs:  e.plan.End(),
		}
		if e.frame >= 0 && e.frame < len(e.plan.Actions) {
			st.FrameStart = e.plan.Actions[e.frame].Start
		}
		return nil
	}); err != nil {
		return Status{}, err
	}
	return st, nil
}

// IsPlaying reports whether the engine is playing.
func (e *Engine) IsPlaying() bool {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.state == Playing
}

// CurrentPosition returns the master-timeline position in ms: extrapolated
// from the frame anchor while playing, the stored position otherwise.
func (e *Engine) CurrentPosition() float64 {
	e.snapMu.RLock()
	s := e.snap
	e.snapMu.RUnlock()

	if s.state != Playing {
		return s.positionMs
	}
	return min(s.anchorOffset+clock.SinceMs(e.clock.Now(), s.anchorTime), s.endMs)
}

// TotalDuration returns the playable length of commands, audio tails
// included.
func (e *Engine) TotalDuration(commands []ir.Command) float64 {
	return compiler.TotalDuration(commands)
}

// livePosition is CurrentPosition computed from loop-owned state.
func (e *Engine) livePosition() float64 {
	if e.state != Playing {
		return e.positionMs
	}
	return min(e.anchorOffset+clock.SinceMs(e.clock.Now(), e.anchorTime), e.plan.End())
}

// publish makes the loop-owned state visible to lock-free readers.
func (e *Engine) publish() {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	e.snap = snapshot{
		state:        e.state,
		anchorTime:   e.anchorTime,
		anchorOffset: e.anchorOffset,
		positionMs:   e.positionMs,
		endMs:        e.plan.End(),
	}
}

func (e *Engine) transition(to State, reason string, positionMs float64) {
	from := e.state
	e.state = to
	e.tracer.Transitioned(Transition{
		SessionID:  e.session.ID,
		Seq:        e.seq.Next(),
		At:         e.clock.Now(),
		From:       from,
		To:         to,
		Reason:     reason,
		PositionMs: positionMs,
	})
	e.metrics.transitioned(to, reason)
	e.logger.Debug("state transition",
		"session_id", e.session.ID,
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
		"position_ms", positionMs,
	)
}

// cancelTimers stops the frame timer and the readout together. Events from
// timers already in flight carry the old generation and are ignored.
func (e *Engine) cancelTimers() {
	e.gen++
	if e.frameTimer != nil {
		e.frameTimer.Stop()
		e.frameTimer = nil
	}
	if e.readoutTimer != nil {
		e.readoutTimer.Stop()
		e.readoutTimer = nil
	}
}

func (e *Engine) armFrame(wait float64, next int) {
	gen := e.gen
	e.frameTimer = e.clock.AfterFunc(clock.Milliseconds(wait), func() {
		e.queue.push(event{kind: eventFrameDue, gen: gen, frame: next})
	})
}

func (e *Engine) armReadout() {
	if e.readoutInterval <= 0 {
		return
	}
	gen := e.gen
	e.readoutTimer = e.clock.AfterFunc(e.readoutInterval, func() {
		e.queue.push(event{kind: eventReadoutTick, gen: gen})
	})
}
