package engine

import "github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"

// Source is a media player handle for one command index.
//
// Handles are long-lived and owned by the host; the engine is the sole
// writer of their transport state while it runs. Methods are called only
// from the engine's loop goroutine.
type Source interface {
	Seek(seconds float64)
	Play()
	Pause()
	SetVolume(v int) // 0-100
	SetPlaybackRate(rate float64)
	SetVisible(visible bool)

	// Ready is closed once the source can accept transport commands.
	Ready() <-chan struct{}
}

// OverlayRenderer draws the visible command's overlay. Update(nil) clears it.
type OverlayRenderer interface {
	Update(o *ir.Overlay)
}

// Backdrop is the black surface shown when no source is visible.
type Backdrop interface {
	SetVisible(visible bool)
}

// PositionSink receives the periodic position readout (ms).
type PositionSink interface {
	Position(ms float64)
}

// Notifier surfaces guard conditions to the user.
type Notifier interface {
	Notify(code, message string)
}

// Tracer observes playback for recording and diagnostics.
// Called synchronously from the loop goroutine; implementations must not
// call back into the engine.
type Tracer interface {
	SessionStarted(s Session)
	Dispatched(d Dispatch)
	Transitioned(t Transition)
}

type nopOverlay struct{}

func (nopOverlay) Update(*ir.Overlay) {}

type nopBackdrop struct{}

func (nopBackdrop) SetVisible(bool) {}

type nopSink struct{}

func (nopSink) Position(float64) {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

type nopTracer struct{}

func (nopTracer) SessionStarted(Session)  {}
func (nopTracer) Dispatched(Dispatch)     {}
func (nopTracer) Transitioned(Transition) {}
