package testutil

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// RecordingSource is a media source that records every transport call.
//
// Calls are recorded as short strings: "seek(1.5)", "play", "pause",
// "volume(80)", "rate(2)", "visible(true)".
//
// Thread-safety: safe for concurrent use; the engine calls it from its loop
// goroutine while tests read it.
type RecordingSource struct {
	mu        sync.Mutex
	calls     []string
	playing   bool
	visible   bool
	seekSec   float64
	volume    int
	rate      float64
	ready     chan struct{}
	readyOnce sync.Once
}

// NewRecordingSource creates a source. When ready is true its readiness
// channel is already closed.
func NewRecordingSource(ready bool) *RecordingSource {
	s := &RecordingSource{ready: make(chan struct{}), rate: 1}
	if ready {
		s.MarkReady()
	}
	return s
}

// NewRecordingSources creates n ready sources.
func NewRecordingSources(n int) []*RecordingSource {
	out := make([]*RecordingSource, n)
	for i := range out {
		out[i] = NewRecordingSource(true)
	}
	return out
}

// MarkReady closes the readiness channel. Safe to call more than once.
func (s *RecordingSource) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *RecordingSource) Ready() <-chan struct{} { return s.ready }

func (s *RecordingSource) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekSec = seconds
	s.calls = append(s.calls, "seek("+strconv.FormatFloat(seconds, 'f', -1, 64)+")")
}

func (s *RecordingSource) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.calls = append(s.calls, "play")
}

func (s *RecordingSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.calls = append(s.calls, "pause")
}

func (s *RecordingSource) SetVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	s.calls = append(s.calls, fmt.Sprintf("volume(%d)", v))
}

func (s *RecordingSource) SetPlaybackRate(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = r
	s.calls = append(s.calls, "rate("+strconv.FormatFloat(r, 'f', -1, 64)+")")
}

func (s *RecordingSource) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	s.calls = append(s.calls, "visible("+strconv.FormatBool(visible)+")")
}

// Calls returns a copy of the recorded calls.
func (s *RecordingSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Count returns how many times call was recorded.
func (s *RecordingSource) Count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps transport state.
func (s *RecordingSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Playing reports the transport state after the last Play/Pause.
func (s *RecordingSource) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Visible reports the last SetVisible value.
func (s *RecordingSource) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// LastSeek returns the last Seek argument in seconds.
func (s *RecordingSource) LastSeek() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekSec
}

// Volume returns the last SetVolume value.
func (s *RecordingSource) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Rate returns the last SetPlaybackRate value.
func (s *RecordingSource) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// RecordingOverlay records every overlay update.
type RecordingOverlay struct {
	mu      sync.Mutex
	updates []*ir.Overlay
}

func (r *RecordingOverlay) Update(o *ir.Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, o.Clone())
}

// Updates returns the recorded overlays; nil entries are clears.
func (r *RecordingOverlay) Updates() []*ir.Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.updates)
}

// Last returns the most recent overlay and whether any update happened.
func (r *RecordingOverlay) Last() (*ir.Overlay, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil, false
	}
	return r.updates[len(r.updates)-1], true
}

// RecordingBackdrop records black-backdrop visibility changes.
type RecordingBackdrop struct {
	mu      sync.Mutex
	history []bool
}

func (b *RecordingBackdrop) SetVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, visible)
}

// History returns every SetVisible value in order.
func (b *RecordingBackdrop) History() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.history)
}

// Visible returns the last SetVisible value (false if never set).
func (b *RecordingBackdrop) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history) > 0 && b.history[len(b.history)-1]
}

// RecordingSink records position readouts.
type RecordingSink struct {
	mu        sync.Mutex
	positions []float64
}

func (s *RecordingSink) Position(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, ms)
}

// Positions returns every reported position in order.
func (s *RecordingSink) Positions() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.positions)
}

// RecordingNotifier records host notifications as "CODE: message".
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *RecordingNotifier) Notify(code, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, code+": "+message)
}

// Messages returns the recorded notifications.
func (n *RecordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.messages)
}
