package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
)

// Recorder persists an engine's trace. It implements engine.Tracer.
//
// The engine calls the tracer synchronously from its loop goroutine, so
// every write lands before the next frame is dispatched. Write failures are
// logged and the first one is kept for Err; playback never stops because a
// recording failed.
type Recorder struct {
	ctx    context.Context
	store  *Store
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

var _ engine.Tracer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to s. ctx bounds every write.
func NewRecorder(ctx context.Context, s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ctx: ctx, store: s, logger: logger}
}

// SessionStarted records a new session.
func (r *Recorder) SessionStarted(sess engine.Session) {
	r.record("session", sess.ID, r.store.WriteSession(r.ctx, sess))
}

// Dispatched records a frame dispatch.
func (r *Recorder) Dispatched(d engine.Dispatch) {
	r.record("dispatch", d.SessionID, r.store.WriteDispatch(r.ctx, d))
}

// Transitioned records a state change.
func (r *Recorder) Transitioned(t engine.Transition) {
	r.record("transition", t.SessionID, r.store.WriteTransition(r.ctx, t))
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(kind, sessionID string, err error) {
	if err == nil {
		return
	}
	r.logger.Error("recording failed", "kind", kind, "session_id", sessionID, "error", err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
