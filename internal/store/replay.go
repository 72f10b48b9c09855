package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// TraceEvent is a single record of a session (dispatch or transition).
type TraceEvent struct {
	Type       TraceEventType
	Seq        int64
	Dispatch   *engine.Dispatch
	Transition *engine.Transition
}

// TraceEventType distinguishes between dispatches and transitions.
type TraceEventType int

const (
	EventTransition TraceEventType = iota
	EventDispatch
)

// String returns the event type as a string.
func (t TraceEventType) String() string {
	switch t {
	case EventTransition:
		return "transition"
	case EventDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// ReplaySession returns all records of a session as one stream in seq
// order. This is what `vidsheet trace` prints.
func (s *Store) ReplaySession(ctx context.Context, sessionID string) ([]TraceEvent, error) {
	dispatches, err := s.ReadDispatches(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay session: %w", err)
	}
	transitions, err := s.ReadTransitions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay session: %w", err)
	}

	events := make([]TraceEvent, 0, len(dispatches)+len(transitions))
	for i := range dispatches {
		events = append(events, TraceEvent{
			Type:     EventDispatch,
			Seq:      dispatches[i].Seq,
			Dispatch: &dispatches[i],
		})
	}
	for i := range transitions {
		events = append(events, TraceEvent{
			Type:       EventTransition,
			Seq:        transitions[i].Seq,
			Transition: &transitions[i],
		})
	}

	// Seq is unique across both tables, so this order is total.
	slices.SortFunc(events, func(a, b TraceEvent) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	return events, nil
}

// GetLastSeq returns the highest seq number used in the store.
// Engines writing to an existing database continue numbering after it
// (engine.WithSequence(engine.NewSequenceAt(last))).
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var dispatchSeq, transitionSeq int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM dispatches
	`).Scan(&dispatchSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from dispatches: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM transitions
	`).Scan(&transitionSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from transitions: %w", err)
	}

	return max(dispatchSeq, transitionSeq), nil
}

// ListSessionIDs returns all session IDs in recording order.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session ids: %w", err)
	}

	return ids, nil
}

// Verification is the result of recompiling a recorded session.
type Verification struct {
	SessionID      string
	StoredHash     string
	RecomputedHash string
	Mismatches     []string
}

// OK reports whether the recording matches a fresh compile.
func (v Verification) OK() bool {
	return len(v.Mismatches) == 0
}

// VerifySession recompiles the stored commands and checks that the stored
// plan, its hash and every recorded dispatch agree with the result. A
// mismatch means the compiler changed since the session was recorded, or
// the recording is corrupt.
func (s *Store) VerifySession(ctx context.Context, sessionID string) (Verification, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return Verification{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}
	dispatches, err := s.ReadDispatches(ctx, sessionID)
	if err != nil {
		return Verification{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}

	plan := compiler.CompileRange(sess.Commands, sess.EndMs)
	hash, err := ir.PlanHash(plan)
	if err != nil {
		return Verification{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}

	v := Verification{
		SessionID:      sessionID,
		StoredHash:     sess.PlanHash,
		RecomputedHash: hash,
	}
	if hash != sess.PlanHash {
		v.Mismatches = append(v.Mismatches,
			fmt.Sprintf("plan hash %s, recompiled %s", sess.PlanHash, hash))
	}
	if stored, err := ir.PlanHash(sess.Plan); err != nil || stored != sess.PlanHash {
		v.Mismatches = append(v.Mismatches, "stored plan does not match its hash")
	}

	for _, d := range dispatches {
		if d.FrameIndex < 0 || d.FrameIndex >= len(plan.Actions) {
			v.Mismatches = append(v.Mismatches,
				fmt.Sprintf("seq %d: frame index %d outside plan", d.Seq, d.FrameIndex))
			continue
		}
		if start := plan.Actions[d.FrameIndex].Start; start != d.FrameStart {
			v.Mismatches = append(v.Mismatches,
				fmt.Sprintf("seq %d: frame start %v, plan has %v", d.Seq, d.FrameStart, start))
		}
		if want := plan.Visible(d.FrameIndex); !d.Terminal && want != d.Visible {
			v.Mismatches = append(v.Mismatches,
				fmt.Sprintf("seq %d: visible %d, plan has %d", d.Seq, d.Visible, want))
		}
	}

	return v, nil
}
