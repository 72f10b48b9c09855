package store

import (
	"context"
	"fmt"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// WriteSession inserts a session record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// The session's commands and plan are serialized to canonical JSON so the
// plan hash can be recomputed from the stored row.
func (s *Store) WriteSession(ctx context.Context, sess engine.Session) error {
	commandsJSON, err := marshalCommands(sess.Commands)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	planJSON, err := marshalPlan(sess.Plan)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	var endMs any
	if sess.EndMs != nil {
		endMs = *sess.EndMs
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, started_at, resume_ms, end_ms, restarted, commands, plan, plan_hash, plan_version, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		formatTime(sess.StartedAt),
		sess.ResumeMs,
		endMs,
		boolToInt(sess.Restarted),
		commandsJSON,
		planJSON,
		sess.PlanHash,
		ir.PlanVersion,
		ir.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	return nil
}

// WriteDispatch inserts a dispatch record into the store.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteDispatch(ctx context.Context, d engine.Dispatch) error {
	actionsJSON, err := marshalActions(d.Actions)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(seq, session_id, at, frame_index, frame_start, offset_ms, visible, actions, terminal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		d.Seq,
		d.SessionID,
		formatTime(d.At),
		d.FrameIndex,
		d.FrameStart,
		d.OffsetMs,
		d.Visible,
		actionsJSON,
		boolToInt(d.Terminal),
	)
	if err != nil {
		return fmt.Errorf("write dispatch: %w", err)
	}

	return nil
}

// WriteTransition inserts a state transition record into the store.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteTransition(ctx context.Context, t engine.Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions
		(seq, session_id, at, from_state, to_state, reason, position_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		t.Seq,
		t.SessionID,
		formatTime(t.At),
		t.From.String(),
		t.To.String(),
		t.Reason,
		t.PositionMs,
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}

	return nil
}
