package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (engine.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, resume_ms, end_ms, restarted, commands, plan, plan_hash
		FROM sessions
		WHERE id = ?
	`, id)

	return scanSession(row)
}

// ReadSessions returns every session in recording order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ReadSessions(ctx context.Context) ([]engine.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, resume_ms, end_ms, restarted, commands, plan, plan_hash
		FROM sessions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []engine.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadDispatches returns all dispatches of a session ordered by seq.
//
// Returns an empty slice (not nil) if no records exist for the session.
func (s *Store) ReadDispatches(ctx context.Context, sessionID string) ([]engine.Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_id, at, frame_index, frame_start, offset_ms, visible, actions, terminal
		FROM dispatches
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []engine.Dispatch{}
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}

	return dispatches, nil
}

// ReadTransitions returns all transitions of a session ordered by seq.
//
// Returns an empty slice (not nil) if no records exist for the session.
func (s *Store) ReadTransitions(ctx context.Context, sessionID string) ([]engine.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_id, at, from_state, to_state, reason, position_ms
		FROM transitions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	transitions := []engine.Transition{}
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}

	return transitions, nil
}

func scanSession(row scanner) (engine.Session, error) {
	var (
		sess         engine.Session
		startedAt    string
		endMs        sql.NullFloat64
		restarted    int
		commandsJSON string
		planJSON     string
	)
	err := row.Scan(
		&sess.ID,
		&startedAt,
		&sess.ResumeMs,
		&endMs,
		&restarted,
		&commandsJSON,
		&planJSON,
		&sess.PlanHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Session{}, err
		}
		return engine.Session{}, fmt.Errorf("scan session: %w", err)
	}

	if sess.StartedAt, err = parseTime(startedAt); err != nil {
		return engine.Session{}, fmt.Errorf("scan session: %w", err)
	}
	if endMs.Valid {
		v := endMs.Float64
		sess.EndMs = &v
	}
	sess.Restarted = restarted != 0
	if sess.Commands, err = unmarshalCommands(commandsJSON); err != nil {
		return engine.Session{}, fmt.Errorf("scan session: %w", err)
	}
	if sess.Plan, err = unmarshalPlan(planJSON); err != nil {
		return engine.Session{}, fmt.Errorf("scan session: %w", err)
	}

	return sess, nil
}

func scanDispatch(row scanner) (engine.Dispatch, error) {
	var (
		d           engine.Dispatch
		at          string
		actionsJSON string
		terminal    int
	)
	err := row.Scan(
		&d.Seq,
		&d.SessionID,
		&at,
		&d.FrameIndex,
		&d.FrameStart,
		&d.OffsetMs,
		&d.Visible,
		&actionsJSON,
		&terminal,
	)
	if err != nil {
		return engine.Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}

	if d.At, err = parseTime(at); err != nil {
		return engine.Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}
	if d.Actions, err = unmarshalActions(actionsJSON); err != nil {
		return engine.Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}
	d.Terminal = terminal != 0

	return d, nil
}

func scanTransition(row scanner) (engine.Transition, error) {
	var (
		t        engine.Transition
		at       string
		from, to string
	)
	err := row.Scan(
		&t.Seq,
		&t.SessionID,
		&at,
		&from,
		&to,
		&t.Reason,
		&t.PositionMs,
	)
	if err != nil {
		return engine.Transition{}, fmt.Errorf("scan transition: %w", err)
	}

	if t.At, err = parseTime(at); err != nil {
		return engine.Transition{}, fmt.Errorf("scan transition: %w", err)
	}
	if t.From, err = engine.ParseState(from); err != nil {
		return engine.Transition{}, fmt.Errorf("scan transition: %w", err)
	}
	if t.To, err = engine.ParseState(to); err != nil {
		return engine.Transition{}, fmt.Errorf("scan transition: %w", err)
	}

	return t, nil
}
