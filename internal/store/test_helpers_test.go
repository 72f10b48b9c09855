package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 123456789, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCommands() []ir.Command {
	a := ir.Command{Asset: "a.mp4", PositionMs: 0, EndMs: 4000, SpeedPct: 100, Volume: 100, Enabled: true}
	b := ir.Command{Asset: "b.mp4", PositionMs: 2000, EndMs: 4000, SpeedPct: 100, Volume: 80, Enabled: true}
	b.Overlay = &ir.Overlay{Text: &ir.TextOverlay{Content: "B", XPct: 50, YPct: 90, Align: ir.AlignBottom}}
	return []ir.Command{a, b}
}

// createTestSession creates a session with a real compiled plan.
func createTestSession(id string) engine.Session {
	commands := testCommands()
	plan := compiler.Compile(commands)
	return engine.Session{
		ID:        id,
		StartedAt: testEpoch,
		Commands:  commands,
		Plan:      plan,
		PlanHash:  ir.MustPlanHash(plan),
	}
}

func createTestDispatch(sess engine.Session, seq int64, frame int) engine.Dispatch {
	group := sess.Plan.Group(frame)
	return engine.Dispatch{
		SessionID:  sess.ID,
		Seq:        seq,
		At:         testEpoch.Add(time.Duration(group[0].Start) * time.Millisecond),
		FrameIndex: frame,
		FrameStart: group[0].Start,
		OffsetMs:   group[0].Start,
		Visible:    sess.Plan.Visible(frame),
		Actions:    group,
		Terminal:   sess.Plan.GroupEnd(frame) == len(sess.Plan.Actions),
	}
}

func createTestTransition(sessionID string, seq int64, from, to engine.State, reason string) engine.Transition {
	return engine.Transition{
		SessionID: sessionID,
		Seq:       seq,
		At:        testEpoch,
		From:      from,
		To:        to,
		Reason:    reason,
	}
}
