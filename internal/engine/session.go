package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// SessionIDGenerator generates playback session IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so recorded
// sessions sort by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined session IDs for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("session-1", "session-2")
//	gen.Generate() // "session-1"
//	gen.Generate() // "session-2"
//	gen.Generate() // panic: all session IDs exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics if all IDs have been consumed, to catch a test that starts more
// sessions than it expects.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all session IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Session is one Start-to-pause/stop/end span of playback.
type Session struct {
	ID        string
	StartedAt time.Time
	ResumeMs  float64  // Clamped resume point
	EndMs     *float64 // Requested truncation, if any
	Restarted bool     // Resume target was invalid and clamped to 0
	Commands  []ir.Command
	Plan      ir.Plan
	PlanHash  string
}

// Dispatch is one loop step issuing all source commands for one frame.
type Dispatch struct {
	SessionID  string
	Seq        int64
	At         time.Time
	FrameIndex int     // Index of the frame's first action in the plan
	FrameStart float64 // Start of the frame on the master timeline
	OffsetMs   float64 // Where playback entered the frame (FrameStart unless resuming)
	Visible    int     // Visible command index or ir.NoCommand
	Actions    []ir.PlanAction
	Terminal   bool // The sentinel frame ending the plan
}

// Transition is a change of playback state.
type Transition struct {
	SessionID  string
	Seq        int64
	At         time.Time
	From       State
	To         State
	Reason     string // "start", "pause", "stop", "seek", "end"
	PositionMs float64
}
