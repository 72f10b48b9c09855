package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// SessionTrace is the recorded timeline of one session.
type SessionTrace struct {
	SessionID string     `json:"session_id"`
	StartedAt string     `json:"started_at"`
	ResumeMs  float64    `json:"resume_ms"`
	EndMs     *float64   `json:"end_ms,omitempty"`
	Restarted bool       `json:"restarted,omitempty"`
	PlanHash  string     `json:"plan_hash"`
	PlanEndMs float64    `json:"plan_end_ms"`
	Timeline  []SimEvent `json:"timeline"`
	Stats     TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Dispatches  int  `json:"dispatches"`
	Transitions int  `json:"transitions"`
	ReachedEnd  bool `json:"reached_end"`
}

// TraceResult holds the trace output for every selected session.
type TraceResult struct {
	Sessions []SessionTrace `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print recorded playback sessions",
		Long: `Print the dispatches and transitions of recorded sessions in seq order.

Sessions are recorded by simulate --db.

Examples:
  vidsheet trace --db ./vidsheet.db
  vidsheet trace --db ./vidsheet.db --session 0190f3c2-...
  vidsheet trace --db ./vidsheet.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "trace specific session only")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := selectSessions(ctx, st, opts.SessionID)
	if err != nil {
		return err
	}

	result := TraceResult{Sessions: make([]SessionTrace, 0, len(ids))}
	for _, id := range ids {
		trace, err := buildSessionTrace(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to trace session %s", id), err)
		}
		result.Sessions = append(result.Sessions, trace)
	}

	if f.JSON() {
		return f.Success(result)
	}
	if len(result.Sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions found in database.")
		return nil
	}
	for i, s := range result.Sessions {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		outputSessionTrace(f, s)
	}
	return nil
}

// openExistingStore opens a recording database that must already exist.
// store.Open would create a missing file.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// selectSessions returns the requested session, or every session in the
// database when id is empty.
func selectSessions(ctx context.Context, st *store.Store, id string) ([]string, error) {
	if id != "" {
		if _, err := st.ReadSession(ctx, id); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id), err)
		}
		return []string{id}, nil
	}
	ids, err := st.ListSessionIDs(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	return ids, nil
}

func buildSessionTrace(ctx context.Context, st *store.Store, id string) (SessionTrace, error) {
	sess, err := st.ReadSession(ctx, id)
	if err != nil {
		return SessionTrace{}, err
	}
	events, err := st.ReplaySession(ctx, id)
	if err != nil {
		return SessionTrace{}, err
	}

	trace := SessionTrace{
		SessionID: sess.ID,
		StartedAt: sess.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ResumeMs:  sess.ResumeMs,
		EndMs:     sess.EndMs,
		Restarted: sess.Restarted,
		PlanHash:  sess.PlanHash,
		PlanEndMs: sess.Plan.End(),
		Timeline:  make([]SimEvent, 0, len(events)),
	}
	for _, ev := range events {
		switch ev.Type {
		case store.EventDispatch:
			d := ev.Dispatch
			se := SimEvent{
				Seq:        d.Seq,
				AtMs:       clock.SinceMs(d.At, sess.StartedAt),
				Type:       ev.Type.String(),
				FrameStart: &d.FrameStart,
				OffsetMs:   &d.OffsetMs,
				Terminal:   d.Terminal,
			}
			if !d.Terminal && d.Visible != ir.NoCommand {
				v := d.Visible
				se.Visible = &v
			}
			trace.Timeline = append(trace.Timeline, se)
			trace.Stats.Dispatches++
			if d.Terminal {
				trace.Stats.ReachedEnd = true
			}
		case store.EventTransition:
			t := ev.Transition
			trace.Timeline = append(trace.Timeline, SimEvent{
				Seq:        t.Seq,
				AtMs:       clock.SinceMs(t.At, sess.StartedAt),
				Type:       ev.Type.String(),
				From:       t.From.String(),
				To:         t.To.String(),
				Reason:     t.Reason,
				PositionMs: &t.PositionMs,
			})
			trace.Stats.Transitions++
		}
	}
	trace.Stats.TotalEvents = len(trace.Timeline)
	return trace, nil
}

func outputSessionTrace(f *OutputFormatter, s SessionTrace) {
	f.Header(fmt.Sprintf("Session %s", s.SessionID))
	f.Dim("started %s, resume %vms, plan ends %vms, hash %s", s.StartedAt, s.ResumeMs, s.PlanEndMs, s.PlanHash)
	if s.Restarted {
		f.Warn("resume target was invalid; restarted from 0")
	}
	for _, ev := range s.Timeline {
		fmt.Fprintf(f.Writer, "[%d] %8.1fms  %s\n", ev.Seq, ev.AtMs, describeSimEvent(ev))
	}
	f.Check(s.Stats.ReachedEnd, "%d dispatch(es), %d transition(s), %s",
		s.Stats.Dispatches, s.Stats.Transitions, completeStatus(s.Stats.ReachedEnd))
}

func completeStatus(reachedEnd bool) string {
	if reachedEnd {
		return "reached end"
	}
	return "did not reach end"
}
