package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// VerifySessionResult holds the verification result for a single session.
type VerifySessionResult struct {
	SessionID      string   `json:"session_id"`
	StoredHash     string   `json:"stored_hash"`
	RecomputedHash string   `json:"recomputed_hash"`
	Match          bool     `json:"match"`
	Mismatches     []string `json:"mismatches,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Sessions      []VerifySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllMatch      bool                  `json:"all_match"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompile recorded sessions and compare plans",
		Long: `Recompile the commands stored with each recorded session and check that
the plan hash and every recorded dispatch agree with a fresh compile.

Exit codes:
  0 - All sessions match
  1 - A session differs from its recompiled plan
  2 - Command error (database not found, etc.)

Examples:
  vidsheet verify --db ./vidsheet.db
  vidsheet verify --db ./vidsheet.db --session 0190f3c2-...
  vidsheet verify --db ./vidsheet.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "verify specific session only")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
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

	result := VerifyResult{
		Sessions:      make([]VerifySessionResult, 0, len(ids)),
		TotalSessions: len(ids),
		AllMatch:      true,
	}
	for _, id := range ids {
		r, err := verifySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify session %s", id), err)
		}
		result.Sessions = append(result.Sessions, r)
		if !r.Match {
			result.AllMatch = false
		}
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		outputVerifyText(f, result)
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "plan verification failed")
	}
	return nil
}

func verifySession(ctx context.Context, st *store.Store, id string) (VerifySessionResult, error) {
	v, err := st.VerifySession(ctx, id)
	if err != nil {
		return VerifySessionResult{}, err
	}
	return VerifySessionResult{
		SessionID:      v.SessionID,
		StoredHash:     v.StoredHash,
		RecomputedHash: v.RecomputedHash,
		Match:          v.OK(),
		Mismatches:     v.Mismatches,
	}, nil
}

func outputVerifyText(f *OutputFormatter, result VerifyResult) {
	if result.TotalSessions == 0 {
		fmt.Fprintln(f.Writer, "No sessions found in database.")
		return
	}
	for _, s := range result.Sessions {
		f.Check(s.Match, "%s", s.SessionID)
		if f.Verbose || !s.Match {
			f.Dim("  stored     %s", s.StoredHash)
			f.Dim("  recomputed %s", s.RecomputedHash)
		}
		for _, m := range s.Mismatches {
			fmt.Fprintf(f.Writer, "  %s\n", m)
		}
	}
	fmt.Fprintln(f.Writer)
	if result.AllMatch {
		f.Check(true, "All %d session(s) match their recompiled plans", result.TotalSessions)
		return
	}
	f.Check(false, "Plan verification failed")
}
