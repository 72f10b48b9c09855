package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/clock"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
)

// DurationResult is the JSON payload of the duration command.
type DurationResult struct {
	TotalDurationMs float64 `json:"total_duration_ms"`
	Commands        int     `json:"commands"`
}

// NewDurationCommand creates the duration command.
func NewDurationCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duration <project>",
		Short: "Print the total duration of a project",
		Long: `Print where the last enabled command ends on the master timeline,
including audio tails. An empty project has duration 0.

Examples:
  vidsheet duration ./project.cue
  vidsheet duration ./project.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuration(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDuration(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts, cmd)

	project, err := LoadProject(path)
	if err != nil {
		return outputCommandError(f, loadErrorOf(err))
	}
	commands := project.EnabledCommands()
	result := DurationResult{
		TotalDurationMs: compiler.TotalDuration(commands),
		Commands:        len(commands),
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%vms (%s)\n", result.TotalDurationMs,
		clock.Milliseconds(result.TotalDurationMs).Round(time.Millisecond))
	return nil
}
