package cli

import (
	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool  `json:"valid"`
	Commands int   `json:"commands"`
	Enabled  int   `json:"enabled"`
	Skipped  []int `json:"skipped,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project>",
		Short: "Validate a project without compiling a plan",
		Long: `Validate a project file against the command schema.

Stops at the first invalid command and reports its validation code (E2xx)
and source position. Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts, cmd)

	project, err := LoadProject(path)
	if err != nil {
		return outputCommandError(f, loadErrorOf(err))
	}
	f.VerboseLog("Validated %d command(s) in %s", len(project.Commands), path)

	commands := project.EnabledCommands()
	result := ValidationResult{
		Valid:    true,
		Commands: len(project.Commands),
		Enabled:  len(commands),
		Skipped:  compiler.DegenerateIndices(commands),
	}

	if f.JSON() {
		return f.Success(result)
	}
	f.Check(true, "%s is valid: %d command(s), %d enabled", path, result.Commands, result.Enabled)
	for _, idx := range result.Skipped {
		f.Warn("enabled command %d has no positive duration and will be skipped", idx)
	}
	return nil
}
