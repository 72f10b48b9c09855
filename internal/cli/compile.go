package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/compiler"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string   // output file path
	EndMs  *float64 // truncate the plan here
}

// CompilationResult is the JSON payload of the compile command.
type CompilationResult struct {
	Name            string          `json:"name,omitempty"`
	Commands        int             `json:"commands"`
	Enabled         int             `json:"enabled"`
	Frames          int             `json:"frames"`
	PlanEndMs       float64         `json:"plan_end_ms"`
	TotalDurationMs float64         `json:"total_duration_ms"`
	PlanHash        string          `json:"plan_hash"`
	Skipped         []int           `json:"skipped,omitempty"`
	Actions         []ir.PlanAction `json:"actions"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}
	var endMs float64

	cmd := &cobra.Command{
		Use:   "compile <project>",
		Short: "Compile a project to a playback plan",
		Long: `Compile the enabled commands of a project into a playback plan.

The project may be a .cue, .yaml, .yml or .json file. The plan is printed
as a frame table, or as canonical JSON with --output.

Examples:
  vidsheet compile ./project.cue
  vidsheet compile ./project.yaml --end-ms 5000
  vidsheet compile ./project.cue -o plan.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("end-ms") {
				opts.EndMs = &endMs
			}
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical plan JSON to this file")
	cmd.Flags().Float64Var(&endMs, "end-ms", 0, "truncate the plan at this master-timeline time")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	project, err := LoadProject(path)
	if err != nil {
		return outputCommandError(f, loadErrorOf(err))
	}

	commands := project.EnabledCommands()
	f.VerboseLog("Loaded %d command(s), %d enabled, from %s", len(project.Commands), len(commands), path)

	plan := compiler.CompileRange(commands, opts.EndMs)
	hash, err := ir.PlanHash(plan)
	if err != nil {
		return outputCommandError(f, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing plan: %v", err)})
	}

	result := CompilationResult{
		Name:            project.Name,
		Commands:        len(project.Commands),
		Enabled:         len(commands),
		Frames:          len(plan.Frames()),
		PlanEndMs:       plan.End(),
		TotalDurationMs: compiler.TotalDuration(commands),
		PlanHash:        hash,
		Skipped:         compiler.DegenerateIndices(commands),
		Actions:         plan.Actions,
	}
	if result.Actions == nil {
		result.Actions = []ir.PlanAction{}
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writePlanToFile(plan, opts.Output); err != nil {
			return outputCommandError(f, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	return outputCompileText(f, plan, result, opts.Output)
}

// writePlanToFile writes the canonical JSON form of plan.
func writePlanToFile(plan ir.Plan, path string) error {
	data, err := ir.MarshalCanonical(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func outputCompileText(f *OutputFormatter, plan ir.Plan, result CompilationResult, outputFile string) error {
	name := result.Name
	if name == "" {
		name = "project"
	}
	f.Check(true, "Compiled %s: %d frame(s), ends at %vms", name, result.Frames, result.PlanEndMs)
	for _, idx := range result.Skipped {
		f.Warn("command %d skipped: no positive duration", idx)
	}

	if !plan.Empty() {
		fmt.Fprintln(f.Writer)
		tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FRAME\tSTART\tEND\tVISIBLE\tACTIONS")
		for n, i := range plan.Frames() {
			group := plan.Group(i)
			fmt.Fprintf(tw, "%d\t%v\t%v\t%s\t%s\n", n, group[0].Start, group[0].End,
				commandLabel(plan.Visible(i)), describeActions(group))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(f.Writer)
	}

	f.Dim("plan hash %s", result.PlanHash)
	if outputFile != "" {
		fmt.Fprintf(f.Writer, "Wrote canonical plan to %s\n", outputFile)
	}
	return nil
}

// commandLabel renders a command index, or "black" for NoCommand.
func commandLabel(idx int) string {
	if idx == ir.NoCommand {
		return "black"
	}
	return fmt.Sprintf("#%d", idx)
}

// describeActions renders a frame's actions as "+0 =1 -2", where + starts a
// command from its trim start, = continues it and - pauses it.
func describeActions(group []ir.PlanAction) string {
	var s string
	for _, a := range group {
		if a.IsBlack() {
			continue
		}
		mark := "="
		switch {
		case a.PauseRequested:
			mark = "-"
		case a.PlayFromStart:
			mark = "+"
		}
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("%s%d", mark, a.CommandIndex)
	}
	if s == "" {
		return "-"
	}
	return s
}

// outputCommandError prints a load or compile error and returns the matching
// exit error. Project errors are command-level errors (exit code 2).
func outputCommandError(f *OutputFormatter, loadErr *LoadError) error {
	var details any
	if loadErr.Field != "" || loadErr.Pos.IsValid() {
		d := map[string]any{}
		if loadErr.Field != "" {
			d["field"] = loadErr.Field
		}
		if loadErr.Pos.IsValid() {
			d["file"] = loadErr.Pos.Filename()
			d["line"] = loadErr.Pos.Line()
			d["column"] = loadErr.Pos.Column()
		}
		details = d
	}
	message := loadErr.Message
	if loadErr.Pos.IsValid() && !f.JSON() {
		message = fmt.Sprintf("%s (line %d)", message, loadErr.Pos.Line())
	}
	_ = f.Error(loadErr.Code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message), nil)
}
