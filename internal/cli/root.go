package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/config"
	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	v   *viper.Viper
	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Viper returns the settings store flags are bound to.
func (o *RootOptions) Viper() *viper.Viper {
	if o.v == nil {
		o.v = config.New()
	}
	return o.v
}

// Settings loads the configuration once. Subcommands constructed without the
// root command (as in tests) load it on first use.
func (o *RootOptions) Settings() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.Viper(), o.ConfigPath)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

// Logger returns a logger writing to stderr at the configured level.
// --verbose always selects debug.
func (o *RootOptions) Logger() *slog.Logger {
	level := slog.LevelInfo
	if cfg, err := o.Settings(); err == nil {
		if l, err := cfg.Level(); err == nil {
			level = l
		}
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return newLogger(level)
}

// NewRootCommand creates the root command for the vidsheet CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "vidsheet",
		Version: ir.EngineVersion,
		Short:   "vidsheet - video timeline compiler and player",
		Long: `Compile spreadsheet-style video timelines into playback plans and run
them against a virtual clock.

Settings are read from vidsheet.yaml (or --config), VIDSHEET_* environment
variables and flags, in increasing precedence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if _, err := opts.Settings(); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			slog.SetDefault(opts.Logger())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./vidsheet.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	_ = opts.Viper().BindPFlag(config.KeyLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDurationCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns an OutputFormatter writing to the command's streams.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
