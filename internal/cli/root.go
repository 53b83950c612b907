package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables read by the CLI, e.g.
// DBTAPE_FORMAT or DBTAPE_DSN.
const EnvPrefix = "DBTAPE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
	Config  string // optional config file

	// settings merges flags, the config file and DBTAPE_* variables.
	// Populated before any subcommand runs.
	settings *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the dbtape CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dbtape",
		Short: "dbtape - record and replay database calls in tests",
		Long: `Record the outcomes of database client calls during a test run and
replay them later without a database.

Tests opt in through the fixture package; this tool inspects the recorded
snapshots, checks scenarios round-trip, and shows which mode and snapshot
path a test run would use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (yaml)")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewModeCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))

	return cmd
}

// load builds the settings for this invocation and validates the global
// flags. Flags win over the config file, which wins over DBTAPE_* variables.
func (o *RootOptions) load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.Config != "" {
		v.SetConfigFile(o.Config)
		if err := v.ReadInConfig(); err != nil {
			return WrapExitError(ExitCommandError, "failed to read config", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return WrapExitError(ExitCommandError, "failed to bind flags", err)
	}
	o.settings = v

	if f := cmd.Flags().Lookup("format"); f != nil && !f.Changed && v.IsSet("format") {
		o.Format = v.GetString("format")
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && !f.Changed && v.IsSet("verbose") {
		o.Verbose = v.GetBool("verbose")
	}

	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	return nil
}

// Settings returns the merged settings. Safe to call before load: it then
// reads only the environment.
func (o *RootOptions) Settings() *viper.Viper {
	if o.settings == nil {
		v := viper.New()
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
		o.settings = v
	}
	return o.settings
}

// Formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) Formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// Logger returns a logger for library code: debug output to stderr when
// verbose, otherwise discarded.
func (o *RootOptions) Logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Execute runs the root command and returns the process exit code. Errors
// are reported on stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(stderr, "Error:", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Flag and argument errors from cobra itself.
	return ExitCommandError
}
