package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/dbtape/internal/config"
	"github.com/roach88/dbtape/internal/mode"
)

// ModeResult is the mode a test run would use.
type ModeResult struct {
	Mode string `json:"mode" yaml:"mode"`
	Root string `json:"root" yaml:"root"`
}

// WriteText implements TextWriter.
func (r ModeResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s=%s\n", mode.EnvVar, r.Mode)
	fmt.Fprintf(w, "root: %s\n", r.Root)
	return nil
}

// NewModeCommand creates the mode command.
func NewModeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show which mode a test run would use",
		Long: `Resolve the record/replay mode from flags and the environment the same
way the test fixture does, and print it.

The environment is read from PMSM_STORE_DB_DATA, PMSM_MOCK_DB_DATA and
PMSM_DATA_DIR. Flags given here take precedence.

Exit codes:
  0 - Mode resolved
  2 - Conflicting or incomplete settings

Examples:
  dbtape mode
  dbtape mode --store --data-dir testdata/db
  PMSM_MOCK_DB_DATA=true PMSM_DATA_DIR=testdata/db dbtape mode --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveMode(rootOpts.Settings())
			if err != nil {
				return err
			}
			return rootOpts.Formatter(cmd).Success(ModeResult{Mode: res.Mode.String(), Root: res.Root})
		},
	}

	addModeFlags(cmd)
	return cmd
}

// addModeFlags registers the flags that mirror the test flags.
func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("store", false, "record database outcomes")
	cmd.Flags().Bool("mock", false, "replay database outcomes")
	cmd.Flags().String("data-dir", "", "snapshot root directory")
}

// resolveMode merges explicitly set values over the PMSM_* environment and
// resolves them.
func resolveMode(settings *viper.Viper) (mode.Resolution, error) {
	env, err := config.Load()
	if err != nil {
		return mode.Resolution{}, WrapExitError(ExitCommandError, "failed to read environment", err)
	}

	var o config.Overrides
	if settings.IsSet("store") {
		store := settings.GetBool("store")
		o.Store = &store
	}
	if settings.IsSet("mock") {
		mock := settings.GetBool("mock")
		o.Mock = &mock
	}
	o.DataDir = settings.GetString("data-dir")

	res, err := mode.Resolve(env.Intent(o))
	if err != nil {
		return mode.Resolution{}, WrapExitError(ExitCommandError, "cannot resolve mode", err)
	}
	return res, nil
}
