package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/dbtape/internal/harness"
	"github.com/roach88/dbtape/internal/sqlconn"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Driver      string
	DSN         string
	SnapshotDir string
}

// ScenarioResult is the outcome of one scenario round trip.
type ScenarioResult struct {
	Scenario string   `json:"scenario" yaml:"scenario"`
	File     string   `json:"file" yaml:"file"`
	Pass     bool     `json:"pass" yaml:"pass"`
	Steps    int      `json:"steps" yaml:"steps"`
	Outcomes int      `json:"outcomes" yaml:"outcomes"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// CheckResult is the outcome of a check run.
type CheckResult struct {
	Driver    string           `json:"driver" yaml:"driver"`
	Passed    int              `json:"passed" yaml:"passed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Scenarios []ScenarioResult `json:"scenarios" yaml:"scenarios"`
}

// WriteText implements TextWriter.
func (r CheckResult) WriteText(w io.Writer) error {
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s (%d steps, %d outcomes)\n", status, s.Scenario, s.Steps, s.Outcomes)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "      %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", r.Passed, r.Failed)
	return nil
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenario>...",
		Short: "Record and replay scenarios and compare the results",
		Long: `Run each scenario against a real database while recording, replay it
from the snapshot, and check that both runs observed the same outcomes.

Scenarios are YAML (.yaml, .yml) or CUE (.cue) files. The database is
opened with the database/sql driver named by --driver; sqlite3 is built in.
--dsn and --driver may also come from DBTAPE_DSN and DBTAPE_DRIVER.

Exit codes:
  0 - Every scenario round-tripped
  1 - A scenario failed an expectation or replayed differently
  2 - Command error (unreadable scenario, connect or setup failure)

Examples:
  dbtape check testdata/scenarios/notes.yaml
  dbtape check scenarios/*.cue --snapshot-dir out/
  DBTAPE_DSN=file:test.db dbtape check notes.yaml --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "sqlite3", "database/sql driver name")
	cmd.Flags().StringVar(&opts.DSN, "dsn", ":memory:", "data source name passed to the driver")
	cmd.Flags().StringVar(&opts.SnapshotDir, "snapshot-dir", "", "keep snapshot files in this directory (default: in memory)")

	return cmd
}

func runCheck(opts *CheckOptions, files []string, cmd *cobra.Command) error {
	settings := opts.Settings()
	driver := settings.GetString("driver")
	dsn := settings.GetString("dsn")
	dir := settings.GetString("snapshot-dir")

	scenarios := make([]*harness.Scenario, len(files))
	for i, file := range files {
		sc, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}
		scenarios[i] = sc
	}

	h := &harness.Harness{
		Real:   sqlconn.Connector(driver),
		DSN:    dsn,
		Dir:    dir,
		Logger: opts.Logger(cmd),
	}

	result := CheckResult{Driver: driver, Scenarios: make([]ScenarioResult, 0, len(scenarios))}
	for i, sc := range scenarios {
		run, err := h.Run(cmd.Context(), sc)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", sc.Name), err)
		}
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Scenario: sc.Name,
			File:     filepath.ToSlash(files[i]),
			Pass:     run.Pass,
			Steps:    len(sc.Steps),
			Outcomes: run.Outcomes,
			Errors:   run.Errors,
		})
		if run.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := opts.Formatter(cmd).Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, len(scenarios)))
	}
	return nil
}
