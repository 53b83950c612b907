package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dbtape/internal/store"
)

// PathResult is the snapshot file a test would use.
type PathResult struct {
	Mode string `json:"mode" yaml:"mode"`
	Path string `json:"path" yaml:"path"`
}

// WriteText implements TextWriter.
func (r PathResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Path)
	return err
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path <package-dir> <test-file> <test-name>",
		Short: "Show where a test's snapshot lives",
		Long: `Print the snapshot file a test would read or write.

package-dir is the package directory relative to the module root.
test-file is the test file name without ".go" (e.g. report_test).
test-name is the full name go test reports, subtests included.

The root is resolved like the mode command does.

Exit codes:
  0 - Path printed
  2 - Conflicting or incomplete settings

Examples:
  dbtape path internal/report report_test TestMonthly --data-dir testdata/db
  dbtape path internal/report report_test 'TestMonthly/empty month'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveMode(rootOpts.Settings())
			if err != nil {
				return err
			}
			return rootOpts.Formatter(cmd).Success(PathResult{
				Mode: res.Mode.String(),
				Path: store.SnapshotPath(res.Root, args[0], args[1], args[2]),
			})
		},
	}

	addModeFlags(cmd)
	return cmd
}
