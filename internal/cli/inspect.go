package cli

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/ledger"
	"github.com/roach88/dbtape/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Verify   bool // check the stored digest
	Timeline bool // list every outcome in arrival order
}

// KeySummary is the queue length of one call key.
type KeySummary struct {
	Key      string `json:"key" yaml:"key"`
	Outcomes int    `json:"outcomes" yaml:"outcomes"`
}

// TimelineEntry is one recorded outcome.
type TimelineEntry struct {
	Seq      int64  `json:"seq" yaml:"seq"`
	Key      string `json:"key" yaml:"key"`
	Position int    `json:"position" yaml:"position"`
	Outcome  string `json:"outcome" yaml:"outcome"`
}

// InspectResult summarizes a snapshot file.
type InspectResult struct {
	Path          string          `json:"path" yaml:"path"`
	FormatVersion string          `json:"format_version" yaml:"format_version"`
	Digest        string          `json:"digest" yaml:"digest"`
	Verified      bool            `json:"verified" yaml:"verified"`
	Outcomes      int             `json:"outcomes" yaml:"outcomes"`
	Failures      int             `json:"failures" yaml:"failures"`
	Keys          []KeySummary    `json:"keys" yaml:"keys"`
	Timeline      []TimelineEntry `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

// WriteText implements TextWriter.
func (r InspectResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "snapshot: %s\n", r.Path)
	fmt.Fprintf(w, "format:   v%s\n", r.FormatVersion)
	digest := r.Digest
	if r.Verified {
		digest += " (verified)"
	}
	fmt.Fprintf(w, "digest:   %s\n", digest)
	fmt.Fprintf(w, "outcomes: %d (%d failures)\n", r.Outcomes, r.Failures)

	fmt.Fprintln(w, "\nkeys:")
	for _, k := range r.Keys {
		fmt.Fprintf(w, "  %-28s %d\n", k.Key, k.Outcomes)
	}

	if len(r.Timeline) > 0 {
		fmt.Fprintln(w, "\ntimeline:")
		for _, e := range r.Timeline {
			fmt.Fprintf(w, "  %4d  %s[%d]  %s\n", e.Seq, e.Key, e.Position, e.Outcome)
		}
	}
	return nil
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show what a snapshot file recorded",
		Long: `Show the call keys, queue lengths and outcomes of a snapshot file.

Exit codes:
  0 - Snapshot read (and verified with --verify)
  1 - Digest mismatch
  2 - Command error (missing or unreadable snapshot)

Examples:
  dbtape inspect testdata/db/internal/report/report_test/TestMonthly.db
  dbtape inspect snap.db --verify --timeline
  dbtape inspect snap.db --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check the stored digest against the content")
	cmd.Flags().BoolVar(&opts.Timeline, "timeline", false, "list every outcome in arrival order")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	info, snap, err := store.Inspect(cmd.Context(), path, opts.Verify)
	switch {
	case err == nil:
	case ledger.IsSnapshotMissing(err):
		return NewExitError(ExitCommandError, fmt.Sprintf("snapshot not found: %s", path))
	case errors.Is(err, store.ErrCorruptSnapshot):
		return WrapExitError(ExitFailure, "snapshot verification failed", err)
	default:
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	result := InspectResult{
		Path:          info.Path,
		FormatVersion: info.FormatVersion,
		Digest:        info.Digest,
		Verified:      info.Verified,
		Outcomes:      info.Outcomes,
		Failures:      info.Failures,
		Keys:          make([]KeySummary, 0, len(info.Keys)),
	}
	for _, key := range snap.Keys() {
		result.Keys = append(result.Keys, KeySummary{Key: key.String(), Outcomes: info.Keys[key]})
	}
	if opts.Timeline {
		result.Timeline = timeline(snap)
	}

	return opts.Formatter(cmd).Success(result)
}

func timeline(snap ledger.Snapshot) []TimelineEntry {
	entries := slices.Clone(snap.Entries)
	slices.SortFunc(entries, func(a, b ledger.Entry) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	out := make([]TimelineEntry, len(entries))
	for i, e := range entries {
		out[i] = TimelineEntry{
			Seq:      e.Seq,
			Key:      e.Key.String(),
			Position: e.Position,
			Outcome:  describeOutcome(e.Outcome),
		}
	}
	return out
}

// describeOutcome renders an outcome on one line: the canonical value, or
// the recorded error kind and message.
func describeOutcome(o ledger.Outcome) string {
	if o.Failure != nil {
		return fmt.Sprintf("raised [%s] %s", o.Failure.Kind, o.Failure.Message)
	}
	data, err := ir.MarshalCanonical(o.Value)
	if err != nil {
		return fmt.Sprintf("<unencodable %T>", o.Value)
	}
	return string(data)
}
