package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/ledger"
	"github.com/roach88/dbtape/internal/mode"
	"github.com/roach88/dbtape/internal/proxy"
	"github.com/roach88/dbtape/internal/store"
)

// Harness runs scenarios as record/replay round trips.
type Harness struct {
	// Real connects to the real database for the recording run.
	Real dbapi.ConnectFunc

	// DSN is passed to Real.
	DSN string

	// Dir is where snapshot files are written. Empty keeps snapshots in
	// memory.
	Dir string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// RoundTrip runs sc against real in RECORD mode, persists the snapshot
// under dir, runs sc again in REPLAY mode and compares the two traces.
//
// Execution flow:
// 1. Connect through the recording proxy and run sc.Setup unrecorded
// 2. Run the steps, checking expect clauses
// 3. Persist the snapshot
// 4. Reload it and run the steps against the replay proxy
// 5. Compare traces entry by entry and check nothing was left unconsumed
//
// The returned error reports harness failures (connect, setup, persist);
// failed expectations and mismatches are reported in the Result.
func RoundTrip(ctx context.Context, sc *Scenario, real dbapi.ConnectFunc, dir string) (*Result, error) {
	h := &Harness{Real: real, Dir: dir}
	return h.Run(ctx, sc)
}

// Run executes one round trip of sc.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", sc.Name)

	var snapshots ledger.SnapshotStore = ledger.NewMemoryStore()
	path := sc.Name + ".db"
	if h.Dir != "" {
		snapshots = store.NewFileStore(logger)
		path = filepath.Join(h.Dir, path)
	}
	cfg := ledger.Config{Path: path, Store: snapshots, Logger: logger}
	result := NewResult()

	cfg.Mode = mode.Record
	rec, err := ledger.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conn, err := proxy.Connect(mode.Record, rec, h.Real)(ctx, h.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := runSetup(ctx, conn, sc.Setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}
	result.Recorded = newRunner(conn, logger).run(ctx, sc.Steps)
	_ = conn.Close()

	for i, step := range sc.Steps {
		if err := checkExpect(step.Expect, result.Recorded[i]); err != nil {
			result.AddError("steps[%d] %s.%s: %v", i, step.On, step.Call, err)
		}
	}

	if err := rec.Persist(ctx); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	result.Outcomes = rec.Snapshot().Len()

	cfg.Mode = mode.Replay
	rep, err := ledger.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conn, err = proxy.Connect(mode.Replay, rep, nil)(ctx, h.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect replay: %w", err)
	}
	result.Replayed = newRunner(conn, logger).run(ctx, sc.Steps)

	compareTraces(result)
	if left := rep.Remaining(); len(left) > 0 {
		keys := slices.Sorted(maps.Keys(left))
		result.AddError("replay left outcomes unconsumed for %v", keys)
	}

	logger.Info("round trip complete",
		"outcomes", result.Outcomes,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// runSetup executes statements on the connection underneath the recording
// proxy so they do not enter the snapshot.
func runSetup(ctx context.Context, conn dbapi.Conn, statements []string) error {
	if len(statements) == 0 {
		return nil
	}
	if rc, ok := conn.(*proxy.RecordingConn); ok {
		conn = rc.Unwrap()
	}

	cur, err := conn.Cursor()
	if err != nil {
		return err
	}
	defer cur.Close()

	for i, stmt := range statements {
		if _, err := cur.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

// checkExpect compares a recorded trace entry with an expect clause.
func checkExpect(want *Expect, got TraceEntry) error {
	if want == nil {
		return nil
	}
	if want.Error != "" {
		if !got.Failed() {
			return fmt.Errorf("expected %s, call succeeded", want.Error)
		}
		if got.ErrorKind != want.Error {
			return fmt.Errorf("expected %s, got %s: %s", want.Error, got.ErrorKind, got.Error)
		}
		return nil
	}
	if got.Failed() {
		return fmt.Errorf("unexpected %s: %s", got.ErrorKind, got.Error)
	}

	switch {
	case want.Null:
		if _, ok := got.Value.(ir.IRNull); !ok {
			return fmt.Errorf("expected null, got %s", got)
		}
	case want.Value != nil:
		v, err := ir.FromGo(want.Value)
		if err != nil {
			return fmt.Errorf("expected value: %w", err)
		}
		if !ir.Equal(v, got.Value) {
			data, _ := ir.MarshalCanonical(v)
			return fmt.Errorf("expected value %s, got %s", data, got)
		}
	}
	return nil
}

// compareTraces checks that the replayed trace matches the recorded one
// entry by entry: same error kind and message, or same canonical value.
func compareTraces(r *Result) {
	if len(r.Recorded) != len(r.Replayed) {
		r.AddError("trace length: recorded %d entries, replayed %d", len(r.Recorded), len(r.Replayed))
	}
	for i := range min(len(r.Recorded), len(r.Replayed)) {
		rec, rep := r.Recorded[i], r.Replayed[i]
		if !sameOutcome(rec, rep) {
			r.AddError("steps[%d] replay mismatch: recorded %s; replayed %s", i, rec, rep)
		}
	}
}

func sameOutcome(a, b TraceEntry) bool {
	if a.Failed() || b.Failed() {
		return a.ErrorKind == b.ErrorKind && a.Error == b.Error
	}
	return ir.Equal(a.Value, b.Value)
}
