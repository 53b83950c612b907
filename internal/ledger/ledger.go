package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/mode"
)

// SnapshotStore persists snapshots. A missing snapshot must be reported
// with an error satisfying errors.Is(err, fs.ErrNotExist).
type SnapshotStore interface {
	Save(ctx context.Context, path string, snap Snapshot) error
	Load(ctx context.Context, path string) (Snapshot, error)
}

// Config configures a Ledger.
type Config struct {
	// Mode is fixed for the ledger's lifetime.
	Mode mode.Mode

	// Path identifies the snapshot in Store.
	Path string

	// Store persists snapshots. Required for REPLAY and for Persist.
	Store SnapshotStore

	// Errors encodes and decodes failures. Defaults to DefaultErrors().
	Errors *ErrorRegistry

	// Logger receives debug records for every append and consume.
	// Defaults to a discard logger.
	Logger *slog.Logger
}

// Ledger is the per-test store of outcomes.
//
// In RECORD mode outcomes are appended by Capture/Record. In REPLAY mode
// the ledger is loaded from the snapshot at Open and outcomes are consumed
// by Take/Replay. In PASSTHROUGH mode only UserValue is meaningful.
type Ledger struct {
	mu     sync.Mutex
	mode   mode.Mode
	path   string
	store  SnapshotStore
	errs   *ErrorRegistry
	logger *slog.Logger
	clock  *Clock

	// entries holds every outcome in arrival order.
	entries []Entry

	// counts is the queue length per key.
	counts map[CallKey]int

	// pending is the unconsumed outcomes per key (REPLAY).
	pending map[CallKey][]Entry

	// deferred is the first unrecordable result seen in RECORD.
	deferred error
}

// Open creates a Ledger. In REPLAY mode the snapshot at cfg.Path is loaded
// from cfg.Store; a missing snapshot yields a *SnapshotMissingError.
func Open(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.Errors == nil {
		cfg.Errors = DefaultErrors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	l := &Ledger{
		mode:    cfg.Mode,
		path:    cfg.Path,
		store:   cfg.Store,
		errs:    cfg.Errors,
		logger:  cfg.Logger.With("snapshot", cfg.Path, "mode", cfg.Mode.String()),
		clock:   NewClock(),
		counts:  make(map[CallKey]int),
		pending: make(map[CallKey][]Entry),
	}

	if cfg.Mode != mode.Replay {
		return l, nil
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("open ledger: replay requires a snapshot store")
	}

	snap, err := cfg.Store.Load(ctx, cfg.Path)
	if err != nil {
		if IsSnapshotMissing(err) {
			return nil, err
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SnapshotMissingError{Path: cfg.Path}
		}
		return nil, fmt.Errorf("load snapshot %s: %w", cfg.Path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", cfg.Path, err)
	}

	l.load(snap)
	l.logger.Debug("snapshot loaded", "outcomes", snap.Len(), "keys", len(l.pending))
	return l, nil
}

func (l *Ledger) load(snap Snapshot) {
	l.entries = snap.sorted()
	var last int64
	for _, e := range l.entries {
		l.pending[e.Key] = append(l.pending[e.Key], e)
		l.counts[e.Key]++
		last = max(last, e.Seq)
	}
	l.clock = NewClockAt(last)
}

// Mode returns the ledger's mode.
func (l *Ledger) Mode() mode.Mode {
	return l.mode
}

// Path returns the snapshot path.
func (l *Ledger) Path() string {
	return l.path
}

// Errors returns the registry used for failures.
func (l *Ledger) Errors() *ErrorRegistry {
	return l.errs
}

// Err returns the first unrecordable-result error seen in RECORD, if any.
func (l *Ledger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deferred
}

// Capture runs call and appends its outcome under key.
//
// A failure is encoded through the error registry, appended, and returned
// unchanged. A success is converted with encode and appended; if encode
// fails the real result is still returned and the conversion error is kept
// for Persist to report.
func Capture[T any](l *Ledger, key CallKey, call func() (T, error), encode func(T) (ir.IRValue, error)) (T, error) {
	res, err := call()
	if err != nil {
		l.append(key, Failed(l.errs.Encode(err)))
		return res, err
	}

	v, encErr := encode(res)
	if encErr == nil {
		// Reject values that cannot be persisted now rather than at Persist.
		_, encErr = ir.MarshalCanonical(v)
	}
	if encErr != nil {
		l.deferError(key, encErr)
		return res, nil
	}

	l.append(key, Success(v))
	return res, nil
}

// Record runs call and appends its outcome under key.
func (l *Ledger) Record(key CallKey, call func() (ir.IRValue, error)) (ir.IRValue, error) {
	return Capture(l, key, call, identity)
}

// Take consumes the next outcome for key and converts it with decode.
//
// A recorded failure is returned as an error of the same kind and message.
// An empty queue yields a *ReplayExhaustedError naming key.
func Take[T any](l *Ledger, key CallKey, decode func(ir.IRValue) (T, error)) (T, error) {
	var zero T

	o, err := l.next(key)
	if err != nil {
		return zero, err
	}
	if o.Failure != nil {
		return zero, l.errs.Decode(*o.Failure)
	}

	res, err := decode(o.Value)
	if err != nil {
		return zero, fmt.Errorf("replay %s: decode recorded value: %w", key, err)
	}
	return res, nil
}

// Replay consumes the next outcome for key.
func (l *Ledger) Replay(key CallKey) (ir.IRValue, error) {
	return Take(l, key, identity)
}

func identity(v ir.IRValue) (ir.IRValue, error) {
	return v, nil
}

// UserValue implements the escape hatch for values a test computes itself.
//
// PASSTHROUGH returns v. RECORD appends v under UserValueKey and returns
// it. REPLAY ignores v and returns the next stored value.
func (l *Ledger) UserValue(v ir.IRValue) (ir.IRValue, error) {
	switch l.mode {
	case mode.Record:
		return l.Record(UserValueKey, func() (ir.IRValue, error) { return v, nil })
	case mode.Replay:
		return l.Replay(UserValueKey)
	default:
		return v, nil
	}
}

func (l *Ledger) append(key CallKey, o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:      l.clock.Next(),
		Key:      key,
		Position: l.counts[key],
		Outcome:  o,
	}
	l.entries = append(l.entries, e)
	l.counts[key]++

	l.logger.Debug("outcome recorded",
		"key", key,
		"seq", e.Seq,
		"position", e.Position,
		"failed", o.IsFailure(),
	)
}

func (l *Ledger) deferError(key CallKey, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Warn("result not recordable", "key", key, "error", err)
	if l.deferred == nil {
		l.deferred = &UnrecordableError{Key: key, Err: err}
	}
}

func (l *Ledger) next(key CallKey) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queue := l.pending[key]
	if len(queue) == 0 {
		l.logger.Debug("replay exhausted", "key", key)
		return Outcome{}, &ReplayExhaustedError{Key: key}
	}

	e := queue[0]
	l.pending[key] = queue[1:]
	l.logger.Debug("outcome replayed",
		"key", key,
		"seq", e.Seq,
		"position", e.Position,
		"failed", e.Outcome.IsFailure(),
	)
	return e.Outcome, nil
}

// Remaining returns the number of unconsumed outcomes per key. Keys with
// nothing left are omitted. Only REPLAY ledgers have remaining outcomes.
func (l *Ledger) Remaining() map[CallKey]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[CallKey]int)
	for k, q := range l.pending {
		if len(q) > 0 {
			out[k] = len(q)
		}
	}
	return out
}

// Peek returns the unconsumed outcomes for key without consuming them.
func (l *Ledger) Peek(key CallKey) []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.pending[key]
	out := make([]Outcome, len(q))
	for i, e := range q {
		out[i] = e.Outcome
	}
	return out
}

// Keys returns every key that has at least one outcome, sorted.
func (l *Ledger) Keys() []CallKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Sorted(maps.Keys(l.counts))
}

// Snapshot returns a copy of every outcome in arrival order.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{Entries: slices.Clone(l.entries)}
}

// Persist writes the recorded outcomes to the store.
//
// Only RECORD ledgers persist. If any result could not be recorded, the
// snapshot is not written and that error is returned.
func (l *Ledger) Persist(ctx context.Context) error {
	if l.mode != mode.Record {
		return ErrNotRecording
	}
	if err := l.Err(); err != nil {
		return fmt.Errorf("persist %s: %w", l.path, err)
	}
	if l.store == nil {
		return fmt.Errorf("persist %s: no snapshot store configured", l.path)
	}

	snap := l.Snapshot()
	if err := l.store.Save(ctx, l.path, snap); err != nil {
		return fmt.Errorf("persist %s: %w", l.path, err)
	}
	l.logger.Debug("snapshot persisted", "outcomes", snap.Len())
	return nil
}
