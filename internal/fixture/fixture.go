package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/roach88/dbtape/internal/config"
	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/ledger"
	"github.com/roach88/dbtape/internal/mode"
	"github.com/roach88/dbtape/internal/proxy"
	"github.com/roach88/dbtape/internal/store"
)

// Fixture is the per-test record/replay state.
type Fixture struct {
	tb      testing.TB
	mode    mode.Mode
	path    string
	ledger  *ledger.Ledger
	connect dbapi.ConnectFunc
	logger  *slog.Logger
	closed  bool
}

// Option configures New.
type Option func(*options)

type options struct {
	root   string
	intent *mode.Intent
	logger *slog.Logger
	errors *ledger.ErrorRegistry
	store  ledger.SnapshotStore
}

// WithRoot sets the snapshot root, overriding -db-data-dir and
// PMSM_DATA_DIR.
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithIntent bypasses flags and environment and uses in as given.
func WithIntent(in mode.Intent) Option {
	return func(o *options) { o.intent = &in }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithErrorRegistry sets the registry used to record and rebuild errors.
func WithErrorRegistry(r *ledger.ErrorRegistry) Option {
	return func(o *options) { o.errors = r }
}

// WithStore replaces the snapshot file store.
func WithStore(s ledger.SnapshotStore) Option {
	return func(o *options) { o.store = s }
}

// New sets up record/replay for the test tb.
//
// The mode comes from flags and environment (see package doc). New fails
// the test on conflicting settings and, in REPLAY mode, when the test has
// no snapshot. The resolved mode is published in PMSM_MODE for the
// duration of the test, so New must not be used in parallel tests.
// In RECORD mode the snapshot is written when the test finishes.
func New(tb testing.TB, real dbapi.ConnectFunc, opts ...Option) *Fixture {
	tb.Helper()

	fx, err := open(context.Background(), tb.Name(), callerIdentity(2), real, opts...)
	if err != nil {
		tb.Fatalf("database fixture: %v", err)
		return nil
	}
	fx.tb = tb

	mode.Publish(fx.mode, tb.Setenv)
	tb.Cleanup(func() {
		if err := fx.Close(context.Background()); err != nil {
			tb.Errorf("database fixture: %v", err)
		}
	})
	return fx
}

func open(ctx context.Context, name string, id testIdentity, real dbapi.ConnectFunc, opts ...Option) (*Fixture, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	intent, err := resolveIntent(o)
	if err != nil {
		return nil, err
	}
	res, err := mode.Resolve(intent)
	if err != nil {
		return nil, err
	}

	path := store.SnapshotPath(res.Root, id.pkgDir, id.fileStem, name)
	snapshots := o.store
	if snapshots == nil {
		snapshots = store.NewFileStore(o.logger)
	}

	l, err := ledger.Open(ctx, ledger.Config{
		Mode:   res.Mode,
		Path:   path,
		Store:  snapshots,
		Errors: o.errors,
		Logger: o.logger,
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("database fixture ready",
		"test", name,
		"mode", res.Mode.String(),
		"snapshot", path,
	)
	return &Fixture{
		mode:    res.Mode,
		path:    path,
		ledger:  l,
		connect: proxy.Connect(res.Mode, l, real),
		logger:  o.logger,
	}, nil
}

func resolveIntent(o options) (mode.Intent, error) {
	var in mode.Intent
	if o.intent != nil {
		in = *o.intent
	} else {
		settings, err := config.Load()
		if err != nil {
			return mode.Intent{}, err
		}
		in = settings.Intent(flagOverrides())
	}
	if o.root != "" {
		in.Root = o.root
	}
	return in, nil
}

// Mode returns the resolved mode.
func (fx *Fixture) Mode() mode.Mode { return fx.mode }

// Path returns the snapshot file path for this test.
func (fx *Fixture) Path() string { return fx.path }

// Ledger returns the outcome ledger.
func (fx *Fixture) Ledger() *ledger.Ledger { return fx.ledger }

// Connect opens a connection through the mode's connect entry point.
// In REPLAY mode the real client is never contacted.
func (fx *Fixture) Connect(ctx context.Context, dsn string) (dbapi.Conn, error) {
	return fx.connect(ctx, dsn)
}

// Connector returns the connect entry point, for code that takes a
// dbapi.ConnectFunc.
func (fx *Fixture) Connector() dbapi.ConnectFunc {
	return fx.connect
}

// Context returns ctx carrying the resolved mode.
func (fx *Fixture) Context(ctx context.Context) context.Context {
	return mode.NewContext(ctx, fx.mode)
}

// Close persists the snapshot in RECORD mode. It runs automatically at
// test cleanup; later calls do nothing.
func (fx *Fixture) Close(ctx context.Context) error {
	if fx.closed {
		return nil
	}
	fx.closed = true
	if fx.mode != mode.Record {
		return nil
	}
	if err := fx.ledger.Persist(ctx); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	fx.logger.Info("snapshot written", "snapshot", fx.path, "outcomes", fx.ledger.Snapshot().Len())
	return nil
}

// UserValue passes a value the test computed itself through the ledger:
// RECORD stores v, REPLAY returns the stored value instead of v, and
// PASSTHROUGH returns v. Use it for values that differ between runs, such
// as generated ids and timestamps, that later calls depend on.
//
// Outside REPLAY v must be a value the ledger can record (see ir.FromGo).
// Failures fail the test. A replayed time.Time is the same instant with
// the same zone offset, but the zone name and monotonic reading are gone,
// so compare times with Equal.
func UserValue[T any](fx *Fixture, v T) T {
	fx.tb.Helper()
	out, err := userValue(fx.ledger, v)
	if err != nil {
		fx.tb.Fatalf("user value: %v", err)
	}
	return out
}

// UserString is UserValue for strings.
func (fx *Fixture) UserString(s string) string {
	fx.tb.Helper()
	return UserValue(fx, s)
}

// UserInt64 is UserValue for int64.
func (fx *Fixture) UserInt64(n int64) int64 {
	fx.tb.Helper()
	return UserValue(fx, n)
}

func userValue[T any](l *ledger.Ledger, v T) (T, error) {
	var zero T

	if l.Mode() == mode.Replay {
		// v is ignored, so it need not be encodable
		got, err := l.UserValue(nil)
		if err != nil {
			return zero, err
		}
		return convertTo[T](ir.ToGo(got))
	}

	in, err := ir.FromGo(v)
	if err != nil {
		return zero, err
	}
	if _, err := l.UserValue(in); err != nil {
		return zero, err
	}
	return v, nil
}

// convertTo converts a decoded value to T. Numbers convert between widths
// since every integer replays as int64 and every float as float64.
func convertTo[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	rv := reflect.ValueOf(v)
	target := reflect.TypeFor[T]()
	if isNumber(rv.Kind()) && isNumber(target.Kind()) {
		return rv.Convert(target).Interface().(T), nil
	}
	return zero, fmt.Errorf("stored user value is %T, want %s", v, target)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// SkipForDBMocking skips tb unless the database is used for real, i.e.
// the mode is PASSTHROUGH. Use it for tests that cannot run against a
// recording. Tests without a fixture have no published mode, so the mode
// is resolved from the flags and environment the fixture would use.
func SkipForDBMocking(tb testing.TB) {
	tb.Helper()
	m, err := currentMode()
	if err != nil {
		tb.Fatalf("database fixture: %v", err)
		return
	}
	if m != mode.Passthrough {
		tb.Skipf("skipped while database data is in %q mode", m)
	}
}

func currentMode() (mode.Mode, error) {
	if m, ok := mode.Published(); ok {
		return m, nil
	}
	in, err := resolveIntent(options{})
	if err != nil {
		return mode.Passthrough, err
	}
	res, err := mode.Resolve(in)
	if err != nil {
		return mode.Passthrough, err
	}
	return res.Mode, nil
}
