package proxy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ledger"
	"github.com/roach88/dbtape/internal/mode"
	"github.com/roach88/dbtape/internal/testutil"
)

var (
	testColumns = []dbapi.Column{
		{Name: "id", TypeName: "INTEGER"},
		{Name: "name", TypeName: "TEXT", Nullable: true},
		{Name: "seen", TypeName: "TIMESTAMP", Nullable: true},
	}
	testRows = []dbapi.Row{
		{int64(1), "ada", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{int64(2), nil, nil},
		{int64(3), "linus", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)},
	}
)

// trace collects results and errors of a session for comparison.
type trace []any

func (tr *trace) add(v any, err error) {
	if err != nil {
		*tr = append(*tr, fmt.Sprintf("error %s: %s", dbapi.KindOf(err), err))
		return
	}
	*tr = append(*tr, v)
}

func openLedger(t *testing.T, m mode.Mode, store ledger.SnapshotStore) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(context.Background(), ledger.Config{Mode: m, Path: t.Name() + ".db", Store: store})
	require.NoError(t, err)
	return l
}

// recordThenReplay runs session against real in RECORD, persists, then
// runs it again in REPLAY with no real client.
func recordThenReplay(t *testing.T, real dbapi.ConnectFunc, session func(dbapi.Conn) trace) (recorded, replayed trace) {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewMemoryStore()

	rec := openLedger(t, mode.Record, store)
	conn, err := Connect(mode.Record, rec, real)(ctx, "dsn")
	require.NoError(t, err)
	recorded = session(conn)
	require.NoError(t, rec.Persist(ctx))

	rep := openLedger(t, mode.Replay, store)
	conn, err = Connect(mode.Replay, rep, nil)(ctx, "dsn")
	require.NoError(t, err)
	replayed = session(conn)

	assert.Empty(t, rep.Remaining(), "replay should consume every recorded outcome")
	return recorded, replayed
}

func fullSession(conn dbapi.Conn) trace {
	ctx := context.Background()
	var tr trace

	tr.add(conn.Open())
	tr.add(conn.Autocommit())
	tr.add(conn.ServerInfo(ctx))
	tr.add(conn.Escape("x"))
	tr.add(conn.Literal("y"))
	tr.add(conn.EscapeString("z"))

	cur, err := conn.Cursor()
	if err != nil {
		tr.add(nil, err)
		return tr
	}
	tr.add(cur.Description())
	tr.add(cur.Execute(ctx, "SELECT id, name, seen FROM users WHERE id > ?", 0))
	tr.add(cur.Description())
	tr.add(cur.RowCount())
	tr.add(cur.FetchOne())
	tr.add(cur.RowNumber())
	tr.add(cur.FetchMany(1))
	tr.add(nil, cur.Scroll(-1, dbapi.ScrollRelative))
	tr.add(cur.FetchAll())
	tr.add(cur.FetchOne())
	tr.add(nil, cur.Scroll(50, dbapi.ScrollAbsolute))
	tr.add(cur.NextSet())
	tr.add(cur.LastRowID())
	tr.add(conn.InsertID())
	tr.add(cur.ArraySize())
	tr.add(cur.ExecuteMany(ctx, "INSERT INTO users (name) VALUES (?)", [][]any{{"a"}, {"b"}}))
	tr.add(cur.Mogrify("SELECT ?", 1))
	tr.add(cur.CallProc(ctx, "proc", int64(1), "two"))
	tr.add(nil, conn.Commit())
	tr.add(nil, cur.Close())
	tr.add(nil, conn.Close())
	return tr
}

func TestPassthroughReturnsReal(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	l := openLedger(t, mode.Passthrough, nil)

	conn, err := Connect(mode.Passthrough, l, fake.Connector())(context.Background(), "dsn")
	require.NoError(t, err)
	assert.Same(t, fake, conn)
}

func TestRecordReplayRoundTrip(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)

	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		return fullSession(conn)
	})

	assert.Equal(t, recorded, replayed)
	assert.Equal(t, testRows[0], recorded[10], "first fetched row")
	assert.Contains(t, recorded[16], "out of range")
}

func TestReplayNeverTouchesRealClient(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	ctx := context.Background()
	store := ledger.NewMemoryStore()

	rec := openLedger(t, mode.Record, store)
	conn, err := Connect(mode.Record, rec, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	fullSession(conn)
	require.NoError(t, rec.Persist(ctx))
	calls := fake.TotalCalls()

	rep := openLedger(t, mode.Replay, store)
	conn, err = Connect(mode.Replay, rep, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	fullSession(conn)

	assert.Equal(t, calls, fake.TotalCalls())
}

func TestConnectionInfoRoundTrip(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	fake.Warnings = []dbapi.Row{{"Warning", int64(1265), "Data truncated for column 'name' at row 1"}}
	fake.Fail["kill"] = dbapi.NewError(dbapi.KindOperational, "Unknown thread id: 99")

	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		ctx := context.Background()
		var tr trace
		tr.add(conn.HostInfo(ctx))
		tr.add(conn.ProtoInfo(ctx))
		tr.add(conn.ThreadID(ctx))
		tr.add(conn.CharacterSetName(ctx))
		tr.add(conn.ShowWarnings(ctx))
		tr.add(nil, conn.Kill(ctx, 99))
		return tr
	})

	assert.Equal(t, recorded, replayed)
	assert.Equal(t, trace{
		"fake via memory",
		10,
		int64(7),
		"utf8mb4",
		fake.Warnings,
		"error OperationalError: OperationalError: Unknown thread id: 99",
	}, replayed)
}

func TestConnectionInfoKeys(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	ctx := context.Background()
	l := openLedger(t, mode.Record, nil)

	conn, err := Connect(mode.Record, l, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	_, _ = conn.HostInfo(ctx)
	_, _ = conn.ProtoInfo(ctx)
	_, _ = conn.ThreadID(ctx)
	_, _ = conn.CharacterSetName(ctx)
	_, _ = conn.ShowWarnings(ctx)
	_ = conn.Kill(ctx, 1)

	assert.ElementsMatch(t, []ledger.CallKey{
		"connection--get_host_info",
		"connection--get_proto_info",
		"connection--thread_id",
		"connection--character_set_name",
		"connection--show_warnings",
		"connection--kill",
	}, l.Keys())
}

func TestForwardedMembersNotRecorded(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	ctx := context.Background()
	l := openLedger(t, mode.Record, nil)

	conn, err := Connect(mode.Record, l, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.SetAutocommit(false))
	require.NoError(t, conn.Ping(ctx))
	require.NoError(t, conn.Rollback())
	require.NoError(t, conn.SelectDB(ctx, "reporting"))
	require.NoError(t, conn.SetCharset(ctx, "latin1"))
	_, err = conn.AffectedRows()
	require.NoError(t, err)
	cur, err := conn.Cursor()
	require.NoError(t, err)
	cur.SetArraySize(5)
	cur.SetInputSizes(1)
	cur.SetOutputSizes(1)

	assert.Zero(t, l.Snapshot().Len())
	assert.Equal(t, 1, fake.CallCount("begin"))
	assert.Equal(t, 1, fake.CallCount("affected_rows"))
	assert.Equal(t, "reporting", fake.Database)
	assert.Equal(t, "latin1", fake.Charset)
	assert.Equal(t, 1, fake.CallCount("set_arraysize"))
	assert.Equal(t, 1, fake.CallCount("cursor"))

	// The setter took effect on the real cursor.
	size, err := cur.ArraySize()
	require.NoError(t, err)
	assert.Equal(t, 5, size)
}

func TestForwardedFailurePropagatesUnrecorded(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	boom := dbapi.NewError(dbapi.KindOperational, "server has gone away")
	fake.Fail["commit"] = boom
	l := openLedger(t, mode.Record, nil)

	conn, err := Connect(mode.Record, l, fake.Connector())(context.Background(), "dsn")
	require.NoError(t, err)

	assert.Same(t, boom, conn.Commit())
	assert.Zero(t, l.Snapshot().Len())
}

func TestReplayNoOps(t *testing.T) {
	store := ledger.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), t.Name()+".db", ledger.Snapshot{}))
	l := openLedger(t, mode.Replay, store)
	ctx := context.Background()

	conn := NewReplayConn(l)
	assert.NoError(t, conn.Begin(ctx))
	assert.NoError(t, conn.Commit())
	assert.NoError(t, conn.Rollback())
	assert.NoError(t, conn.Ping(ctx))
	assert.NoError(t, conn.SetAutocommit(true))
	assert.NoError(t, conn.SelectDB(ctx, "other"))
	assert.NoError(t, conn.SetCharset(ctx, "utf8mb4"))
	_, err := conn.AffectedRows()
	assert.True(t, dbapi.IsNotSupported(err))
	assert.NoError(t, conn.Close())

	cur, err := conn.Cursor()
	require.NoError(t, err)
	cur.SetArraySize(3)
	cur.SetInputSizes()
	cur.SetOutputSizes(1, 2)
	assert.NoError(t, cur.Close())
}

func TestFailureRecordedAndReRaised(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	orig := &dbapi.Error{Kind: dbapi.KindIntegrity, Code: 1062, Message: "Duplicate entry 'ada' for key 'name'"}
	fake.Fail["execute"] = orig

	var recordedErr error
	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		var tr trace
		cur, _ := conn.Cursor()
		_, err := cur.Execute(context.Background(), "INSERT INTO users (name) VALUES ('ada')")
		if recordedErr == nil {
			recordedErr = err
		}
		tr.add(nil, err)
		return tr
	})

	assert.Same(t, orig, recordedErr, "RECORD re-raises the real error unchanged")
	assert.Equal(t, recorded, replayed)
	assert.Equal(t, trace{"error IntegrityError: IntegrityError: (1062) Duplicate entry 'ada' for key 'name'"}, replayed)
}

func TestConnectionFacetFailure(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	fake.Fail["get_server_info"] = errors.New("handshake incomplete")

	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		var tr trace
		tr.add(conn.ServerInfo(context.Background()))
		return tr
	})
	assert.Equal(t, recorded, replayed)
	assert.Equal(t, trace{"error : handshake incomplete"}, replayed)
}

func TestCursorsShareQueues(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)

	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		ctx := context.Background()
		var tr trace
		a, _ := conn.Cursor()
		b, _ := conn.Cursor()
		tr.add(a.Execute(ctx, "SELECT 1"))
		tr.add(b.Execute(ctx, "SELECT 2"))
		tr.add(a.FetchOne())
		tr.add(b.FetchOne())
		tr.add(b.FetchOne())
		tr.add(a.FetchOne())
		return tr
	})

	assert.Equal(t, recorded, replayed)
	// Each fake cursor reads from the start independently.
	assert.Equal(t, testRows[0], recorded[2])
	assert.Equal(t, testRows[0], recorded[3])
	assert.Equal(t, testRows[1], recorded[4])
	assert.Equal(t, testRows[1], recorded[5])
}

func TestReplayExhaustedSurfaces(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)
	ctx := context.Background()
	store := ledger.NewMemoryStore()

	rec := openLedger(t, mode.Record, store)
	conn, err := Connect(mode.Record, rec, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	cur, _ := conn.Cursor()
	_, err = cur.Execute(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, rec.Persist(ctx))

	rep := openLedger(t, mode.Replay, store)
	conn, _ = Connect(mode.Replay, rep, nil)(ctx, "dsn")
	cur, _ = conn.Cursor()
	_, err = cur.Execute(ctx, "SELECT 1")
	require.NoError(t, err)

	_, err = cur.FetchOne()
	require.Error(t, err)
	assert.True(t, ledger.IsReplayExhausted(err))
	assert.Contains(t, err.Error(), "cursor--fetchone")
}

func TestUnrecordableRowStillReturned(t *testing.T) {
	type opaque struct{}
	fake := testutil.NewFakeConn(testColumns, dbapi.Row{opaque{}})
	ctx := context.Background()
	l := openLedger(t, mode.Record, ledger.NewMemoryStore())

	conn, err := Connect(mode.Record, l, fake.Connector())(ctx, "dsn")
	require.NoError(t, err)
	cur, _ := conn.Cursor()
	_, err = cur.Execute(ctx, "SELECT odd")
	require.NoError(t, err)

	row, err := cur.FetchOne()
	require.NoError(t, err)
	assert.Equal(t, dbapi.Row{opaque{}}, row)

	assert.True(t, ledger.IsUnrecordable(l.Err()))
	assert.Error(t, l.Persist(ctx))
}

func TestRecordConnectFailureNotRecorded(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns)
	fake.Fail["connect"] = dbapi.NewError(dbapi.KindOperational, "connection refused")
	l := openLedger(t, mode.Record, nil)

	_, err := Connect(mode.Record, l, fake.Connector())(context.Background(), "dsn")
	assert.True(t, dbapi.IsOperational(err))
	assert.Zero(t, l.Snapshot().Len())
}

func TestRowsIteratorReplays(t *testing.T) {
	fake := testutil.NewFakeConn(testColumns, testRows...)

	recorded, replayed := recordThenReplay(t, fake.Connector(), func(conn dbapi.Conn) trace {
		var tr trace
		cur, _ := conn.Cursor()
		tr.add(cur.Execute(context.Background(), "SELECT *"))
		for row, err := range dbapi.Rows(cur) {
			tr.add(row, err)
		}
		return tr
	})
	assert.Equal(t, recorded, replayed)
	assert.Len(t, replayed, 4)
}
