package proxy

import (
	"context"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ledger"
)

// RecordingConn wraps a real connection and records observable outcomes.
type RecordingConn struct {
	real   dbapi.Conn
	ledger *ledger.Ledger
}

var _ dbapi.Conn = (*RecordingConn)(nil)

// NewRecordingConn wraps real, recording into l.
func NewRecordingConn(real dbapi.Conn, l *ledger.Ledger) *RecordingConn {
	return &RecordingConn{real: real, ledger: l}
}

// Unwrap returns the real connection.
func (c *RecordingConn) Unwrap() dbapi.Conn {
	return c.real
}

// Cursor wraps a new real cursor. Cursor creation itself is not recorded.
func (c *RecordingConn) Cursor() (dbapi.Cursor, error) {
	cur, err := c.real.Cursor()
	if err != nil {
		return nil, err
	}
	return NewRecordingCursor(cur, c.ledger), nil
}

func (c *RecordingConn) Open() (bool, error) {
	return ledger.Capture(c.ledger, KeyOpen, c.real.Open, encodeBool)
}

func (c *RecordingConn) Autocommit() (bool, error) {
	return ledger.Capture(c.ledger, KeyAutocommit, c.real.Autocommit, encodeBool)
}

func (c *RecordingConn) Escape(v any) (string, error) {
	return ledger.Capture(c.ledger, KeyEscape, func() (string, error) {
		return c.real.Escape(v)
	}, encodeString)
}

func (c *RecordingConn) Literal(v any) (string, error) {
	return ledger.Capture(c.ledger, KeyLiteral, func() (string, error) {
		return c.real.Literal(v)
	}, encodeString)
}

func (c *RecordingConn) EscapeString(s string) (string, error) {
	return ledger.Capture(c.ledger, KeyEscapeString, func() (string, error) {
		return c.real.EscapeString(s)
	}, encodeString)
}

func (c *RecordingConn) InsertID() (int64, error) {
	return ledger.Capture(c.ledger, KeyInsertID, c.real.InsertID, encodeInt64)
}

func (c *RecordingConn) ServerInfo(ctx context.Context) (string, error) {
	return ledger.Capture(c.ledger, KeyServerInfo, func() (string, error) {
		return c.real.ServerInfo(ctx)
	}, encodeString)
}

func (c *RecordingConn) HostInfo(ctx context.Context) (string, error) {
	return ledger.Capture(c.ledger, KeyHostInfo, func() (string, error) {
		return c.real.HostInfo(ctx)
	}, encodeString)
}

func (c *RecordingConn) ProtoInfo(ctx context.Context) (int, error) {
	return ledger.Capture(c.ledger, KeyProtoInfo, func() (int, error) {
		return c.real.ProtoInfo(ctx)
	}, encodeInt)
}

func (c *RecordingConn) ThreadID(ctx context.Context) (int64, error) {
	return ledger.Capture(c.ledger, KeyThreadID, func() (int64, error) {
		return c.real.ThreadID(ctx)
	}, encodeInt64)
}

func (c *RecordingConn) CharacterSetName(ctx context.Context) (string, error) {
	return ledger.Capture(c.ledger, KeyCharsetName, func() (string, error) {
		return c.real.CharacterSetName(ctx)
	}, encodeString)
}

func (c *RecordingConn) ShowWarnings(ctx context.Context) ([]dbapi.Row, error) {
	return ledger.Capture(c.ledger, KeyShowWarnings, func() ([]dbapi.Row, error) {
		return c.real.ShowWarnings(ctx)
	}, encodeRows)
}

func (c *RecordingConn) Kill(ctx context.Context, threadID int64) error {
	_, err := ledger.Capture(c.ledger, KeyKill, func() (unit, error) {
		return unit{}, c.real.Kill(ctx, threadID)
	}, encodeUnit)
	return err
}

// Forwarded members. Their effects are not observable as values, so they
// are not recorded; errors propagate unchanged.

func (c *RecordingConn) SelectDB(ctx context.Context, name string) error {
	return c.real.SelectDB(ctx, name)
}

func (c *RecordingConn) SetCharset(ctx context.Context, charset string) error {
	return c.real.SetCharset(ctx, charset)
}

// AffectedRows is forwarded unrecorded; a replay connection cannot answer it.
func (c *RecordingConn) AffectedRows() (int64, error) { return c.real.AffectedRows() }

func (c *RecordingConn) SetAutocommit(on bool) error     { return c.real.SetAutocommit(on) }
func (c *RecordingConn) Begin(ctx context.Context) error { return c.real.Begin(ctx) }
func (c *RecordingConn) Commit() error                   { return c.real.Commit() }
func (c *RecordingConn) Rollback() error                 { return c.real.Rollback() }
func (c *RecordingConn) Ping(ctx context.Context) error  { return c.real.Ping(ctx) }
func (c *RecordingConn) Close() error                    { return c.real.Close() }

// RecordingCursor wraps a real cursor and records observable outcomes.
type RecordingCursor struct {
	real   dbapi.Cursor
	ledger *ledger.Ledger
}

var _ dbapi.Cursor = (*RecordingCursor)(nil)

// NewRecordingCursor wraps real, recording into l.
func NewRecordingCursor(real dbapi.Cursor, l *ledger.Ledger) *RecordingCursor {
	return &RecordingCursor{real: real, ledger: l}
}

// Unwrap returns the real cursor.
func (c *RecordingCursor) Unwrap() dbapi.Cursor {
	return c.real
}

func (c *RecordingCursor) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return ledger.Capture(c.ledger, KeyExecute, func() (int64, error) {
		return c.real.Execute(ctx, query, args...)
	}, encodeInt64)
}

func (c *RecordingCursor) ExecuteMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	return ledger.Capture(c.ledger, KeyExecuteMany, func() (int64, error) {
		return c.real.ExecuteMany(ctx, query, argSets)
	}, encodeInt64)
}

func (c *RecordingCursor) Mogrify(query string, args ...any) (string, error) {
	return ledger.Capture(c.ledger, KeyMogrify, func() (string, error) {
		return c.real.Mogrify(query, args...)
	}, encodeString)
}

func (c *RecordingCursor) CallProc(ctx context.Context, name string, args ...any) ([]any, error) {
	return ledger.Capture(c.ledger, KeyCallProc, func() ([]any, error) {
		return c.real.CallProc(ctx, name, args...)
	}, encodeValues)
}

func (c *RecordingCursor) FetchOne() (dbapi.Row, error) {
	return ledger.Capture(c.ledger, KeyFetchOne, c.real.FetchOne, encodeRow)
}

func (c *RecordingCursor) FetchMany(size int) ([]dbapi.Row, error) {
	return ledger.Capture(c.ledger, KeyFetchMany, func() ([]dbapi.Row, error) {
		return c.real.FetchMany(size)
	}, encodeRows)
}

func (c *RecordingCursor) FetchAll() ([]dbapi.Row, error) {
	return ledger.Capture(c.ledger, KeyFetchAll, c.real.FetchAll, encodeRows)
}

func (c *RecordingCursor) NextSet() (bool, error) {
	return ledger.Capture(c.ledger, KeyNextSet, c.real.NextSet, encodeBool)
}

func (c *RecordingCursor) Scroll(value int, mode dbapi.ScrollMode) error {
	_, err := ledger.Capture(c.ledger, KeyScroll, func() (unit, error) {
		return unit{}, c.real.Scroll(value, mode)
	}, encodeUnit)
	return err
}

func (c *RecordingCursor) Description() ([]dbapi.Column, error) {
	return ledger.Capture(c.ledger, KeyDescription, c.real.Description, encodeColumns)
}

func (c *RecordingCursor) RowCount() (int64, error) {
	return ledger.Capture(c.ledger, KeyRowCount, c.real.RowCount, encodeInt64)
}

func (c *RecordingCursor) RowNumber() (int64, error) {
	return ledger.Capture(c.ledger, KeyRowNumber, c.real.RowNumber, encodeInt64)
}

func (c *RecordingCursor) LastRowID() (int64, error) {
	return ledger.Capture(c.ledger, KeyLastRowID, c.real.LastRowID, encodeInt64)
}

func (c *RecordingCursor) ArraySize() (int, error) {
	return ledger.Capture(c.ledger, KeyArraySize, c.real.ArraySize, encodeInt)
}

// Forwarded members.

func (c *RecordingCursor) SetArraySize(n int)                   { c.real.SetArraySize(n) }
func (c *RecordingCursor) SetInputSizes(sizes ...any)           { c.real.SetInputSizes(sizes...) }
func (c *RecordingCursor) SetOutputSizes(size int, cols ...int) { c.real.SetOutputSizes(size, cols...) }
func (c *RecordingCursor) Close() error                         { return c.real.Close() }
