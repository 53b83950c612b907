package proxy

import (
	"context"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ledger"
)

// ReplayConn answers connection calls from the ledger. It never touches a
// real connection; arguments of replayed calls are ignored.
type ReplayConn struct {
	ledger *ledger.Ledger
}

var _ dbapi.Conn = (*ReplayConn)(nil)

func errNotReplayed(member string) error {
	return dbapi.Errorf(dbapi.KindNotSupported, "%s is not recorded and cannot be replayed", member)
}

// NewReplayConn creates a replay connection over l.
func NewReplayConn(l *ledger.Ledger) *ReplayConn {
	return &ReplayConn{ledger: l}
}

// Cursor returns a fresh replay cursor over the same ledger.
func (c *ReplayConn) Cursor() (dbapi.Cursor, error) {
	return NewReplayCursor(c.ledger), nil
}

func (c *ReplayConn) Open() (bool, error) {
	return ledger.Take(c.ledger, KeyOpen, decodeBool)
}

func (c *ReplayConn) Autocommit() (bool, error) {
	return ledger.Take(c.ledger, KeyAutocommit, decodeBool)
}

func (c *ReplayConn) Escape(any) (string, error) {
	return ledger.Take(c.ledger, KeyEscape, decodeString)
}

func (c *ReplayConn) Literal(any) (string, error) {
	return ledger.Take(c.ledger, KeyLiteral, decodeString)
}

func (c *ReplayConn) EscapeString(string) (string, error) {
	return ledger.Take(c.ledger, KeyEscapeString, decodeString)
}

func (c *ReplayConn) InsertID() (int64, error) {
	return ledger.Take(c.ledger, KeyInsertID, decodeInt64)
}

func (c *ReplayConn) ServerInfo(context.Context) (string, error) {
	return ledger.Take(c.ledger, KeyServerInfo, decodeString)
}

func (c *ReplayConn) HostInfo(context.Context) (string, error) {
	return ledger.Take(c.ledger, KeyHostInfo, decodeString)
}

func (c *ReplayConn) ProtoInfo(context.Context) (int, error) {
	return ledger.Take(c.ledger, KeyProtoInfo, decodeInt)
}

func (c *ReplayConn) ThreadID(context.Context) (int64, error) {
	return ledger.Take(c.ledger, KeyThreadID, decodeInt64)
}

func (c *ReplayConn) CharacterSetName(context.Context) (string, error) {
	return ledger.Take(c.ledger, KeyCharsetName, decodeString)
}

func (c *ReplayConn) ShowWarnings(context.Context) ([]dbapi.Row, error) {
	return ledger.Take(c.ledger, KeyShowWarnings, decodeRows)
}

func (c *ReplayConn) Kill(context.Context, int64) error {
	_, err := ledger.Take(c.ledger, KeyKill, decodeUnit)
	return err
}

// AffectedRows is never recorded, so there is nothing to replay.
func (c *ReplayConn) AffectedRows() (int64, error) {
	return 0, errNotReplayed("affected_rows")
}

// No-op members.

func (c *ReplayConn) SelectDB(context.Context, string) error   { return nil }
func (c *ReplayConn) SetCharset(context.Context, string) error { return nil }

func (c *ReplayConn) SetAutocommit(bool) error    { return nil }
func (c *ReplayConn) Begin(context.Context) error { return nil }
func (c *ReplayConn) Commit() error               { return nil }
func (c *ReplayConn) Rollback() error             { return nil }
func (c *ReplayConn) Ping(context.Context) error  { return nil }
func (c *ReplayConn) Close() error                { return nil }

// ReplayCursor answers cursor calls from the ledger.
type ReplayCursor struct {
	ledger *ledger.Ledger
}

var _ dbapi.Cursor = (*ReplayCursor)(nil)

// NewReplayCursor creates a replay cursor over l.
func NewReplayCursor(l *ledger.Ledger) *ReplayCursor {
	return &ReplayCursor{ledger: l}
}

func (c *ReplayCursor) Execute(context.Context, string, ...any) (int64, error) {
	return ledger.Take(c.ledger, KeyExecute, decodeInt64)
}

func (c *ReplayCursor) ExecuteMany(context.Context, string, [][]any) (int64, error) {
	return ledger.Take(c.ledger, KeyExecuteMany, decodeInt64)
}

func (c *ReplayCursor) Mogrify(string, ...any) (string, error) {
	return ledger.Take(c.ledger, KeyMogrify, decodeString)
}

func (c *ReplayCursor) CallProc(context.Context, string, ...any) ([]any, error) {
	return ledger.Take(c.ledger, KeyCallProc, decodeValues)
}

func (c *ReplayCursor) FetchOne() (dbapi.Row, error) {
	return ledger.Take(c.ledger, KeyFetchOne, decodeRow)
}

func (c *ReplayCursor) FetchMany(int) ([]dbapi.Row, error) {
	return ledger.Take(c.ledger, KeyFetchMany, decodeRows)
}

func (c *ReplayCursor) FetchAll() ([]dbapi.Row, error) {
	return ledger.Take(c.ledger, KeyFetchAll, decodeRows)
}

func (c *ReplayCursor) NextSet() (bool, error) {
	return ledger.Take(c.ledger, KeyNextSet, decodeBool)
}

func (c *ReplayCursor) Scroll(int, dbapi.ScrollMode) error {
	_, err := ledger.Take(c.ledger, KeyScroll, decodeUnit)
	return err
}

func (c *ReplayCursor) Description() ([]dbapi.Column, error) {
	return ledger.Take(c.ledger, KeyDescription, decodeColumns)
}

func (c *ReplayCursor) RowCount() (int64, error) {
	return ledger.Take(c.ledger, KeyRowCount, decodeInt64)
}

func (c *ReplayCursor) RowNumber() (int64, error) {
	return ledger.Take(c.ledger, KeyRowNumber, decodeInt64)
}

func (c *ReplayCursor) LastRowID() (int64, error) {
	return ledger.Take(c.ledger, KeyLastRowID, decodeInt64)
}

func (c *ReplayCursor) ArraySize() (int, error) {
	return ledger.Take(c.ledger, KeyArraySize, decodeInt)
}

// No-op members.

func (c *ReplayCursor) SetArraySize(int)           {}
func (c *ReplayCursor) SetInputSizes(...any)       {}
func (c *ReplayCursor) SetOutputSizes(int, ...int) {}
func (c *ReplayCursor) Close() error               { return nil }
