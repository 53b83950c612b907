// Package dbapi defines the closed client surface that is recorded and
// replayed: a connection facet and a cursor facet with DB-API semantics.
//
// Three implementations exist: the real delegate (internal/sqlconn), the
// recording decorator and the replay stub (internal/proxy). Code under test
// depends only on these interfaces.
package dbapi

import (
	"context"
	"iter"
)

// Row is one result row. Values are the plain Go values a database/sql
// driver produces: nil, int64, float64, bool, []byte, string, time.Time.
type Row []any

// Column describes one result column.
type Column struct {
	Name     string
	TypeName string
	Nullable bool
}

// ScrollMode selects how Cursor.Scroll interprets its offset.
type ScrollMode string

const (
	ScrollRelative ScrollMode = "relative"
	ScrollAbsolute ScrollMode = "absolute"
)

// ConnectFunc opens a connection. It stands in for the client library's
// connect function; dsn is passed through to the driver untouched.
type ConnectFunc func(ctx context.Context, dsn string) (Conn, error)

// Conn is the connection facet.
type Conn interface {
	// Cursor creates a new cursor bound to this connection.
	Cursor() (Cursor, error)

	// Open reports whether the connection is usable.
	Open() (bool, error)
	// Autocommit reports the current autocommit mode.
	Autocommit() (bool, error)
	// SetAutocommit switches autocommit on or off.
	SetAutocommit(on bool) error

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	Ping(ctx context.Context) error

	// Escape renders v as an SQL literal.
	Escape(v any) (string, error)
	// Literal is Escape under its DB-API alias.
	Literal(v any) (string, error)
	// EscapeString escapes s for inclusion inside a quoted SQL string.
	EscapeString(s string) (string, error)

	// InsertID returns the id generated by the last INSERT on this connection.
	InsertID() (int64, error)
	// ServerInfo returns the server version string.
	ServerInfo(ctx context.Context) (string, error)
	// HostInfo describes the server host and transport.
	HostInfo(ctx context.Context) (string, error)
	// ProtoInfo returns the wire protocol version.
	ProtoInfo(ctx context.Context) (int, error)
	// ThreadID returns the server-side id of this connection.
	ThreadID(ctx context.Context) (int64, error)
	// CharacterSetName returns the connection character set.
	CharacterSetName(ctx context.Context) (string, error)
	// ShowWarnings returns the warnings left by the last statement as
	// (level, code, message) rows.
	ShowWarnings(ctx context.Context) ([]Row, error)
	// Kill asks the server to terminate the connection with threadID.
	Kill(ctx context.Context, threadID int64) error

	SelectDB(ctx context.Context, name string) error
	SetCharset(ctx context.Context, charset string) error
	// AffectedRows returns the row count of the last statement run on any
	// cursor of this connection.
	AffectedRows() (int64, error)

	Close() error
}

// Cursor is the cursor facet. A cursor buffers the result of the last
// statement it executed.
type Cursor interface {
	// Execute runs query and returns the number of affected or returned rows.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	// ExecuteMany runs query once per argument list and sums the counts.
	ExecuteMany(ctx context.Context, query string, argSets [][]any) (int64, error)
	// Mogrify returns query with args interpolated, as it would be sent.
	Mogrify(query string, args ...any) (string, error)
	// CallProc calls a stored procedure and returns its (possibly modified) args.
	CallProc(ctx context.Context, name string, args ...any) ([]any, error)

	// FetchOne returns the next row, or nil when the result is exhausted.
	FetchOne() (Row, error)
	// FetchMany returns up to size rows; size <= 0 means ArraySize.
	FetchMany(size int) ([]Row, error)
	// FetchAll returns all remaining rows.
	FetchAll() ([]Row, error)
	// NextSet advances to the next result set, reporting whether one exists.
	NextSet() (bool, error)
	// Scroll moves the row position.
	Scroll(value int, mode ScrollMode) error

	Description() ([]Column, error)
	RowCount() (int64, error)
	RowNumber() (int64, error)
	LastRowID() (int64, error)
	ArraySize() (int, error)
	SetArraySize(n int)

	SetInputSizes(sizes ...any)
	SetOutputSizes(size int, column ...int)

	Close() error
}

// Rows iterates over the remaining rows of c by repeated FetchOne calls.
// Iteration stops at the end of the result or at the first error, which is
// yielded once.
func Rows(c Cursor) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := c.FetchOne()
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
