package testutil

import (
	"context"
	"sync"

	"github.com/roach88/dbtape/internal/dbapi"
)

// FakeConn is a scripted dbapi.Conn. Every cursor it creates serves the
// same Rows after each Execute. Fail injects an error for a member, keyed
// by the ledger member name ("execute", "fetchone", "open", ...).
//
// Every member call is appended to Calls, including calls made on its
// cursors, so tests can assert the real client was (or was not) used.
type FakeConn struct {
	mu sync.Mutex

	Rows       []dbapi.Row
	Columns    []dbapi.Column
	Server     string
	Host       string
	Charset    string
	Thread     int64
	Warnings   []dbapi.Row
	Database   string
	Fail       map[string]error
	Calls      []string
	autocommit bool
	closed     bool
	insertID   int64
	affected   int64
}

var _ dbapi.Conn = (*FakeConn)(nil)

// NewFakeConn creates a FakeConn serving rows with the given columns.
func NewFakeConn(columns []dbapi.Column, rows ...dbapi.Row) *FakeConn {
	return &FakeConn{
		Rows:       rows,
		Columns:    columns,
		Server:     "fake-1.0",
		Host:       "fake via memory",
		Charset:    "utf8mb4",
		Thread:     7,
		Fail:       make(map[string]error),
		autocommit: true,
	}
}

// Connector returns a ConnectFunc that always yields c. The number of
// connect calls is visible through Calls as "connect".
func (c *FakeConn) Connector() dbapi.ConnectFunc {
	return func(context.Context, string) (dbapi.Conn, error) {
		if err := c.call("connect"); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// CallCount returns how many times member was called.
func (c *FakeConn) CallCount(member string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Calls {
		if m == member {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of member calls seen.
func (c *FakeConn) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

func (c *FakeConn) call(member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, member)
	return c.Fail[member]
}

func (c *FakeConn) Cursor() (dbapi.Cursor, error) {
	if err := c.call("cursor"); err != nil {
		return nil, err
	}
	return &FakeCursor{conn: c, rowCount: -1, arraySize: 1}, nil
}

func (c *FakeConn) Open() (bool, error) {
	if err := c.call("open"); err != nil {
		return false, err
	}
	return !c.closed, nil
}

func (c *FakeConn) Autocommit() (bool, error) {
	if err := c.call("get_autocommit"); err != nil {
		return false, err
	}
	return c.autocommit, nil
}

func (c *FakeConn) SetAutocommit(on bool) error {
	if err := c.call("autocommit"); err != nil {
		return err
	}
	c.autocommit = on
	return nil
}

func (c *FakeConn) Begin(context.Context) error { return c.call("begin") }
func (c *FakeConn) Commit() error               { return c.call("commit") }
func (c *FakeConn) Rollback() error             { return c.call("rollback") }
func (c *FakeConn) Ping(context.Context) error  { return c.call("ping") }

func (c *FakeConn) Escape(v any) (string, error) {
	if err := c.call("escape"); err != nil {
		return "", err
	}
	return literal(v), nil
}

func (c *FakeConn) Literal(v any) (string, error) {
	if err := c.call("literal"); err != nil {
		return "", err
	}
	return literal(v), nil
}

func (c *FakeConn) EscapeString(s string) (string, error) {
	if err := c.call("escape_string"); err != nil {
		return "", err
	}
	return s, nil
}

func (c *FakeConn) InsertID() (int64, error) {
	if err := c.call("insert_id"); err != nil {
		return 0, err
	}
	return c.insertID, nil
}

func (c *FakeConn) ServerInfo(context.Context) (string, error) {
	if err := c.call("get_server_info"); err != nil {
		return "", err
	}
	return c.Server, nil
}

func (c *FakeConn) HostInfo(context.Context) (string, error) {
	if err := c.call("get_host_info"); err != nil {
		return "", err
	}
	return c.Host, nil
}

// ProtoInfo reports MySQL protocol version 10.
func (c *FakeConn) ProtoInfo(context.Context) (int, error) {
	if err := c.call("get_proto_info"); err != nil {
		return 0, err
	}
	return 10, nil
}

func (c *FakeConn) ThreadID(context.Context) (int64, error) {
	if err := c.call("thread_id"); err != nil {
		return 0, err
	}
	return c.Thread, nil
}

func (c *FakeConn) CharacterSetName(context.Context) (string, error) {
	if err := c.call("character_set_name"); err != nil {
		return "", err
	}
	return c.Charset, nil
}

func (c *FakeConn) ShowWarnings(context.Context) ([]dbapi.Row, error) {
	if err := c.call("show_warnings"); err != nil {
		return nil, err
	}
	return c.Warnings, nil
}

func (c *FakeConn) Kill(context.Context, int64) error { return c.call("kill") }

func (c *FakeConn) SelectDB(_ context.Context, name string) error {
	if err := c.call("select_db"); err != nil {
		return err
	}
	c.Database = name
	return nil
}

func (c *FakeConn) SetCharset(_ context.Context, charset string) error {
	if err := c.call("set_charset"); err != nil {
		return err
	}
	c.Charset = charset
	return nil
}

func (c *FakeConn) AffectedRows() (int64, error) {
	if err := c.call("affected_rows"); err != nil {
		return 0, err
	}
	return c.affected, nil
}

func (c *FakeConn) Close() error {
	if err := c.call("close"); err != nil {
		return err
	}
	c.closed = true
	return nil
}

func literal(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return "?"
}

// FakeCursor is the cursor created by FakeConn.
type FakeCursor struct {
	conn      *FakeConn
	pos       int
	executed  bool
	rowCount  int64
	lastRowID int64
	arraySize int
}

var _ dbapi.Cursor = (*FakeCursor)(nil)

func (c *FakeCursor) Execute(_ context.Context, query string, args ...any) (int64, error) {
	if err := c.conn.call("execute"); err != nil {
		return 0, err
	}
	c.executed = true
	c.pos = 0
	c.rowCount = int64(len(c.conn.Rows))
	c.conn.insertID++
	c.conn.affected = c.rowCount
	c.lastRowID = c.conn.insertID
	return c.rowCount, nil
}

func (c *FakeCursor) ExecuteMany(_ context.Context, query string, argSets [][]any) (int64, error) {
	if err := c.conn.call("executemany"); err != nil {
		return 0, err
	}
	c.rowCount = int64(len(argSets))
	return c.rowCount, nil
}

func (c *FakeCursor) Mogrify(query string, args ...any) (string, error) {
	if err := c.conn.call("mogrify"); err != nil {
		return "", err
	}
	return query, nil
}

func (c *FakeCursor) CallProc(_ context.Context, name string, args ...any) ([]any, error) {
	if err := c.conn.call("callproc"); err != nil {
		return nil, err
	}
	return args, nil
}

func (c *FakeCursor) FetchOne() (dbapi.Row, error) {
	if err := c.conn.call("fetchone"); err != nil {
		return nil, err
	}
	if c.pos >= len(c.conn.Rows) {
		return nil, nil
	}
	row := c.conn.Rows[c.pos]
	c.pos++
	return row, nil
}

func (c *FakeCursor) FetchMany(size int) ([]dbapi.Row, error) {
	if err := c.conn.call("fetchmany"); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = c.arraySize
	}
	end := min(c.pos+size, len(c.conn.Rows))
	rows := append([]dbapi.Row{}, c.conn.Rows[c.pos:end]...)
	c.pos = end
	return rows, nil
}

func (c *FakeCursor) FetchAll() ([]dbapi.Row, error) {
	if err := c.conn.call("fetchall"); err != nil {
		return nil, err
	}
	rows := append([]dbapi.Row{}, c.conn.Rows[c.pos:]...)
	c.pos = len(c.conn.Rows)
	return rows, nil
}

func (c *FakeCursor) NextSet() (bool, error) {
	if err := c.conn.call("nextset"); err != nil {
		return false, err
	}
	return false, nil
}

func (c *FakeCursor) Scroll(value int, mode dbapi.ScrollMode) error {
	if err := c.conn.call("scroll"); err != nil {
		return err
	}
	pos := c.pos + value
	if mode == dbapi.ScrollAbsolute {
		pos = value
	}
	if pos < 0 || pos >= len(c.conn.Rows) {
		return dbapi.NewError(dbapi.KindProgramming, "out of range")
	}
	c.pos = pos
	return nil
}

func (c *FakeCursor) Description() ([]dbapi.Column, error) {
	if err := c.conn.call("description"); err != nil {
		return nil, err
	}
	if !c.executed {
		return nil, nil
	}
	return c.conn.Columns, nil
}

func (c *FakeCursor) RowCount() (int64, error) {
	if err := c.conn.call("rowcount"); err != nil {
		return 0, err
	}
	return c.rowCount, nil
}

func (c *FakeCursor) RowNumber() (int64, error) {
	if err := c.conn.call("rownumber"); err != nil {
		return 0, err
	}
	return int64(c.pos), nil
}

func (c *FakeCursor) LastRowID() (int64, error) {
	if err := c.conn.call("lastrowid"); err != nil {
		return 0, err
	}
	return c.lastRowID, nil
}

func (c *FakeCursor) ArraySize() (int, error) {
	if err := c.conn.call("arraysize"); err != nil {
		return 0, err
	}
	return c.arraySize, nil
}

func (c *FakeCursor) SetArraySize(n int) {
	_ = c.conn.call("set_arraysize")
	c.arraySize = n
}

func (c *FakeCursor) SetInputSizes(...any) {
	_ = c.conn.call("setinputsizes")
}

func (c *FakeCursor) SetOutputSizes(int, ...int) {
	_ = c.conn.call("setoutputsizes")
}

func (c *FakeCursor) Close() error {
	return c.conn.call("cursor_close")
}
