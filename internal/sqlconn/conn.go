package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/dbtape/internal/dbapi"
)

// queryer is satisfied by both *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is a dbapi.Conn over one pinned database/sql connection.
type Conn struct {
	db         *sql.DB
	conn       *sql.Conn
	driverName string

	autocommit bool
	tx         *sql.Tx
	insertID   int64
	affected   int64
	closed     bool
}

var _ dbapi.Conn = (*Conn)(nil)

// Connector returns a dbapi.ConnectFunc that opens connections with the
// named database/sql driver.
func Connector(driverName string) dbapi.ConnectFunc {
	return func(ctx context.Context, dsn string) (dbapi.Conn, error) {
		c, err := Connect(ctx, driverName, dsn)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Connect opens a connection with the named driver. Autocommit is on.
func Connect(ctx context.Context, driverName, dsn string) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, dbapi.Errorf(dbapi.KindInterface, "open %s: %v", driverName, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, classify(err)
	}

	return &Conn{
		db:         db,
		conn:       conn,
		driverName: driverName,
		autocommit: true,
	}, nil
}

// target returns where the next statement runs. With autocommit off a
// transaction is started lazily.
func (c *Conn) target(ctx context.Context) (queryer, error) {
	if c.closed {
		return nil, errConnClosed
	}
	if c.tx != nil {
		return c.tx, nil
	}
	if c.autocommit {
		return c.conn, nil
	}
	if err := c.Begin(ctx); err != nil {
		return nil, err
	}
	return c.tx, nil
}

// Cursor creates a new buffered cursor.
func (c *Conn) Cursor() (dbapi.Cursor, error) {
	if c.closed {
		return nil, errConnClosed
	}
	return newCursor(c), nil
}

// Open reports whether the connection is still open.
func (c *Conn) Open() (bool, error) {
	return !c.closed, nil
}

// Autocommit reports the autocommit setting.
func (c *Conn) Autocommit() (bool, error) {
	if c.closed {
		return false, errConnClosed
	}
	return c.autocommit, nil
}

// SetAutocommit changes the autocommit setting. Turning it on commits an
// open transaction.
func (c *Conn) SetAutocommit(on bool) error {
	if c.closed {
		return errConnClosed
	}
	if on && c.tx != nil {
		if err := c.Commit(); err != nil {
			return err
		}
	}
	c.autocommit = on
	return nil
}

// Begin starts a transaction explicitly. It is a no-op when one is
// already open.
func (c *Conn) Begin(ctx context.Context) error {
	if c.closed {
		return errConnClosed
	}
	if c.tx != nil {
		return nil
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction, if any.
func (c *Conn) Commit() error {
	if c.closed {
		return errConnClosed
	}
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return classify(tx.Commit())
}

// Rollback rolls back the open transaction, if any.
func (c *Conn) Rollback() error {
	if c.closed {
		return errConnClosed
	}
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return classify(tx.Rollback())
}

// Ping verifies the connection is alive.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed {
		return errConnClosed
	}
	return classify(c.conn.PingContext(ctx))
}

// Escape renders v as an SQL literal.
func (c *Conn) Escape(v any) (string, error) {
	if c.closed {
		return "", errConnClosed
	}
	return Literal(v)
}

// Literal renders v as an SQL literal.
func (c *Conn) Literal(v any) (string, error) {
	return c.Escape(v)
}

// EscapeString doubles single quotes in s.
func (c *Conn) EscapeString(s string) (string, error) {
	if c.closed {
		return "", errConnClosed
	}
	return EscapeString(s), nil
}

// InsertID returns the row id generated by the last insert on any cursor
// of this connection.
func (c *Conn) InsertID() (int64, error) {
	if c.closed {
		return 0, errConnClosed
	}
	return c.insertID, nil
}

// ServerInfo returns the server version string.
func (c *Conn) ServerInfo(ctx context.Context) (string, error) {
	if c.closed {
		return "", errConnClosed
	}

	query := "SELECT version()"
	if c.sqlite() {
		query = "SELECT sqlite_version()"
	}

	var version string
	if err := c.conn.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", classify(err)
	}
	return version, nil
}

func (c *Conn) sqlite() bool {
	return strings.HasPrefix(c.driverName, "sqlite")
}

func (c *Conn) notSupported(member string) error {
	return dbapi.Errorf(dbapi.KindNotSupported, "%s is not supported by %s", member, c.driverName)
}

// scalar runs a single-value query and scans its result into dst.
func (c *Conn) scalar(ctx context.Context, query string, dst any) error {
	if c.closed {
		return errConnClosed
	}
	return classify(c.conn.QueryRowContext(ctx, query).Scan(dst))
}

// HostInfo returns the server host name. SQLite is in-process and reports
// its driver instead.
func (c *Conn) HostInfo(ctx context.Context) (string, error) {
	if c.closed {
		return "", errConnClosed
	}
	if c.sqlite() {
		return "localhost via " + c.driverName, nil
	}
	var host string
	if err := c.scalar(ctx, "SELECT @@hostname", &host); err != nil {
		return "", err
	}
	return host, nil
}

// ProtoInfo returns the server protocol version.
func (c *Conn) ProtoInfo(ctx context.Context) (int, error) {
	if c.closed {
		return 0, errConnClosed
	}
	if c.sqlite() {
		return 0, c.notSupported("get_proto_info")
	}
	var v int
	if err := c.scalar(ctx, "SELECT @@protocol_version", &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ThreadID returns the server connection id.
func (c *Conn) ThreadID(ctx context.Context) (int64, error) {
	if c.closed {
		return 0, errConnClosed
	}
	if c.sqlite() {
		return 0, c.notSupported("thread_id")
	}
	var id int64
	if err := c.scalar(ctx, "SELECT CONNECTION_ID()", &id); err != nil {
		return 0, err
	}
	return id, nil
}

// CharacterSetName returns the text encoding of the connection.
func (c *Conn) CharacterSetName(ctx context.Context) (string, error) {
	query := "SELECT @@character_set_client"
	if c.sqlite() {
		query = "PRAGMA encoding"
	}
	var name string
	if err := c.scalar(ctx, query, &name); err != nil {
		return "", err
	}
	return name, nil
}

// ShowWarnings returns the warnings of the last statement. SQLite has no
// warnings, so the result is always empty there.
func (c *Conn) ShowWarnings(ctx context.Context) ([]dbapi.Row, error) {
	if c.closed {
		return nil, errConnClosed
	}
	if c.sqlite() {
		return []dbapi.Row{}, nil
	}
	cur := newCursor(c)
	defer cur.Close()
	if _, err := cur.Execute(ctx, "SHOW WARNINGS"); err != nil {
		return nil, err
	}
	return cur.FetchAll()
}

// Kill terminates the server connection with threadID.
func (c *Conn) Kill(ctx context.Context, threadID int64) error {
	if c.closed {
		return errConnClosed
	}
	if c.sqlite() {
		return c.notSupported("kill")
	}
	_, err := c.conn.ExecContext(ctx, fmt.Sprintf("KILL %d", threadID))
	return classify(err)
}

// SelectDB switches the default database.
func (c *Conn) SelectDB(ctx context.Context, name string) error {
	if c.closed {
		return errConnClosed
	}
	if c.sqlite() {
		return c.notSupported("select_db")
	}
	_, err := c.conn.ExecContext(ctx, "USE "+quoteIdent(name))
	return classify(err)
}

// SetCharset changes the connection character set. SQLite connections are
// always UTF-8 and accept only UTF-8 names.
func (c *Conn) SetCharset(ctx context.Context, charset string) error {
	if c.closed {
		return errConnClosed
	}
	if c.sqlite() {
		switch strings.ToLower(strings.ReplaceAll(charset, "-", "")) {
		case "utf8", "utf8mb4":
			return nil
		}
		return c.notSupported("set_charset " + charset)
	}
	_, err := c.conn.ExecContext(ctx, "SET NAMES "+quoteIdent(charset))
	return classify(err)
}

// AffectedRows returns the row count of the last statement executed on any
// cursor of this connection.
func (c *Conn) AffectedRows() (int64, error) {
	if c.closed {
		return 0, errConnClosed
	}
	return c.affected, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Close rolls back any open transaction and releases the connection.
// Closing twice is a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil {
			errs = append(errs, err)
		}
		c.tx = nil
	}
	if err := c.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return classify(fmt.Errorf("close: %w", errs[0]))
	}
	return nil
}
