package sqlconn

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/roach88/dbtape/internal/dbapi"
)

// resultSet is one buffered result of a row-returning statement.
type resultSet struct {
	columns []dbapi.Column
	rows    []dbapi.Row
}

// Cursor is a buffered dbapi.Cursor.
type Cursor struct {
	conn      *Conn
	arraySize int

	sets      []resultSet
	set       int
	pos       int
	rowCount  int64
	lastRowID int64
	closed    bool
}

var _ dbapi.Cursor = (*Cursor)(nil)

func newCursor(c *Conn) *Cursor {
	return &Cursor{conn: c, arraySize: 1, rowCount: -1}
}

func (c *Cursor) check() error {
	if c.closed {
		return errCursorClosed
	}
	if c.conn.closed {
		return errConnClosed
	}
	return nil
}

func (c *Cursor) current() *resultSet {
	if c.set >= len(c.sets) {
		return nil
	}
	return &c.sets[c.set]
}

func (c *Cursor) reset() {
	c.sets = nil
	c.set = 0
	c.pos = 0
}

// Execute runs query with args. It returns the number of rows returned
// (row-returning statements) or affected (others).
func (c *Cursor) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	target, err := c.conn.target(ctx)
	if err != nil {
		return 0, err
	}
	c.reset()

	if returnsRows(query) {
		return c.query(ctx, target, query, args)
	}

	res, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		c.rowCount = -1
		return 0, classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}
	c.rowCount = affected
	c.conn.affected = affected

	if id, err := res.LastInsertId(); err == nil && id != 0 {
		c.lastRowID = id
		c.conn.insertID = id
	}
	return affected, nil
}

func (c *Cursor) query(ctx context.Context, target queryer, query string, args []any) (int64, error) {
	rows, err := target.QueryContext(ctx, query, args...)
	if err != nil {
		c.rowCount = -1
		return 0, classify(err)
	}
	defer rows.Close()

	for {
		set, err := readSet(rows)
		if err != nil {
			c.reset()
			c.rowCount = -1
			return 0, classify(err)
		}
		c.sets = append(c.sets, set)
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		c.reset()
		c.rowCount = -1
		return 0, classify(err)
	}

	c.rowCount = int64(len(c.sets[0].rows))
	c.conn.affected = c.rowCount
	return c.rowCount, nil
}

// readSet buffers the current result set of rows.
func readSet(rows *sql.Rows) (resultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return resultSet{}, err
	}

	set := resultSet{columns: make([]dbapi.Column, len(types))}
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		set.columns[i] = dbapi.Column{
			Name:     ct.Name(),
			TypeName: ct.DatabaseTypeName(),
			Nullable: nullable,
		}
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return resultSet{}, err
		}
		for i, v := range values {
			b, ok := v.([]byte)
			if !ok {
				continue
			}
			// Drivers may reuse byte buffers between rows.
			if isTextType(set.columns[i].TypeName) {
				values[i] = string(b)
			} else {
				values[i] = slices.Clone(b)
			}
		}
		set.rows = append(set.rows, dbapi.Row(values))
	}
	return set, rows.Err()
}

// isTextType reports whether a declared column type holds text.
func isTextType(name string) bool {
	name = strings.ToUpper(name)
	return strings.Contains(name, "CHAR") || strings.Contains(name, "TEXT") || strings.Contains(name, "CLOB")
}

// ExecuteMany runs query once per argument set and returns the summed
// row count.
func (c *Cursor) ExecuteMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	var total int64
	for _, args := range argSets {
		n, err := c.Execute(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			total += n
		}
	}
	c.rowCount = total
	return total, nil
}

// Mogrify returns query with args interpolated, as it would be sent.
func (c *Cursor) Mogrify(query string, args ...any) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	return Interpolate(query, args)
}

// CallProc calls a stored procedure and returns its arguments.
func (c *Cursor) CallProc(ctx context.Context, name string, args ...any) ([]any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	if _, err := c.Execute(ctx, "CALL "+name+"("+placeholders+")", args...); err != nil {
		return nil, err
	}
	return slices.Clone(args), nil
}

// FetchOne returns the next row, or nil at the end of the result.
func (c *Cursor) FetchOne() (dbapi.Row, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	set := c.current()
	if set == nil {
		return nil, errNoResult
	}
	if c.pos >= len(set.rows) {
		return nil, nil
	}
	row := set.rows[c.pos]
	c.pos++
	return row, nil
}

// FetchMany returns up to size rows. A size of zero or less uses the
// cursor's array size.
func (c *Cursor) FetchMany(size int) ([]dbapi.Row, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	set := c.current()
	if set == nil {
		return nil, errNoResult
	}
	if size <= 0 {
		size = c.arraySize
	}
	end := min(c.pos+size, len(set.rows))
	rows := make([]dbapi.Row, 0, end-c.pos)
	rows = append(rows, set.rows[c.pos:end]...)
	c.pos = end
	return rows, nil
}

// FetchAll returns every remaining row.
func (c *Cursor) FetchAll() ([]dbapi.Row, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	set := c.current()
	if set == nil {
		return nil, errNoResult
	}
	rows := make([]dbapi.Row, 0, len(set.rows)-c.pos)
	rows = append(rows, set.rows[c.pos:]...)
	c.pos = len(set.rows)
	return rows, nil
}

// NextSet advances to the next result set. It reports false when there
// is none.
func (c *Cursor) NextSet() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	if c.set+1 >= len(c.sets) {
		c.set = len(c.sets)
		return false, nil
	}
	c.set++
	c.pos = 0
	c.rowCount = int64(len(c.sets[c.set].rows))
	return true, nil
}

// Scroll moves the row position by value (relative) or to value
// (absolute).
func (c *Cursor) Scroll(value int, mode dbapi.ScrollMode) error {
	if err := c.check(); err != nil {
		return err
	}
	set := c.current()
	if set == nil {
		return errNoResult
	}

	var pos int
	switch mode {
	case dbapi.ScrollRelative, "":
		pos = c.pos + value
	case dbapi.ScrollAbsolute:
		pos = value
	default:
		return dbapi.Errorf(dbapi.KindProgramming, "unknown scroll mode %q", mode)
	}
	if pos < 0 || pos >= len(set.rows) {
		return errOutOfRange
	}
	c.pos = pos
	return nil
}

// Description describes the columns of the current result set. It is nil
// when the last statement returned no rows.
func (c *Cursor) Description() ([]dbapi.Column, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	set := c.current()
	if set == nil {
		return nil, nil
	}
	return slices.Clone(set.columns), nil
}

// RowCount returns the row count of the last statement, or -1.
func (c *Cursor) RowCount() (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.rowCount, nil
}

// RowNumber returns the index of the next row in the current result set.
func (c *Cursor) RowNumber() (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return int64(c.pos), nil
}

// LastRowID returns the row id generated by this cursor's last insert.
func (c *Cursor) LastRowID() (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.lastRowID, nil
}

// ArraySize returns the default FetchMany size.
func (c *Cursor) ArraySize() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.arraySize, nil
}

// SetArraySize sets the default FetchMany size. Values below 1 are
// ignored.
func (c *Cursor) SetArraySize(n int) {
	if n > 0 {
		c.arraySize = n
	}
}

// SetInputSizes is accepted and ignored.
func (c *Cursor) SetInputSizes(sizes ...any) {}

// SetOutputSizes is accepted and ignored.
func (c *Cursor) SetOutputSizes(size int, column ...int) {}

// Close releases the cursor's buffered results. Closing twice is a no-op.
func (c *Cursor) Close() error {
	c.closed = true
	c.reset()
	return nil
}
