// Package sqlconn adapts database/sql to the dbapi connection and cursor
// interfaces.
//
// A Conn pins a single *sql.Conn so session state (transactions, last
// insert id, temp tables) behaves like one client connection. Cursors are
// buffered: row-returning statements are read completely at Execute,
// including any further result sets, and the fetch, scroll and nextset
// calls work on the buffer.
//
// Driver errors are classified into the dbapi error kinds. SQLite result
// codes from github.com/mattn/go-sqlite3 are mapped precisely; other
// drivers fall back to DatabaseError.
package sqlconn
