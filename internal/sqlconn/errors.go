package sqlconn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/dbtape/internal/dbapi"
)

var (
	errConnClosed   = dbapi.NewError(dbapi.KindInterface, "connection already closed")
	errCursorClosed = dbapi.NewError(dbapi.KindInterface, "cursor closed")
	errNoResult     = dbapi.NewError(dbapi.KindProgramming, "no result set to fetch from")
	errOutOfRange   = dbapi.NewError(dbapi.KindProgramming, "out of range")
)

// classify converts a driver or database/sql error to a *dbapi.Error.
// Errors that already are *dbapi.Error are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var de *dbapi.Error
	if errors.As(err, &de) {
		return err
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		return &dbapi.Error{
			Kind:    sqliteKind(se.Code),
			Code:    int(se.ExtendedCode),
			Message: se.Error(),
			Err:     err,
		}
	}

	kind := dbapi.KindDatabase
	switch {
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		kind = dbapi.KindInterface
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		kind = dbapi.KindOperational
	case errors.Is(err, driver.ErrSkip):
		kind = dbapi.KindNotSupported
	}
	return &dbapi.Error{Kind: kind, Message: err.Error(), Err: err}
}

// sqliteKind maps a primary SQLite result code to an error kind.
func sqliteKind(code sqlite3.ErrNo) dbapi.ErrorKind {
	switch code {
	case sqlite3.ErrConstraint:
		return dbapi.KindIntegrity
	case sqlite3.ErrError:
		// Syntax errors, missing tables and columns.
		return dbapi.KindProgramming
	case sqlite3.ErrMismatch, sqlite3.ErrRange, sqlite3.ErrTooBig:
		return dbapi.KindData
	case sqlite3.ErrInternal, sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrFormat:
		return dbapi.KindInternal
	case sqlite3.ErrMisuse:
		return dbapi.KindInterface
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr,
		sqlite3.ErrFull, sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrInterrupt,
		sqlite3.ErrAbort, sqlite3.ErrNomem, sqlite3.ErrProtocol, sqlite3.ErrSchema,
		sqlite3.ErrNoLFS, sqlite3.ErrAuth:
		return dbapi.KindOperational
	case sqlite3.ErrWarning, sqlite3.ErrNotice:
		return dbapi.KindWarning
	default:
		return dbapi.KindDatabase
	}
}
