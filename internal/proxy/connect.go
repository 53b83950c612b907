package proxy

import (
	"context"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ledger"
	"github.com/roach88/dbtape/internal/mode"
)

// Connect returns the connect entry point for m.
//
//   - Passthrough: real, unchanged.
//   - Record: real is called and its connection wrapped in a
//     RecordingConn. A failed real connect is returned as is and not
//     recorded.
//   - Replay: a ReplayConn over l; real is never called and may be nil.
func Connect(m mode.Mode, l *ledger.Ledger, real dbapi.ConnectFunc) dbapi.ConnectFunc {
	switch m {
	case mode.Record:
		return func(ctx context.Context, dsn string) (dbapi.Conn, error) {
			conn, err := real(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return NewRecordingConn(conn, l), nil
		}
	case mode.Replay:
		return func(context.Context, string) (dbapi.Conn, error) {
			return NewReplayConn(l), nil
		}
	default:
		return real
	}
}
