package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

// runner executes steps against one connection.
type runner struct {
	conn    dbapi.Conn
	cursors map[string]dbapi.Cursor
	logger  *slog.Logger
}

func newRunner(conn dbapi.Conn, logger *slog.Logger) *runner {
	return &runner{
		conn:    conn,
		cursors: make(map[string]dbapi.Cursor),
		logger:  logger,
	}
}

// run executes every step and returns one trace entry per step. A failing
// step does not stop the run.
func (r *runner) run(ctx context.Context, steps []Step) []TraceEntry {
	trace := make([]TraceEntry, 0, len(steps))
	for i, step := range steps {
		entry := TraceEntry{Step: i, On: step.On, Call: step.Call}

		v, err := r.call(ctx, step)
		if err != nil {
			entry.ErrorKind = errorKind(err)
			entry.Error = err.Error()
		} else {
			entry.Value = v
		}

		r.logger.Debug("step completed",
			"step", i,
			"on", step.On,
			"call", step.Call,
			"failed", entry.Failed(),
		)
		trace = append(trace, entry)
	}
	return trace
}

// errorKind names err by its client error kind.
func errorKind(err error) string {
	if kind := dbapi.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func (r *runner) cursor(name string) (dbapi.Cursor, error) {
	if cur, ok := r.cursors[name]; ok {
		return cur, nil
	}
	cur, err := r.conn.Cursor()
	if err != nil {
		return nil, err
	}
	r.cursors[name] = cur
	return cur, nil
}

func (r *runner) call(ctx context.Context, s Step) (ir.IRValue, error) {
	if s.On == FacetConnection {
		return r.connectionCall(ctx, s)
	}
	cur, err := r.cursor(s.On)
	if err != nil {
		return nil, err
	}
	return cursorCall(ctx, cur, s)
}

func (r *runner) connectionCall(ctx context.Context, s Step) (ir.IRValue, error) {
	c := r.conn
	switch s.Call {
	case "open":
		return outcome(c.Open())
	case "get_autocommit":
		return outcome(c.Autocommit())
	case "autocommit":
		on, _ := s.Value.(bool)
		return done(c.SetAutocommit(on))
	case "begin":
		return done(c.Begin(ctx))
	case "commit":
		return done(c.Commit())
	case "rollback":
		return done(c.Rollback())
	case "ping":
		return done(c.Ping(ctx))
	case "escape":
		return outcome(c.Escape(s.Value))
	case "literal":
		return outcome(c.Literal(s.Value))
	case "escape_string":
		return outcome(c.EscapeString(fmt.Sprint(s.Value)))
	case "insert_id":
		return outcome(c.InsertID())
	case "get_server_info":
		return outcome(c.ServerInfo(ctx))
	case "get_host_info":
		return outcome(c.HostInfo(ctx))
	case "get_proto_info":
		return outcome(c.ProtoInfo(ctx))
	case "thread_id":
		return outcome(c.ThreadID(ctx))
	case "character_set_name":
		return outcome(c.CharacterSetName(ctx))
	case "show_warnings":
		return outcome(c.ShowWarnings(ctx))
	case "kill":
		return done(c.Kill(ctx, int64(s.Size)))
	case "select_db":
		return done(c.SelectDB(ctx, fmt.Sprint(s.Value)))
	case "set_charset":
		return done(c.SetCharset(ctx, fmt.Sprint(s.Value)))
	case "affected_rows":
		return outcome(c.AffectedRows())
	case "close":
		return done(c.Close())
	default:
		return nil, fmt.Errorf("unknown connection member %q", s.Call)
	}
}

func cursorCall(ctx context.Context, cur dbapi.Cursor, s Step) (ir.IRValue, error) {
	switch s.Call {
	case "execute":
		return outcome(cur.Execute(ctx, s.Query, s.Args...))
	case "executemany":
		return outcome(cur.ExecuteMany(ctx, s.Query, s.ArgSets))
	case "mogrify":
		return outcome(cur.Mogrify(s.Query, s.Args...))
	case "callproc":
		return outcome(cur.CallProc(ctx, s.Query, s.Args...))
	case "fetchone":
		return outcome(cur.FetchOne())
	case "fetchmany":
		return outcome(cur.FetchMany(s.Size))
	case "fetchall":
		return outcome(cur.FetchAll())
	case "nextset":
		return outcome(cur.NextSet())
	case "scroll":
		scrollMode := dbapi.ScrollRelative
		if s.Mode != "" {
			scrollMode = dbapi.ScrollMode(s.Mode)
		}
		return done(cur.Scroll(s.Size, scrollMode))
	case "description":
		return outcome(cur.Description())
	case "rowcount":
		return outcome(cur.RowCount())
	case "rownumber":
		return outcome(cur.RowNumber())
	case "lastrowid":
		return outcome(cur.LastRowID())
	case "arraysize":
		return outcome(cur.ArraySize())
	case "set_arraysize":
		cur.SetArraySize(s.Size)
		return ir.IRNull{}, nil
	case "close":
		return done(cur.Close())
	default:
		return nil, fmt.Errorf("unknown cursor member %q", s.Call)
	}
}

func done(err error) (ir.IRValue, error) {
	if err != nil {
		return nil, err
	}
	return ir.IRNull{}, nil
}

// outcome converts a member's result to an IRValue.
func outcome[T any](v T, err error) (ir.IRValue, error) {
	if err != nil {
		return nil, err
	}
	return toIR(v)
}

func toIR(v any) (ir.IRValue, error) {
	switch x := v.(type) {
	case dbapi.Row:
		if x == nil {
			return ir.IRNull{}, nil
		}
		return ir.FromGo([]any(x))
	case []dbapi.Row:
		arr := make(ir.IRArray, len(x))
		for i, row := range x {
			rv, err := toIR(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			arr[i] = rv
		}
		return arr, nil
	case []dbapi.Column:
		if x == nil {
			return ir.IRNull{}, nil
		}
		arr := make(ir.IRArray, len(x))
		for i, c := range x {
			arr[i] = ir.NewIRObject(
				ir.O("name", ir.IRString(c.Name)),
				ir.O("type_name", ir.IRString(c.TypeName)),
				ir.O("nullable", ir.IRBool(c.Nullable)),
			)
		}
		return arr, nil
	default:
		return ir.FromGo(v)
	}
}
