package proxy

import "github.com/roach88/dbtape/internal/ledger"

func connKey(member string) ledger.CallKey {
	return ledger.Key(ledger.FacetConnection, member)
}

func cursorKey(member string) ledger.CallKey {
	return ledger.Key(ledger.FacetCursor, member)
}

// Connection call keys.
var (
	KeyOpen         = connKey("open")
	KeyAutocommit   = connKey("get_autocommit")
	KeyEscape       = connKey("escape")
	KeyLiteral      = connKey("literal")
	KeyEscapeString = connKey("escape_string")
	KeyInsertID     = connKey("insert_id")
	KeyServerInfo   = connKey("get_server_info")
	KeyHostInfo     = connKey("get_host_info")
	KeyProtoInfo    = connKey("get_proto_info")
	KeyThreadID     = connKey("thread_id")
	KeyCharsetName  = connKey("character_set_name")
	KeyShowWarnings = connKey("show_warnings")
	KeyKill         = connKey("kill")
)

// Cursor call keys.
var (
	KeyExecute     = cursorKey("execute")
	KeyExecuteMany = cursorKey("executemany")
	KeyMogrify     = cursorKey("mogrify")
	KeyCallProc    = cursorKey("callproc")
	KeyFetchOne    = cursorKey("fetchone")
	KeyFetchMany   = cursorKey("fetchmany")
	KeyFetchAll    = cursorKey("fetchall")
	KeyNextSet     = cursorKey("nextset")
	KeyScroll      = cursorKey("scroll")
	KeyDescription = cursorKey("description")
	KeyRowCount    = cursorKey("rowcount")
	KeyRowNumber   = cursorKey("rownumber")
	KeyLastRowID   = cursorKey("lastrowid")
	KeyArraySize   = cursorKey("arraysize")
)
