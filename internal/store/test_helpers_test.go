package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
	"github.com/roach88/dbtape/internal/ledger"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot builds a snapshot with successes, a failure and two
// keys interleaved.
func createTestSnapshot() ledger.Snapshot {
	fetch := ledger.Key(ledger.FacetCursor, "fetchone")
	execute := ledger.Key(ledger.FacetCursor, "execute")
	failure := ledger.DefaultErrors().Encode(&dbapi.Error{
		Kind:    dbapi.KindIntegrity,
		Code:    2067,
		Message: "UNIQUE constraint failed: users.email",
	})

	return ledger.Snapshot{Entries: []ledger.Entry{
		{Seq: 1, Key: execute, Position: 0, Outcome: ledger.Success(ir.IRInt(1))},
		{Seq: 2, Key: fetch, Position: 0, Outcome: ledger.Success(ir.IRArray{
			ir.IRInt(1), ir.IRString("ada"), ir.IRFloat(1.5), ir.IRBytes{0x00, 0xff}, ir.IRNull{},
		})},
		{Seq: 3, Key: execute, Position: 1, Outcome: ledger.Failed(failure)},
		{Seq: 4, Key: fetch, Position: 1, Outcome: ledger.Success(ir.IRNull{})},
	}}
}
