// Package store persists ledger snapshots as SQLite files.
//
// Each snapshot is a single self-contained database file holding the
// outcomes recorded by one test:
//   - outcomes: one row per recorded call, keyed by (call_key, position)
//   - snapshot_meta: format version, outcome count and content digest
//
// # Determinism
//
//   - Values are stored as canonical JSON (see ir.MarshalCanonical)
//   - All ordering uses seq INTEGER (the ledger's logical clock)
//   - Reads use ORDER BY seq ASC, call_key COLLATE BINARY ASC
//
// # Durability
//
// Snapshots are written to a temporary file in the destination directory
// and renamed into place, so a reader never sees a partial snapshot. The
// rollback journal (journal_mode=DELETE) is used instead of WAL so a
// finished snapshot is exactly one file with no -wal or -shm sidecars.
//
// Loading verifies the stored digest against the content and fails with
// ErrCorruptSnapshot on mismatch.
package store
