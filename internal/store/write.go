package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/dbtape/internal/ledger"
)

// Meta keys stored in snapshot_meta.
const (
	MetaFormatVersion = "format_version"
	MetaDigest        = "digest"
	MetaOutcomes      = "outcomes"
)

// WriteSnapshot replaces the content of the database with snap in one
// transaction. The snapshot digest is stored in snapshot_meta.
func (s *Store) WriteSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	if s.readOnly {
		return fmt.Errorf("write snapshot: store is read-only")
	}

	digest, err := snap.Digest()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM outcomes"); err != nil {
		return fmt.Errorf("write snapshot: clear outcomes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes
		(call_key, position, seq, kind, value, error_kind, error_message, error_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		row, err := marshalEntry(e)
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			row.callKey,
			row.position,
			row.seq,
			row.kind,
			row.value,
			row.errorKind,
			row.errorMessage,
			row.errorPayload,
		)
		if err != nil {
			return fmt.Errorf("write snapshot: insert %s/%d: %w", row.callKey, row.position, err)
		}
	}

	meta := map[string]string{
		MetaFormatVersion: strconv.Itoa(currentSchemaVersion),
		MetaDigest:        digest,
		MetaOutcomes:      strconv.Itoa(snap.Len()),
	}
	for k, v := range meta {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, v)
		if err != nil {
			return fmt.Errorf("write snapshot: meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}
	return nil
}
