package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/dbtape/internal/ledger"
)

// ErrCorruptSnapshot is returned when a snapshot's content does not match
// its stored digest.
var ErrCorruptSnapshot = errors.New("snapshot content does not match its digest")

// ReadSnapshot returns every stored outcome in arrival order.
// Results are ordered deterministically: ORDER BY seq ASC, call_key COLLATE BINARY ASC.
func (s *Store) ReadSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT call_key, position, seq, kind, value, error_kind, error_message, error_payload
		FROM outcomes
		ORDER BY seq ASC, call_key COLLATE BINARY ASC
	`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	defer rows.Close()

	var snap ledger.Snapshot
	for rows.Next() {
		var row outcomeRow
		err := rows.Scan(
			&row.callKey,
			&row.position,
			&row.seq,
			&row.kind,
			&row.value,
			&row.errorKind,
			&row.errorMessage,
			&row.errorPayload,
		)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("read snapshot: scan: %w", err)
		}
		e, err := unmarshalEntry(row)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	return snap, nil
}

// Meta returns the snapshot_meta table as a map.
func (s *Store) Meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM snapshot_meta ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("read meta: scan: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	return meta, nil
}

// VerifiedSnapshot reads the snapshot and checks it against the stored
// digest.
func (s *Store) VerifiedSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	snap, err := s.ReadSnapshot(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	meta, err := s.Meta(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	want, ok := meta[MetaDigest]
	if !ok {
		return ledger.Snapshot{}, fmt.Errorf("%w: no digest recorded", ErrCorruptSnapshot)
	}
	got, err := snap.Digest()
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("verify snapshot: %w", err)
	}
	if got != want {
		return ledger.Snapshot{}, fmt.Errorf("%w: stored %s, computed %s", ErrCorruptSnapshot, want, got)
	}
	return snap, nil
}
