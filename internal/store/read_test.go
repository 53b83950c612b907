package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSnapshot_ArrivalOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot()))

	snap, err := s.ReadSnapshot(ctx)
	require.NoError(t, err)
	for i, e := range snap.Entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestVerifiedSnapshot_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot()))

	_, err := s.db.ExecContext(ctx, `UPDATE outcomes SET value = '2' WHERE seq = 1`)
	require.NoError(t, err)

	// Unverified reads still succeed.
	_, err = s.ReadSnapshot(ctx)
	require.NoError(t, err)

	_, err = s.VerifiedSnapshot(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptSnapshot))
}

func TestVerifiedSnapshot_MissingDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.VerifiedSnapshot(ctx)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestReadSnapshot_RejectsBadKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (call_key, position, seq, kind, value)
		VALUES ('table--drop', 0, 1, 'success', 'null')
	`)
	require.NoError(t, err)

	_, err = s.ReadSnapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown facet")
}

func TestSchema_RejectsInconsistentRow(t *testing.T) {
	s := createTestStore(t)

	// A success row must carry a value and no error kind.
	_, err := s.db.Exec(`
		INSERT INTO outcomes (call_key, position, seq, kind, value, error_kind)
		VALUES ('cursor--execute', 0, 1, 'success', '1', 'dbapi.DataError')
	`)
	assert.Error(t, err)
}
