package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbtape/internal/ledger"
)

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot()

	require.NoError(t, s.WriteSnapshot(ctx, snap))

	got, err := s.VerifiedSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestWriteSnapshot_ReplacesContent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot()))

	smaller := createTestSnapshot()
	smaller.Entries = smaller.Entries[:1]
	require.NoError(t, s.WriteSnapshot(ctx, smaller))

	got, err := s.VerifiedSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	meta, err := s.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", meta[MetaOutcomes])
	assert.Equal(t, "1", meta[MetaFormatVersion])
}

func TestWriteSnapshot_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSnapshot(ctx, ledger.Snapshot{}))

	got, err := s.VerifiedSnapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}
