package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key(FacetCursor, "fetchone")
	assert.Equal(t, CallKey("cursor--fetchone"), k)
	assert.Equal(t, FacetCursor, k.Facet())
	assert.Equal(t, "fetchone", k.Member())

	assert.Equal(t, CallKey("connection--open"), Key(FacetConnection, "open"))
	assert.Equal(t, FacetUser, UserValueKey.Facet())
	assert.Equal(t, "stored-value", UserValueKey.Member())
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("cursor--execute")
	require.NoError(t, err)
	assert.Equal(t, Key(FacetCursor, "execute"), k)

	for _, bad := range []string{"", "cursor", "cursor--", "--execute", "table--execute"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}
