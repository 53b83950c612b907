package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedKeys(t *testing.T) {
	obj := NewIRObject(
		O("b", IRInt(1)),
		O("a", IRInt(2)),
		O("c", IRInt(3)),
	)
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRArray{IRInt(1)}, NewIRArray(IRInt(1))))
	assert.False(t, Equal(IRInt(1), IRFloat(1)))
	assert.False(t, Equal(IRString("1"), IRInt(1)))
	assert.False(t, Equal(IRObject{"$x": IRNull{}}, IRObject{"$x": IRNull{}}), "unencodable values are never equal")
}
