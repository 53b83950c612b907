package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGo(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"nil", nil, IRNull{}},
		{"nil bytes", []byte(nil), IRNull{}},
		{"string", "x", IRString("x")},
		{"bytes", []byte("ab"), IRBytes("ab")},
		{"bool", true, IRBool(true)},
		{"int", 3, IRInt(3)},
		{"int32", int32(-4), IRInt(-4)},
		{"uint8", uint8(200), IRInt(200)},
		{"uint64", uint64(5), IRInt(5)},
		{"float32", float32(0.5), IRFloat(0.5)},
		{"float64", 2.25, IRFloat(2.25)},
		{"time", ts, NewIRTime(ts)},
		{"ir passthrough", IRString("y"), IRString("y")},
		{"slice", []any{int64(1), "a", nil}, IRArray{IRInt(1), IRString("a"), IRNull{}}},
		{"map", map[string]any{"k": int64(1)}, IRObject{"k": IRInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %#v", got)
		})
	}
}

func TestFromGoErrors(t *testing.T) {
	_, err := FromGo(uint64(math.MaxUint64))
	assert.ErrorContains(t, err, "overflows")

	_, err = FromGo(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")

	_, err = FromGo([]any{make(chan int)})
	assert.ErrorContains(t, err, "[0]")
}

func TestFromGoCopiesBytes(t *testing.T) {
	src := []byte("abc")
	v, err := FromGo(src)
	require.NoError(t, err)

	src[0] = 'z'
	assert.Equal(t, IRBytes("abc"), v)
}

func TestToGo(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Nil(t, ToGo(IRNull{}))
	assert.Equal(t, "s", ToGo(IRString("s")))
	assert.Equal(t, int64(9), ToGo(IRInt(9)))
	assert.Equal(t, 1.25, ToGo(IRFloat(1.25)))
	assert.Equal(t, true, ToGo(IRBool(true)))
	assert.Equal(t, []byte("b"), ToGo(IRBytes("b")))
	assert.Equal(t, ts, ToGo(NewIRTime(ts)))
	assert.Equal(t, []any{int64(1), nil}, ToGo(IRArray{IRInt(1), IRNull{}}))
	assert.Equal(t, map[string]any{"a": "b"}, ToGo(IRObject{"a": IRString("b")}))
}
