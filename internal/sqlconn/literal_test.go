package sqlconn

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbtape/internal/dbapi"
)

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "plain", "'plain'"},
		{"quote", "it's", "'it''s'"},
		{"bytes", []byte{0xde, 0xad}, "X'DEAD'"},
		{"nil bytes", []byte(nil), "NULL"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 42, "42"},
		{"negative int64", int64(-7), "-7"},
		{"uint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"float", 0.25, "0.25"},
		{"float32", float32(1.5), "1.5"},
		{"time", ts, "'2024-03-01 12:30:00.0000005+00:00'"},
		{"list", []any{1, "x"}, "(1, 'x')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Literal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralErrors(t *testing.T) {
	_, err := Literal(math.NaN())
	assert.True(t, dbapi.KindOf(err) == dbapi.KindData)

	_, err = Literal(math.Inf(1))
	assert.True(t, dbapi.KindOf(err) == dbapi.KindData)

	_, err = Literal(struct{}{})
	assert.True(t, dbapi.IsNotSupported(err))

	_, err = Literal([]any{1, struct{}{}})
	assert.True(t, dbapi.IsNotSupported(err))
}

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  []any
		want  string
	}{
		{"none", "SELECT 1", nil, "SELECT 1"},
		{"two", "SELECT ?, ?", []any{1, "a"}, "SELECT 1, 'a'"},
		{"single quoted", "SELECT '?', ?", []any{2}, "SELECT '?', 2"},
		{"double quoted", `SELECT "a?b", ?`, []any{nil}, `SELECT "a?b", NULL`},
		{"backtick", "SELECT `?` FROM t WHERE x = ?", []any{true}, "SELECT `?` FROM t WHERE x = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.query, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpolateArgCount(t *testing.T) {
	_, err := Interpolate("SELECT ?, ?", []any{1})
	assert.True(t, dbapi.IsProgramming(err))

	_, err = Interpolate("SELECT ?", []any{1, 2})
	assert.True(t, dbapi.IsProgramming(err))
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  select 1", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"(SELECT 1)", true},
		{"-- leading comment\nSELECT 1", true},
		{"/* block */ PRAGMA table_info(t)", true},
		{"VALUES (1), (2)", true},
		{"EXPLAIN QUERY PLAN SELECT 1", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET a = 1", false},
		{"CREATE TABLE t (a)", false},
		{"", false},
		{"-- only a comment", false},
		{"SELECTED", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, returnsRows(tt.query), tt.query)
	}
}
