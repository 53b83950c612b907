package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

func TestCodecRowEndOfResult(t *testing.T) {
	v, err := encodeRow(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)

	row, err := decodeRow(v)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCodecRowValues(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	in := dbapi.Row{int64(7), 1.25, "x", []byte{0, 1}, true, nil, ts}

	v, err := encodeRow(in)
	require.NoError(t, err)
	data, err := ir.MarshalCanonical(v)
	require.NoError(t, err)
	back, err := ir.UnmarshalCanonical(data)
	require.NoError(t, err)

	row, err := decodeRow(back)
	require.NoError(t, err)
	assert.Equal(t, in, row)
}

func TestCodecRowsNeverNil(t *testing.T) {
	v, err := encodeRows(nil)
	require.NoError(t, err)

	rows, err := decodeRows(v)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCodecColumns(t *testing.T) {
	v, err := encodeColumns(nil)
	require.NoError(t, err)
	cols, err := decodeColumns(v)
	require.NoError(t, err)
	assert.Nil(t, cols)

	in := []dbapi.Column{{Name: "id", TypeName: "INTEGER"}, {Name: "note", TypeName: "TEXT", Nullable: true}}
	v, err = encodeColumns(in)
	require.NoError(t, err)
	cols, err = decodeColumns(v)
	require.NoError(t, err)
	assert.Equal(t, in, cols)
}

func TestCodecMismatch(t *testing.T) {
	_, err := decodeBool(ir.IRString("yes"))
	assert.ErrorContains(t, err, "want bool")

	_, err = decodeInt64(ir.IRBool(true))
	assert.ErrorContains(t, err, "want int")

	_, err = decodeRows(ir.IRNull{})
	assert.ErrorContains(t, err, "want array")

	_, err = decodeColumns(ir.NewIRArray(ir.IRInt(1)))
	assert.ErrorContains(t, err, "column 0")

	_, err = decodeUnit(ir.IRInt(0))
	assert.ErrorContains(t, err, "want null")
}

func TestCodecUnsupportedValue(t *testing.T) {
	_, err := encodeValues([]any{struct{}{}})
	assert.ErrorContains(t, err, "[0]")

	_, err = encodeRows([]dbapi.Row{{uint64(1 << 63)}})
	assert.ErrorContains(t, err, "row 0")
}
