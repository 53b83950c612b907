package proxy

import (
	"fmt"

	"github.com/roach88/dbtape/internal/dbapi"
	"github.com/roach88/dbtape/internal/ir"
)

// unit is the result of members that only report success or failure.
type unit struct{}

func mismatch(want string, v ir.IRValue) error {
	return fmt.Errorf("recorded value is %T, want %s", v, want)
}

func encodeUnit(unit) (ir.IRValue, error) { return ir.IRNull{}, nil }

func decodeUnit(v ir.IRValue) (unit, error) {
	if _, ok := v.(ir.IRNull); !ok {
		return unit{}, mismatch("null", v)
	}
	return unit{}, nil
}

func encodeBool(b bool) (ir.IRValue, error) { return ir.IRBool(b), nil }

func decodeBool(v ir.IRValue) (bool, error) {
	b, ok := v.(ir.IRBool)
	if !ok {
		return false, mismatch("bool", v)
	}
	return bool(b), nil
}

func encodeString(s string) (ir.IRValue, error) { return ir.IRString(s), nil }

func decodeString(v ir.IRValue) (string, error) {
	s, ok := v.(ir.IRString)
	if !ok {
		return "", mismatch("string", v)
	}
	return string(s), nil
}

func encodeInt64(n int64) (ir.IRValue, error) { return ir.IRInt(n), nil }

func decodeInt64(v ir.IRValue) (int64, error) {
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, mismatch("int", v)
	}
	return int64(n), nil
}

func encodeInt(n int) (ir.IRValue, error) { return ir.IRInt(n), nil }

func decodeInt(v ir.IRValue) (int, error) {
	n, err := decodeInt64(v)
	return int(n), err
}

// encodeValues converts a list of driver values. A nil list is recorded
// as null so it replays as nil.
func encodeValues(vals []any) (ir.IRValue, error) {
	if vals == nil {
		return ir.IRNull{}, nil
	}
	arr := make(ir.IRArray, len(vals))
	for i, v := range vals {
		iv, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		arr[i] = iv
	}
	return arr, nil
}

func decodeValues(v ir.IRValue) ([]any, error) {
	switch x := v.(type) {
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		vals := make([]any, len(x))
		for i, elem := range x {
			vals[i] = ir.ToGo(elem)
		}
		return vals, nil
	default:
		return nil, mismatch("array", v)
	}
}

// encodeRow records a row; the nil end-of-result row is recorded as null.
func encodeRow(row dbapi.Row) (ir.IRValue, error) {
	return encodeValues(row)
}

func decodeRow(v ir.IRValue) (dbapi.Row, error) {
	vals, err := decodeValues(v)
	if err != nil {
		return nil, err
	}
	return dbapi.Row(vals), nil
}

// encodeRows records a row list. Empty and nil lists both replay as an
// empty, non-nil list.
func encodeRows(rows []dbapi.Row) (ir.IRValue, error) {
	arr := make(ir.IRArray, len(rows))
	for i, row := range rows {
		v, err := encodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		arr[i] = v
	}
	return arr, nil
}

func decodeRows(v ir.IRValue) ([]dbapi.Row, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, mismatch("array", v)
	}
	rows := make([]dbapi.Row, len(arr))
	for i, elem := range arr {
		row, err := decodeRow(elem)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row
	}
	return rows, nil
}

// encodeColumns records a description; nil (no result set) is null.
func encodeColumns(cols []dbapi.Column) (ir.IRValue, error) {
	if cols == nil {
		return ir.IRNull{}, nil
	}
	arr := make(ir.IRArray, len(cols))
	for i, c := range cols {
		arr[i] = ir.NewIRObject(
			ir.O("name", ir.IRString(c.Name)),
			ir.O("type_name", ir.IRString(c.TypeName)),
			ir.O("nullable", ir.IRBool(c.Nullable)),
		)
	}
	return arr, nil
}

func decodeColumns(v ir.IRValue) ([]dbapi.Column, error) {
	switch x := v.(type) {
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		cols := make([]dbapi.Column, len(x))
		for i, elem := range x {
			obj, ok := elem.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("column %d: %w", i, mismatch("object", elem))
			}
			name, _ := obj["name"].(ir.IRString)
			typeName, _ := obj["type_name"].(ir.IRString)
			nullable, _ := obj["nullable"].(ir.IRBool)
			cols[i] = dbapi.Column{
				Name:     string(name),
				TypeName: string(typeName),
				Nullable: bool(nullable),
			}
		}
		return cols, nil
	default:
		return nil, mismatch("array", v)
	}
}
