package ir

import (
	"slices"
	"time"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value shapes a recorded outcome
// may carry. Only the types in this file implement it.
//
// Database results need NULL, floats, raw bytes and timestamps, so unlike a
// plain JSON model those are first-class here and get tagged encodings in
// canonical form (see MarshalCanonical).
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents SQL NULL / a unit result.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a float64 value.
type IRFloat float64

func (IRFloat) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRBytes represents a raw byte string (BLOB columns, binary literals).
type IRBytes []byte

func (IRBytes) irValue() {}

// IRTime represents a timestamp. Encoding keeps the instant and the zone
// offset. The zone name and the monotonic clock reading are dropped, so a
// decoded IRTime is Equal to the original but not == to it.
type IRTime struct {
	time.Time
}

func (IRTime) irValue() {}

// IRArray represents an ordered list of values (a row, a list of rows).
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// NewIRTime wraps t as an IRTime.
func NewIRTime(t time.Time) IRTime {
	return IRTime{Time: t}
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IRPair represents a key-value pair for IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair.
// Example: NewIRObject(O("name", IRString("id")), O("nullable", IRBool(false)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObject creates an IRObject from key-value pairs.
func NewIRObject(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's string comparison uses UTF-8 byte order, which differs for
// characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two values have the same canonical encoding.
// Values that cannot be encoded are never equal.
func Equal(a, b IRValue) bool {
	ab, err := MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := MarshalCanonical(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
