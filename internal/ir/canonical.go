package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Tags for values JSON cannot represent losslessly. Each is encoded as a
// single-key object, e.g. {"$f":"0.5"}.
const (
	TagFloat = "$f"
	TagBytes = "$b"
	TagTime  = "$t"
	// TagRawString holds a string that is not valid UTF-8, base64 encoded.
	TagRawString = "$s"
)

// MarshalCanonical produces the canonical JSON encoding of v.
//
// Properties:
//  1. Object keys sorted by UTF-16 code units (RFC 8785)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are kept byte for byte; invalid UTF-8 uses TagRawString
//  4. Floats, bytes and times use tagged single-key objects
//  5. Object keys beginning with "$" are rejected (reserved for tags)
//
// Equal values always encode to identical bytes, and UnmarshalCanonical
// returns exactly the value that was encoded.
func MarshalCanonical(v IRValue) ([]byte, error) {
	return encoder{}.marshal(v)
}

// marshalNormalized is MarshalCanonical with valid UTF-8 strings in NFC.
// Used only for digests, so content that differs in normalization form
// alone digests the same.
func marshalNormalized(v IRValue) ([]byte, error) {
	return encoder{nfc: true}.marshal(v)
}

type encoder struct {
	nfc bool
}

func (e encoder) marshal(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e encoder) write(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		buf.WriteString("null")
	case IRString:
		return e.writeString(buf, string(val))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRFloat:
		return writeTagged(buf, TagFloat, formatFloat(float64(val)))
	case IRBytes:
		return writeTagged(buf, TagBytes, base64.StdEncoding.EncodeToString(val))
	case IRTime:
		return writeTagged(buf, TagTime, val.Time.Format(time.RFC3339Nano))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.write(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if strings.HasPrefix(k, "$") {
				return fmt.Errorf("object key %q: keys beginning with '$' are reserved", k)
			}
			if !utf8.ValidString(k) {
				return fmt.Errorf("object key %q: not valid UTF-8", k)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := e.write(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeString writes a string value. Invalid UTF-8 cannot pass through a
// JSON string unchanged, so it is tagged and base64 encoded instead.
func (e encoder) writeString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return writeTagged(buf, TagRawString, base64.StdEncoding.EncodeToString([]byte(s)))
	}
	if e.nfc {
		s = norm.NFC.String(s)
	}
	return writeJSONString(buf, s)
}

func writeTagged(buf *bytes.Buffer, tag, payload string) error {
	buf.WriteByte('{')
	if err := writeJSONString(buf, tag); err != nil {
		return err
	}
	buf.WriteByte(':')
	if err := writeJSONString(buf, payload); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

// formatFloat uses the shortest representation that parses back to the
// same float64. NaN and the infinities are spelled out.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeJSONString writes s, which must be valid UTF-8, as a JSON string.
// Only control characters, backslash and quote are escaped; U+2028 and
// U+2029 stay literal as RFC 8785 requires.
func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes produced by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+5 < len(data) &&
			string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}

// UnmarshalCanonical decodes canonical JSON produced by MarshalCanonical.
// Untagged non-integer numbers are rejected: floats only appear tagged.
func UnmarshalCanonical(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode canonical JSON: %w", err)
	}
	return fromJSON(raw)
}

func fromJSON(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("untagged non-integer number %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		if tagged, ok, err := fromTagged(val); ok || err != nil {
			return tagged, err
		}
		obj := make(IRObject, len(val))
		for k, elem := range val {
			if strings.HasPrefix(k, "$") {
				return nil, fmt.Errorf("object key %q: keys beginning with '$' are reserved", k)
			}
			irElem, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported JSON type: %T", v)
	}
}

func fromTagged(m map[string]any) (IRValue, bool, error) {
	if len(m) != 1 {
		return nil, false, nil
	}
	for tag, raw := range m {
		payload, isString := raw.(string)
		switch tag {
		case TagFloat:
			if !isString {
				return nil, true, fmt.Errorf("%s payload must be a string", tag)
			}
			f, err := strconv.ParseFloat(payload, 64)
			if err != nil {
				return nil, true, fmt.Errorf("%s payload: %w", tag, err)
			}
			return IRFloat(f), true, nil
		case TagBytes:
			if !isString {
				return nil, true, fmt.Errorf("%s payload must be a string", tag)
			}
			b, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, true, fmt.Errorf("%s payload: %w", tag, err)
			}
			return IRBytes(b), true, nil
		case TagTime:
			if !isString {
				return nil, true, fmt.Errorf("%s payload must be a string", tag)
			}
			ts, err := time.Parse(time.RFC3339Nano, payload)
			if err != nil {
				return nil, true, fmt.Errorf("%s payload: %w", tag, err)
			}
			return IRTime{Time: ts}, true, nil
		case TagRawString:
			if !isString {
				return nil, true, fmt.Errorf("%s payload must be a string", tag)
			}
			b, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, true, fmt.Errorf("%s payload: %w", tag, err)
			}
			return IRString(b), true, nil
		}
	}
	return nil, false, nil
}
