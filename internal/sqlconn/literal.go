package sqlconn

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dbtape/internal/dbapi"
)

// timeLayout renders timestamps in literals.
const timeLayout = "2006-01-02 15:04:05.999999999-07:00"

// Literal renders v as an SQL literal. Slices of values render as a
// parenthesized list, for IN clauses.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quote(x), nil
	case []byte:
		if x == nil {
			return "NULL", nil
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'", nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case time.Time:
		return quote(x.Format(timeLayout)), nil
	case []any:
		parts := make([]string, len(x))
		for i, elem := range x {
			s, err := Literal(elem)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", dbapi.Errorf(dbapi.KindNotSupported, "cannot render %T as an SQL literal", v)
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", dbapi.Errorf(dbapi.KindData, "%v has no SQL literal", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// EscapeString doubles single quotes so s can be placed inside a quoted
// SQL string.
func EscapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func quote(s string) string {
	return "'" + EscapeString(s) + "'"
}

// Interpolate replaces each ? placeholder outside quoted text with the
// literal form of the matching argument.
func Interpolate(query string, args []any) (string, error) {
	var b strings.Builder
	b.Grow(len(query))

	n := 0
	var quoteChar rune
	for _, r := range query {
		switch {
		case quoteChar != 0:
			if r == quoteChar {
				quoteChar = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quoteChar = r
		case r == '?':
			if n >= len(args) {
				return "", dbapi.NewError(dbapi.KindProgramming, "not enough arguments for query")
			}
			lit, err := Literal(args[n])
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			n++
			continue
		}
		b.WriteRune(r)
	}

	if n != len(args) {
		return "", dbapi.Errorf(dbapi.KindProgramming, "query has %d placeholders but %d arguments were given", n, len(args))
	}
	return b.String(), nil
}

// rowKeywords are the leading keywords of row-returning statements.
var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"PRAGMA":   true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
}

// returnsRows reports whether query is a row-returning statement.
func returnsRows(query string) bool {
	s := skipLeading(query)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	})
	if end >= 0 {
		s = s[:end]
	}
	return rowKeywords[strings.ToUpper(s)]
}

// skipLeading drops whitespace, opening parentheses and comments before
// the first keyword.
func skipLeading(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			return s
		}
	}
}
