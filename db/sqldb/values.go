package sqldb

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row values are drawn from a closed set:
//
//	string          text
//	decimal.Decimal exact numerics
//	int64           integers
//	time.Time       dates and timestamps
//	nil             NULL or a type the adapter does not convert
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindDecimal
	KindInteger
	KindTimestamp
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindTimestamp:
		return "timestamp"
	default:
		return "null"
	}
}

// KindOf reports the kind of a row value. Values outside the set are KindNull.
func KindOf(v any) ValueKind {
	switch v.(type) {
	case string:
		return KindText
	case decimal.Decimal:
		return KindDecimal
	case int64:
		return KindInteger
	case time.Time:
		return KindTimestamp
	default:
		return KindNull
	}
}

// TimestampLayouts are tried in order by ParseTimestamp.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"02-Jan-06",
	"02-Jan-2006",
	"02-Jan-06 03.04.05.999999999 PM",
}

// ParseTimestamp parses driver text as a time in UTC unless the text carries
// an offset. Malformed text reports false.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
		// Oracle renders month abbreviations upper case (02-JAN-06).
		if strings.Contains(layout, "Jan") {
			if t, err := time.Parse(layout, titleMonth(s)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func titleMonth(s string) string {
	b := []byte(s)
	for i := 1; i+2 < len(b); i++ {
		if b[i-1] != '-' || !isLetter(b[i]) || !isLetter(b[i+1]) || !isLetter(b[i+2]) {
			continue
		}
		b[i] = toUpper(b[i])
		b[i+1] = toLower(b[i+1])
		b[i+2] = toLower(b[i+2])
	}
	return string(b)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// ParseDecimal parses driver text as an exact decimal.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseInteger parses driver text as a base-10 int64.
func ParseInteger(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Normalize folds a value returned by a Go database driver into the row
// value set. Types it does not recognise become nil.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(x, 10))
	case uint32:
		return int64(x)
	case uint16:
		return int64(x)
	case uint8:
		return int64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case decimal.Decimal:
		return x
	case time.Time:
		return x
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return nil
		}
		if _, again := dv.(driver.Valuer); again {
			return nil
		}
		return Normalize(dv)
	default:
		return nil
	}
}

// KindForDatabaseType classifies a driver's column type name. Drivers that
// return text for every column rely on it to recover typed values.
func KindForDatabaseType(name string) ValueKind {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimPrefix(name, "UNSIGNED ")
	switch name {
	case "DECIMAL", "NUMERIC", "NUMBER", "MONEY", "SMALLMONEY", "FLOAT", "REAL", "DOUBLE", "FLOAT4", "FLOAT8":
		return KindDecimal
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8", "BIT", "YEAR":
		return KindInteger
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "TIMESTAMP", "TIMESTAMPTZ", "DATETIMEOFFSET":
		return KindTimestamp
	case "":
		return KindNull
	default:
		return KindText
	}
}

// Coerce normalizes v and, when the driver handed back text, parses it
// according to kind. Text that does not parse is kept as text.
func Coerce(kind ValueKind, v any) any {
	v = Normalize(v)
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch kind {
	case KindDecimal:
		if d, ok := ParseDecimal(s); ok {
			return d
		}
	case KindInteger:
		if i, ok := ParseInteger(s); ok {
			return i
		}
	case KindTimestamp:
		if t, ok := ParseTimestamp(s); ok {
			return t
		}
	}
	return s
}
