// Package tabular implements the compact typed text format used to ship
// query results to text-oriented consumers.
//
// A blob is one header line of marker-prefixed column names followed by one
// line per row:
//
//	!Id~$Name~#Created|1~Ann~1700000000|2~Ø~1700000060
//
// Fields are separated by '~', lines by '|', and the last line carries no
// trailing '|'. A null cell is written as 'Ø'. A result with no rows has no
// blob at all: encoders return a nil *string for it.
package tabular

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind is the type category of a column. It selects the header marker and
// the rendering rule of every cell in the column.
type Kind uint8

const (
	Text Kind = iota
	Numeric
	Decimal
	DateTime
	Boolean
)

// Reserved characters of the format. None of them is escaped inside text.
const (
	FieldSeparator = '~'
	LineSeparator  = '|'
	NullSentinel   = "Ø"
)

// Header markers, one per Kind.
const (
	MarkerText     = '$'
	MarkerNumeric  = '!'
	MarkerDecimal  = '%'
	MarkerDateTime = '#'
	MarkerBoolean  = '^'
)

// Marker returns the header marker of the kind. Unknown kinds map to the
// text marker.
func (k Kind) Marker() byte {
	switch k {
	case Numeric:
		return MarkerNumeric
	case Decimal:
		return MarkerDecimal
	case DateTime:
		return MarkerDateTime
	case Boolean:
		return MarkerBoolean
	default:
		return MarkerText
	}
}

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Decimal:
		return "decimal"
	case DateTime:
		return "datetime"
	case Boolean:
		return "boolean"
	default:
		return "text"
	}
}

// KindFromMarker is the inverse of Kind.Marker.
func KindFromMarker(m byte) (Kind, bool) {
	switch m {
	case MarkerText:
		return Text, true
	case MarkerNumeric:
		return Numeric, true
	case MarkerDecimal:
		return Decimal, true
	case MarkerDateTime:
		return DateTime, true
	case MarkerBoolean:
		return Boolean, true
	}
	return Text, false
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	numberType   = reflect.TypeOf(json.Number(""))
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

	nullKinds = map[reflect.Type]Kind{
		reflect.TypeOf(sql.NullString{}):  Text,
		reflect.TypeOf(sql.NullInt64{}):   Numeric,
		reflect.TypeOf(sql.NullInt32{}):   Numeric,
		reflect.TypeOf(sql.NullInt16{}):   Numeric,
		reflect.TypeOf(sql.NullByte{}):    Numeric,
		reflect.TypeOf(sql.NullFloat64{}): Decimal,
		reflect.TypeOf(sql.NullBool{}):    Boolean,
		reflect.TypeOf(sql.NullTime{}):    DateTime,
	}
)

// KindOf maps a Go type to its column kind. It never fails: anything that is
// not a signed integer, a byte, a float, a time or a bool is Text. Wider
// unsigned integers are Text as their values need not fit an int64.
// Pointers, the sql.NullXxx wrappers and sql.Null[T] are unwrapped first.
// Integer types with a String method (enumerations, time.Duration) are Text.
func KindOf(t reflect.Type) Kind {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return Text
	}
	if k, ok := nullKinds[t]; ok {
		return k
	}
	switch t {
	case timeType:
		return DateTime
	case numberType:
		return Decimal
	}
	if t.Kind() == reflect.Struct && t.PkgPath() == "database/sql" &&
		strings.HasPrefix(t.Name(), "Null[") && t.NumField() > 0 {
		return KindOf(t.Field(0).Type)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint8:
		if t.Implements(stringerType) {
			return Text
		}
		return Numeric
	case reflect.Float32, reflect.Float64:
		return Decimal
	case reflect.Bool:
		return Boolean
	}
	return Text
}

// KindOfValue is KindOf for the dynamic type of v. nil is Text.
func KindOfValue(v any) Kind {
	if v == nil {
		return Text
	}
	return KindOf(reflect.TypeOf(v))
}

// KindOfDatabaseType maps a driver database type name (as returned by
// sql.ColumnType.DatabaseTypeName or a declared column type) to a kind.
// The second result is false when the name is not recognised; callers then
// fall back to the scan type or the values themselves.
func KindOfDatabaseType(name string) (Kind, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	unsigned := strings.HasSuffix(n, "UNSIGNED")
	n = strings.TrimSpace(strings.TrimSuffix(n, "UNSIGNED"))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i])
	}
	if n == "" {
		return Text, false
	}

	switch n {
	case "INT", "INTEGER", "INT2", "INT4", "INT8", "SMALLINT", "BIGINT", "TINYINT",
		"MEDIUMINT", "SERIAL", "SMALLSERIAL", "BIGSERIAL", "OID":
		if unsigned && n != "TINYINT" {
			return Text, true
		}
		return Numeric, true
	case "NUMERIC", "DECIMAL", "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE",
		"DOUBLE PRECISION", "MONEY", "SMALLMONEY":
		return Decimal, true
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET",
		"TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE", "TIME", "TIMETZ":
		return DateTime, true
	case "BOOL", "BOOLEAN", "BIT":
		return Boolean, true
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NCHAR", "NVARCHAR", "CHARACTER",
		"CHARACTER VARYING", "CLOB", "NAME", "UUID", "JSON", "JSONB", "XML",
		"BLOB", "BYTEA", "VARBINARY", "BINARY", "INTERVAL":
		return Text, true
	}
	return Text, false
}
