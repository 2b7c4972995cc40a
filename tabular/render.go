package tabular

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Normalize strips the wrappers a cell value may arrive in: driver.Valuer
// implementations (sql.NullXxx among them) are asked for their value and
// pointers are dereferenced. Invalid nullable values and nil pointers
// become nil.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		if val, err := valuer.Value(); err == nil {
			v = val
		}
		if v == nil {
			return nil
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// cell renders one value according to the kind of its column. Values the
// kind cannot render go through the text path.
func (e *Encoder) cell(kind Kind, v any) string {
	v = Normalize(v)
	if v == nil {
		return NullSentinel
	}

	switch kind {
	case Numeric, Decimal:
		if s, ok := formatNumber(v); ok {
			return s
		}
	case DateTime:
		if t, ok := asTime(v); ok {
			return strconv.FormatInt(e.unit().Epoch(t), 10)
		}
		if s, ok := formatNumber(v); ok {
			return s
		}
	case Boolean:
		if b, ok := asBool(v); ok {
			if b {
				return "1"
			}
			return "0"
		}
	}
	return formatText(v)
}

// formatNumber renders integers and floats with invariant formatting and no
// exponent. Text handed back by drivers for fixed decimals passes through.
func formatNumber(v any) (string, bool) {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		if strings.ContainsAny(string(x), "eE") {
			if f, err := x.Float64(); err == nil {
				return strconv.FormatFloat(f, 'f', -1, 64), true
			}
		}
		return string(x), true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case []byte:
		return string(x), true
	case sql.RawBytes:
		return string(x), true
	case string:
		return x, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if _, ok := v.(fmt.Stringer); !ok {
			return strconv.FormatInt(rv.Int(), 10), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if _, ok := v.(fmt.Stringer); !ok {
			return strconv.FormatUint(rv.Uint(), 10), true
		}
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()), true
	}
	return "", false
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := ParseTime(x)
		return t, err == nil
	case []byte:
		t, err := ParseTime(string(x))
		return t, err == nil
	}
	return time.Time{}, false
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(strings.TrimSpace(string(x)))
		return b, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, true
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, true
	}
	return false, false
}

func formatText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// FormatValue renders a single value as plain text with the same rules the
// encoder applies to text columns. nil gives the empty string.
func FormatValue(v any) string {
	v = Normalize(v)
	if v == nil {
		return ""
	}
	return formatText(v)
}
