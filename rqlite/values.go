package rqlite

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/medatechnology/simpledb/tabular"
)

// resultSet is one statement's rows, decoded.
type resultSet struct {
	columns []string
	types   []string
	rows    [][]any
}

// source turns the set into a codec row source. Declared column types
// give the kinds; columns without one (expressions) take the kind of
// their first non-null value.
func (rs *resultSet) source() *tabular.SliceSource {
	cols := make([]tabular.Column, len(rs.columns))
	for i, name := range rs.columns {
		var decl string
		if i < len(rs.types) {
			decl = rs.types[i]
		}
		kind, ok := tabular.KindOfDatabaseType(decl)
		if !ok {
			kind = tabular.Text
			for _, row := range rs.rows {
				if i < len(row) && row[i] != nil {
					kind = tabular.KindOfValue(row[i])
					break
				}
			}
		}
		cols[i] = tabular.Col(name, kind)
	}
	for _, row := range rs.rows {
		for i := range row {
			if i < len(cols) {
				row[i] = convert(cols[i].Kind, row[i])
			}
		}
	}
	return tabular.NewSliceSource(cols, rs.rows...)
}

// decodeCell decodes one JSON cell. Numbers become int64 when integral,
// float64 otherwise.
func decodeCell(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if f, ok := v.(float64); ok {
		if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return n, nil
		}
		return f, nil
	}
	return v, nil
}

// convert brings a cell to the Go type of kind where that is lossless.
// SQLite has no boolean or date storage class, so those come back as
// numbers or text.
func convert(kind tabular.Kind, v any) any {
	switch kind {
	case tabular.Numeric:
		if f, ok := v.(float64); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f)
		}
	case tabular.Decimal:
		if n, ok := v.(int64); ok {
			return float64(n)
		}
	case tabular.Boolean:
		switch x := v.(type) {
		case int64:
			return x != 0
		case float64:
			return x != 0
		}
	case tabular.DateTime:
		switch x := v.(type) {
		case string:
			if t, err := tabular.ParseTime(x); err == nil {
				return t
			}
		case int64:
			return time.Unix(x, 0).UTC()
		case float64:
			return time.Unix(int64(x), 0).UTC()
		}
	}
	return v
}
