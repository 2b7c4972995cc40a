package simpledb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/medatechnology/goutil/object"

	"github.com/medatechnology/simpledb/tabular"
)

// Record is an ordered list of column/value pairs: the unit Insert, Update
// and Save work with. Column order is kept so generated statements are
// deterministic.
type Record struct {
	Columns []string
	Values  []interface{}
}

// Set appends a column, or replaces its value when it is already present
// (matched case-insensitively).
func (r *Record) Set(column string, value interface{}) {
	if i := r.index(column); i >= 0 {
		r.Values[i] = value
		return
	}
	r.Columns = append(r.Columns, column)
	r.Values = append(r.Values, value)
}

// Get returns the value of column, matched case-insensitively.
func (r Record) Get(column string) (interface{}, bool) {
	if i := r.index(column); i >= 0 {
		return r.Values[i], true
	}
	return nil, false
}

// Without returns a copy of r without column.
func (r Record) Without(column string) Record {
	out := Record{}
	for i, c := range r.Columns {
		if !strings.EqualFold(c, column) {
			out.Columns = append(out.Columns, c)
			out.Values = append(out.Values, r.Values[i])
		}
	}
	return out
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.Columns) }

// Map returns the record as a map. Order is lost.
func (r Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

func (r Record) index(column string) int {
	for i, c := range r.Columns {
		if strings.EqualFold(c, column) {
			return i
		}
	}
	return -1
}

// RecordFromJSON reads one JSON object into a record, keeping key order.
// Integral numbers become int64, other numbers float64; nested arrays and
// objects are kept as their JSON text.
func RecordFromJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec, err := decodeRecord(dec)
	if err != nil {
		return Record{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, fmt.Errorf("unexpected data after JSON object")
	}
	return rec, nil
}

// RecordsFromJSON reads a JSON array of objects.
func RecordsFromJSON(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var out []Record
	for dec.More() {
		rec, err := decodeRecord(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q in JSON, got %v", want, tok)
	}
	return nil
}

func decodeRecord(dec *json.Decoder) (Record, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return Record{}, err
	}
	var rec Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Record{}, err
		}
		value, err := jsonValue(raw)
		if err != nil {
			return Record{}, err
		}
		rec.Set(key, value)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func jsonValue(raw json.RawMessage) (interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return string(trimmed), nil
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}

// RecordFromStruct builds a record from a struct with the column layout
// the tabular codec derives for it (db tags, or exported field names).
func RecordFromStruct(v interface{}) (Record, error) {
	cols, vals, err := tabular.StructRow(v)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Columns: make([]string, len(cols)), Values: make([]interface{}, len(vals))}
	for i, c := range cols {
		rec.Columns[i] = c.Name
		rec.Values[i] = tabular.Normalize(vals[i])
	}
	return rec, nil
}

// RecordFromMap builds a record from a map. Columns are sorted by name
// since maps have no order.
func RecordFromMap(m map[string]interface{}) Record {
	var rec Record
	for _, k := range slices.Sorted(maps.Keys(m)) {
		rec.Set(k, m[k])
	}
	return rec
}

// RecordFromObject converts any struct to a record with goutil's
// struct-to-map conversion.
func RecordFromObject(obj interface{}) Record {
	return RecordFromMap(object.StructToMap(obj))
}

func (r Record) validate() error {
	if len(r.Columns) == 0 {
		return ErrEmptyRecord
	}
	for _, c := range r.Columns {
		if err := ValidateIdentifier(c); err != nil {
			return err
		}
	}
	return nil
}

// InsertSQL builds INSERT INTO table (columns) VALUES (?, ...).
func (r Record) InsertSQL(table string) (string, []interface{}, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, err
	}
	if err := r.validate(); err != nil {
		return "", nil, err
	}
	return sq.Insert(table).Columns(r.Columns...).Values(r.Values...).ToSql()
}

// UpdateSQL builds UPDATE table SET ... WHERE pk = ? from every column but
// the primary key, whose value goes into the WHERE clause.
func (r Record) UpdateSQL(table, primaryKey string) (string, []interface{}, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, err
	}
	if err := ValidateIdentifier(primaryKey); err != nil {
		return "", nil, err
	}
	id, ok := r.Get(primaryKey)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, primaryKey)
	}
	rest := r.Without(primaryKey)
	if err := rest.validate(); err != nil {
		return "", nil, err
	}
	b := sq.Update(table)
	for i, c := range rest.Columns {
		b = b.Set(c, rest.Values[i])
	}
	return b.Where(sq.Eq{primaryKey: id}).ToSql()
}

// InsertManySQL builds multi-row INSERT statements for records sharing the
// columns of the first one, MAX_MULTIPLE_INSERTS rows per statement.
func InsertManySQL(table string, records []Record) ([]Command, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	columns := records[0].Columns
	if err := records[0].validate(); err != nil {
		return nil, err
	}

	var cmds []Command
	for i := 0; i < len(records); i += MAX_MULTIPLE_INSERTS {
		end := i + MAX_MULTIPLE_INSERTS
		if end > len(records) {
			end = len(records)
		}
		b := sq.Insert(table).Columns(columns...)
		for _, rec := range records[i:end] {
			row := make([]interface{}, len(columns))
			for j, c := range columns {
				row[j], _ = rec.Get(c)
			}
			b = b.Values(row...)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, NewCommand(query, Args(args...)))
	}
	return cmds, nil
}
