package tabular

import (
	"context"

	"github.com/pkg/errors"
)

// Table is a fully materialized result set.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// ReadTable drains src into a Table. A source without rows gives a nil
// table, the same way the encoders give a nil blob.
func ReadTable(ctx context.Context, src RowSource) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !src.Next() {
		return nil, src.Err()
	}
	cols, err := src.Columns()
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: numbered(cols)}
	for {
		vals, err := src.Values()
		if err != nil {
			return nil, err
		}
		if len(vals) != len(cols) {
			return nil, errors.Wrapf(ErrShapeMismatch, "row %d has %d cells, header has %d", len(t.Rows)+1, len(vals), len(cols))
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = Normalize(v)
		}
		t.Rows = append(t.Rows, row)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !src.Next() {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column looks a column up by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Source returns a fresh row source over the table.
func (t *Table) Source() RowSource {
	return NewSliceSource(t.Columns, t.Rows...)
}

// Records returns one map per row keyed by column name.
func (t *Table) Records() []map[string]any {
	if t == nil {
		return nil
	}
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			rec[c.Name] = row[j]
		}
		out[i] = rec
	}
	return out
}
