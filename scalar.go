package simpledb

import (
	"context"
	"database/sql"

	"github.com/medatechnology/simpledb/tabular"
)

// firstRow advances src once and returns the current row, or nil when the
// result set is empty.
func firstRow(ctx context.Context, src tabular.RowSource) ([]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !src.Next() {
		return nil, src.Err()
	}
	vals, err := src.Values()
	if err != nil {
		return nil, err
	}
	row := make([]interface{}, len(vals))
	for i, v := range vals {
		row[i] = tabular.Normalize(v)
	}
	return row, nil
}

// convert assigns v to a T with the conversion rules of database/sql
// (numbers from text, text from numbers and times, and so on). NULL gives
// the zero value.
func convert[T any](v interface{}) (T, error) {
	var n sql.Null[T]
	if err := n.Scan(v); err != nil {
		var zero T
		return zero, err
	}
	return n.V, nil
}

// Val returns the first cell of the first row converted to T. No rows or
// NULL give the zero value of T.
//
//	count, err := simpledb.Val[int64](ctx, db, "SELECT COUNT(*) FROM users")
func Val[T any](ctx context.Context, db *DB, query string, opts ...Option) (T, error) {
	var val T
	err := db.withCursor(ctx, "VAL", query, opts, func(cur Cursor) error {
		row, err := firstRow(ctx, cur)
		if err != nil || len(row) == 0 {
			return err
		}
		val, err = convert[T](row[0])
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val, nil
}

// Str returns the first cell of the first row as text, nil for no rows or
// NULL.
func (db *DB) Str(ctx context.Context, query string, opts ...Option) (*string, error) {
	var out *string
	err := db.withCursor(ctx, "STR", query, opts, func(cur Cursor) error {
		row, err := firstRow(ctx, cur)
		if err != nil || len(row) == 0 || row[0] == nil {
			return err
		}
		s := tabular.FormatValue(row[0])
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Values returns the first row of every result set of a batch, flattened
// in order. An empty result set contributes one nil per column.
func (db *DB) Values(ctx context.Context, query string, opts ...Option) ([]interface{}, error) {
	var out []interface{}
	err := db.withCursor(ctx, "VALUES", query, opts, func(cur Cursor) error {
		for {
			row, err := firstRow(ctx, cur)
			if err != nil {
				return err
			}
			if row == nil {
				cols, err := cur.Columns()
				if err != nil {
					return err
				}
				row = make([]interface{}, len(cols))
			}
			out = append(out, row...)
			if !cur.NextResultSet() {
				return cur.Err()
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
