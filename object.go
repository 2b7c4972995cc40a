package simpledb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/medatechnology/goutil/object"

	"github.com/medatechnology/simpledb/tabular"
)

// rowMap keys the cells of a row by column name.
func rowMap(src tabular.RowSource, row []interface{}) (map[string]interface{}, error) {
	cols, err := src.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != len(row) {
		return nil, fmt.Errorf("%w: %d cells for %d columns", tabular.ErrShapeMismatch, len(row), len(cols))
	}
	m := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		m[c.Name] = row[i]
	}
	return m, nil
}

// Object maps the first row onto a T, matching columns to fields. No rows
// give nil.
func Object[T any](ctx context.Context, db *DB, query string, opts ...Option) (*T, error) {
	var out *T
	err := db.withCursor(ctx, "OBJECT", query, opts, func(cur Cursor) error {
		row, err := firstRow(ctx, cur)
		if err != nil || row == nil {
			return err
		}
		m, err := rowMap(cur, row)
		if err != nil {
			return err
		}
		obj := object.MapToStruct[T](m)
		out = &obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ObjList maps every row onto a T. No rows give nil.
func ObjList[T any](ctx context.Context, db *DB, query string, opts ...Option) ([]T, error) {
	var list []T
	err := db.withCursor(ctx, "OBJLIST", query, opts, func(cur Cursor) error {
		return eachRow(ctx, cur, func(row []interface{}) error {
			m, err := rowMap(cur, row)
			if err != nil {
				return err
			}
			list = append(list, object.MapToStruct[T](m))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the row of table whose primary key equals id, keyed by
// column name, or nil when there is none.
func (db *DB) Get(ctx context.Context, table string, id interface{}) (map[string]interface{}, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	query, args, err := sq.Select("*").From(table).Where(sq.Eq{db.primaryKey: id}).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	err = db.withCursor(ctx, "GET", query, []Option{Args(args...)}, func(cur Cursor) error {
		row, err := firstRow(ctx, cur)
		if err != nil || row == nil {
			return err
		}
		out, err = rowMap(cur, row)
		return err
	})
	if err != nil {
		return nil, WrapSelectError(err, table)
	}
	return out, nil
}
