package simpledb

import (
	"context"

	"github.com/medatechnology/simpledb/tabular"
)

// eachRow calls fn for every row of the first result set, with its cells
// normalized.
func eachRow(ctx context.Context, src tabular.RowSource, fn func([]interface{}) error) error {
	for {
		row, err := firstRow(ctx, src)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// List returns the first column of every row converted to T. No rows give
// nil; NULL cells become the zero value of T.
func List[T any](ctx context.Context, db *DB, query string, opts ...Option) ([]T, error) {
	var list []T
	err := db.withCursor(ctx, "LIST", query, opts, func(cur Cursor) error {
		return eachRow(ctx, cur, func(row []interface{}) error {
			if len(row) == 0 {
				return tabular.ErrShapeMismatch
			}
			v, err := convert[T](row[0])
			if err != nil {
				return err
			}
			list = append(list, v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// StrList returns the first column of every row as text. NULL cells are
// empty strings.
func (db *DB) StrList(ctx context.Context, query string, opts ...Option) ([]string, error) {
	var list []string
	err := db.withCursor(ctx, "STRLIST", query, opts, func(cur Cursor) error {
		return eachRow(ctx, cur, func(row []interface{}) error {
			if len(row) == 0 {
				return tabular.ErrShapeMismatch
			}
			list = append(list, tabular.FormatValue(row[0]))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Dictionary maps column 0 to column 1 over every row. No rows give nil;
// a later row overwrites an earlier one with the same key.
//
//	names, err := simpledb.Dictionary[int64, string](ctx, db, "SELECT Id, Name FROM users")
func Dictionary[K comparable, V any](ctx context.Context, db *DB, query string, opts ...Option) (map[K]V, error) {
	var dict map[K]V
	err := db.withCursor(ctx, "DICTIONARY", query, opts, func(cur Cursor) error {
		return eachRow(ctx, cur, func(row []interface{}) error {
			if len(row) < 2 {
				return tabular.ErrShapeMismatch
			}
			k, err := convert[K](row[0])
			if err != nil {
				return err
			}
			v, err := convert[V](row[1])
			if err != nil {
				return err
			}
			if dict == nil {
				dict = make(map[K]V)
			}
			dict[k] = v
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return dict, nil
}
