package simpledb

import (
	"context"

	"github.com/medatechnology/simpledb/tabular"
)

// Csv runs query and returns its first result set as a tabular blob.
// A result without rows gives nil.
//
//	blob, err := db.Csv(ctx, "SELECT Id, Name FROM users WHERE Active = @active", simpledb.With("active", true))
//	// !Id~$Name|1~Ann|2~Bob
func (db *DB) Csv(ctx context.Context, query string, opts ...Option) (*string, error) {
	var blob *string
	err := db.withCursor(ctx, "CSV", query, opts, func(cur Cursor) error {
		var err error
		blob, err = db.encoder.Encode(ctx, cur)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// MultiCsv returns one blob per result set of a batch, nil for the sets
// without rows.
func (db *DB) MultiCsv(ctx context.Context, query string, opts ...Option) ([]*string, error) {
	var blobs []*string
	err := db.withCursor(ctx, "MULTICSV", query, opts, func(cur Cursor) error {
		var err error
		blobs, err = db.encoder.EncodeAll(ctx, cur)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blobs, nil
}

// Table materializes the first result set. A result without rows gives
// nil.
func (db *DB) Table(ctx context.Context, query string, opts ...Option) (*tabular.Table, error) {
	var table *tabular.Table
	err := db.withCursor(ctx, "TABLE", query, opts, func(cur Cursor) error {
		var err error
		table, err = tabular.ReadTable(ctx, cur)
		return err
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// CsvObjects encodes a list of objects with the time unit of db. Without
// fields, the db struct tags of T describe the columns.
func CsvObjects[T any](ctx context.Context, db *DB, objects []T, fields ...tabular.Field[T]) (*string, error) {
	return tabular.EncodeObjects(ctx, db.encoder, objects, fields...)
}
