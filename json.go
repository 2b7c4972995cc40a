package simpledb

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/medatechnology/simpledb/tabular"
)

// JSON returns the first result set as a JSON array of objects, "[]" when
// there are no rows.
func (db *DB) JSON(ctx context.Context, query string, opts ...Option) (string, error) {
	var out string
	err := db.withCursor(ctx, "JSON", query, opts, func(cur Cursor) error {
		var err error
		out, err = db.encoder.JSONArray(ctx, cur)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// JSONObject returns the first row as a JSON object, nil when there are no
// rows.
func (db *DB) JSONObject(ctx context.Context, query string, opts ...Option) (*string, error) {
	var out *string
	err := db.withCursor(ctx, "JSONOBJECT", query, opts, func(cur Cursor) error {
		var err error
		out, err = db.encoder.JSONObject(ctx, cur)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Retrieve builds one JSON object out of a batch: property i holds result
// set i rendered as props[i].Kind. A result set without rows is null;
// properties beyond the last result set are null as well.
//
//	out, err := db.Retrieve(ctx, "SELECT * FROM users; SELECT COUNT(*) FROM users",
//		[]simpledb.Property{simpledb.Prop("users", simpledb.ResultArray), simpledb.Prop("count", simpledb.ResultValue)})
//	// {"users":[...],"count":2}
func (db *DB) Retrieve(ctx context.Context, query string, props []Property, opts ...Option) (string, error) {
	var b bytes.Buffer
	err := db.withCursor(ctx, "RETRIEVE", query, opts, func(cur Cursor) error {
		b.WriteByte('{')
		more := true
		for i, prop := range props {
			if i > 0 {
				b.WriteByte(',')
				more = more && cur.NextResultSet()
			}
			key, err := json.Marshal(prop.Name)
			if err != nil {
				return err
			}
			b.Write(key)
			b.WriteByte(':')

			raw := "null"
			if more {
				if raw, err = db.renderResult(ctx, cur, prop.Kind); err != nil {
					return err
				}
			}
			b.WriteString(raw)
		}
		b.WriteByte('}')
		return cur.Err()
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (db *DB) renderResult(ctx context.Context, src tabular.RowSource, kind ResultKind) (string, error) {
	switch kind {
	case ResultObject:
		obj, err := db.encoder.JSONObject(ctx, src)
		if err != nil || obj == nil {
			return "null", err
		}
		return *obj, nil
	case ResultValue:
		return db.encoder.JSONValue(ctx, src)
	case ResultCsv:
		blob, err := db.encoder.Encode(ctx, src)
		if err != nil || blob == nil {
			return "null", err
		}
		raw, err := json.Marshal(*blob)
		return string(raw), err
	default:
		arr, err := db.encoder.JSONArray(ctx, src)
		if err != nil || arr == "[]" {
			return "null", err
		}
		return arr, nil
	}
}
