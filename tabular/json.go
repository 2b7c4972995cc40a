package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// JSONArray renders src as a JSON array with one object per row; keys keep
// column order. A source without rows gives "[]".
func (e *Encoder) JSONArray(ctx context.Context, src RowSource) (string, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	n, err := e.writeObjects(ctx, &b, src, -1)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "[]", nil
	}
	b.WriteByte(']')
	return b.String(), nil
}

// JSONObject renders the first row of src as a JSON object. A source
// without rows gives nil.
func (e *Encoder) JSONObject(ctx context.Context, src RowSource) (*string, error) {
	var b bytes.Buffer
	n, err := e.writeObjects(ctx, &b, src, 1)
	if err != nil || n == 0 {
		return nil, err
	}
	s := b.String()
	return &s, nil
}

// JSONValue renders the first cell of the first row of src. A source
// without rows gives "null".
func (e *Encoder) JSONValue(ctx context.Context, src RowSource) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !src.Next() {
		if err := src.Err(); err != nil {
			return "", err
		}
		return "null", nil
	}
	cols, err := src.Columns()
	if err != nil {
		return "", err
	}
	vals, err := src.Values()
	if err != nil {
		return "", err
	}
	if len(cols) == 0 || len(vals) != len(cols) {
		return "", errors.Wrapf(ErrShapeMismatch, "%d cells for %d columns", len(vals), len(cols))
	}
	raw, err := e.jsonCell(cols[0].Kind, vals[0])
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// writeObjects writes up to limit rows (all when limit < 0) as
// comma-separated JSON objects and returns how many it wrote.
func (e *Encoder) writeObjects(ctx context.Context, b *bytes.Buffer, src RowSource, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var (
		cols []Column
		keys [][]byte
		n    int
	)
	for limit < 0 || n < limit {
		if !src.Next() {
			break
		}
		if cols == nil {
			var err error
			if cols, err = src.Columns(); err != nil {
				return 0, err
			}
			keys = make([][]byte, len(cols))
			for i, c := range cols {
				if keys[i], err = marshal(c.Name); err != nil {
					return 0, err
				}
			}
		}
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		if len(vals) != len(cols) {
			return 0, errors.Wrapf(ErrShapeMismatch, "row %d has %d cells, header has %d", n+1, len(vals), len(cols))
		}

		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		for i, c := range cols {
			if i > 0 {
				b.WriteByte(',')
			}
			b.Write(keys[i])
			b.WriteByte(':')
			raw, err := e.jsonCell(c.Kind, vals[i])
			if err != nil {
				return 0, errors.Wrapf(err, "column %q", c.Name)
			}
			b.Write(raw)
		}
		b.WriteByte('}')
		n++

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	if err := src.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// jsonCell converts one cell with the same kind table as the blob encoder:
// numbers stay numbers, date/times become RFC 3339 strings, booleans
// become true/false and everything else is a string.
func (e *Encoder) jsonCell(kind Kind, v any) ([]byte, error) {
	v = Normalize(v)
	if v == nil {
		return []byte("null"), nil
	}
	switch kind {
	case Numeric, Decimal:
		if s, ok := formatNumber(v); ok {
			if _, isBool := v.(bool); !isBool && json.Valid([]byte(s)) {
				return []byte(s), nil
			}
		}
	case DateTime:
		if t, ok := asTime(v); ok {
			return marshal(t.UTC().Format(time.RFC3339Nano))
		}
	case Boolean:
		if b, ok := asBool(v); ok {
			return marshal(b)
		}
	}
	return marshal(formatText(v))
}

func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(b.String(), "\n")), nil
}
