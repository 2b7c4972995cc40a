package tabular

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Encoder turns row sources into blobs. The zero value writes date/time
// cells in seconds.
type Encoder struct {
	TimeUnit TimeUnit
}

// NewEncoder returns an encoder writing date/time cells in unit.
func NewEncoder(unit TimeUnit) *Encoder {
	return &Encoder{TimeUnit: unit}
}

func (e *Encoder) unit() TimeUnit {
	if e == nil {
		return Seconds
	}
	return e.TimeUnit
}

// Encode consumes src and returns its blob. A source without rows gives
// nil. The context is checked before every row advance; a cancelled or
// failed encode returns no blob.
func (e *Encoder) Encode(ctx context.Context, src RowSource) (*string, error) {
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

	var b strings.Builder
	writeHeader(&b, cols)
	for n := 1; ; n++ {
		vals, err := src.Values()
		if err != nil {
			return nil, err
		}
		if err := e.writeRow(&b, cols, vals); err != nil {
			return nil, errors.Wrapf(err, "row %d", n)
		}
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

	blob := strings.TrimSuffix(b.String(), string(LineSeparator))
	return &blob, nil
}

// EncodeAll encodes every result set of src, in order. Result sets without
// rows keep their place as nil entries.
func (e *Encoder) EncodeAll(ctx context.Context, src MultiSource) ([]*string, error) {
	var blobs []*string
	for {
		blob, err := e.Encode(ctx, src)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
		if !src.NextResultSet() {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// Encode is a shorthand for encoding a table with e.
func (t *Table) Encode(ctx context.Context, e *Encoder) (*string, error) {
	if t == nil {
		return nil, nil
	}
	return e.Encode(ctx, t.Source())
}

func writeHeader(b *strings.Builder, cols []Column) {
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(FieldSeparator)
		}
		b.WriteString(c.header())
	}
	b.WriteByte(LineSeparator)
}

func (e *Encoder) writeRow(b *strings.Builder, cols []Column, vals []any) error {
	if len(vals) != len(cols) {
		return errors.Wrapf(ErrShapeMismatch, "%d cells for %d columns", len(vals), len(cols))
	}
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(FieldSeparator)
		}
		b.WriteString(e.cell(c.Kind, vals[i]))
	}
	b.WriteByte(LineSeparator)
	return nil
}
