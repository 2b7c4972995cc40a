package tabular

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Decoder parses blobs back into tables. Its TimeUnit must match the one
// the blob was encoded with.
type Decoder struct {
	TimeUnit TimeUnit
}

// NewDecoder returns a decoder reading date/time cells in unit.
func NewDecoder(unit TimeUnit) *Decoder {
	return &Decoder{TimeUnit: unit}
}

// Decode parses blob. A nil blob is a result without rows and gives a nil
// table.
func (d *Decoder) Decode(blob *string) (*Table, error) {
	if blob == nil {
		return nil, nil
	}
	return d.DecodeString(*blob)
}

// DecodeString parses a blob held in a plain string.
//
// Cells come back as int64 (numeric), float64 (decimal), time.Time in UTC
// (date/time), bool (boolean) and string (text). Null cells are nil.
func (d *Decoder) DecodeString(blob string) (*Table, error) {
	if blob == "" {
		return nil, errors.Wrap(ErrMalformedBlob, "empty blob")
	}
	lines := strings.Split(blob, string(LineSeparator))
	if len(lines) < 2 {
		return nil, errors.Wrap(ErrMalformedBlob, "no data line")
	}

	cols, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: cols, Rows: make([][]any, 0, len(lines)-1)}
	for n, line := range lines[1:] {
		cells := strings.Split(line, string(FieldSeparator))
		if len(cells) != len(cols) {
			return nil, errors.Wrapf(ErrShapeMismatch, "line %d has %d cells, header has %d", n+2, len(cells), len(cols))
		}
		row := make([]any, len(cells))
		for i, cell := range cells {
			v, err := d.parseCell(cols[i].Kind, cell)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %q", n+2, cols[i].Name)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseHeader(line string) ([]Column, error) {
	if line == "" {
		return nil, errors.Wrap(ErrMalformedBlob, "empty header")
	}
	cells := strings.Split(line, string(FieldSeparator))
	cols := make([]Column, len(cells))
	for i, cell := range cells {
		if cell == "" {
			return nil, errors.Wrapf(ErrMalformedBlob, "empty header cell %d", i+1)
		}
		kind, ok := KindFromMarker(cell[0])
		if !ok {
			return nil, errors.Wrapf(ErrMalformedBlob, "unknown type marker %q in header cell %d", cell[0], i+1)
		}
		cols[i] = Column{Name: cell[1:], Kind: kind, Ordinal: i}
	}
	return cols, nil
}

func (d *Decoder) parseCell(kind Kind, cell string) (any, error) {
	if cell == NullSentinel {
		return nil, nil
	}
	switch kind {
	case Numeric:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedBlob, "bad numeric cell %q", cell)
		}
		return n, nil
	case Decimal:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedBlob, "bad decimal cell %q", cell)
		}
		return f, nil
	case DateTime:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedBlob, "bad date/time cell %q", cell)
		}
		var unit TimeUnit
		if d != nil {
			unit = d.TimeUnit
		}
		return unit.Time(n), nil
	case Boolean:
		switch cell {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, errors.Wrapf(ErrMalformedBlob, "bad boolean cell %q", cell)
	}
	return cell, nil
}
