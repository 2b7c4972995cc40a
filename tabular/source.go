package tabular

import (
	"github.com/pkg/errors"
)

// Column is one named, typed column. Ordinal is its zero-based position in
// the header and in every row.
type Column struct {
	Name    string
	Kind    Kind
	Ordinal int
}

// Col is a shorthand for a column whose ordinal is assigned by the source
// it is handed to.
func Col(name string, kind Kind) Column {
	return Column{Name: name, Kind: kind}
}

// header returns the header cell of the column.
func (c Column) header() string {
	return string(c.Kind.Marker()) + c.Name
}

// numbered returns a copy of columns with ordinals matching their position.
func numbered(columns []Column) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		c.Ordinal = i
		out[i] = c
	}
	return out
}

// RowSource is a forward-only, single-pass cursor over one result set.
//
// Next advances to the next row and reports whether there is one; when it
// returns false, Err tells an exhausted source from a failed one. Values
// returns the cells of the current row in column order. Columns may be
// called at any time after the first Next; sources whose driver does not
// declare every column type may refine those kinds from the first row.
type RowSource interface {
	Columns() ([]Column, error)
	Next() bool
	Values() ([]any, error)
	Err() error
}

// MultiSource is a RowSource over a batch of result sets. NextResultSet
// moves to the following set and reports whether there is one.
type MultiSource interface {
	RowSource
	NextResultSet() bool
}

// SliceSource serves rows held in memory. It is the row source of
// materialized tables and the fake used in place of a live cursor.
type SliceSource struct {
	columns []Column
	rows    [][]any
	pos     int
}

// NewSliceSource returns a source over rows. Ordinals are assigned from the
// column positions.
func NewSliceSource(columns []Column, rows ...[]any) *SliceSource {
	return &SliceSource{columns: numbered(columns), rows: rows}
}

func (s *SliceSource) Columns() ([]Column, error) {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out, nil
}

func (s *SliceSource) Next() bool {
	if s.pos > len(s.rows) {
		return false
	}
	s.pos++
	return s.pos <= len(s.rows)
}

func (s *SliceSource) Values() ([]any, error) {
	if s.pos < 1 || s.pos > len(s.rows) {
		return nil, errors.New("no current row")
	}
	return s.rows[s.pos-1], nil
}

func (s *SliceSource) Err() error { return nil }

// multiSource chains several sources into one batch.
type multiSource struct {
	sets []RowSource
	cur  int
}

// Multi returns a MultiSource that yields each of sets in turn.
func Multi(sets ...RowSource) MultiSource {
	return &multiSource{sets: sets}
}

func (m *multiSource) current() RowSource {
	if m.cur < len(m.sets) {
		return m.sets[m.cur]
	}
	return nil
}

func (m *multiSource) Columns() ([]Column, error) {
	if s := m.current(); s != nil {
		return s.Columns()
	}
	return nil, nil
}

func (m *multiSource) Next() bool {
	if s := m.current(); s != nil {
		return s.Next()
	}
	return false
}

func (m *multiSource) Values() ([]any, error) {
	if s := m.current(); s != nil {
		return s.Values()
	}
	return nil, errors.New("no current result set")
}

func (m *multiSource) Err() error {
	if s := m.current(); s != nil {
		return s.Err()
	}
	return nil
}

func (m *multiSource) NextResultSet() bool {
	if m.cur >= len(m.sets) {
		return false
	}
	m.cur++
	return m.cur < len(m.sets)
}
