package sqldb

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/pkg/errors"

	"github.com/medatechnology/simpledb/tabular"
)

// cursor walks the result sets of a list of statements, run one after the
// other on a single connection. A statement runs only when the cursor
// moves to it. Statements that return no columns (SET, INSERT, ...) do
// not produce result sets and are skipped.
type cursor struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *sql.Conn
	stmts  []Statement
	next   int
	wrap   func(err error, operation, query string) error

	rows    *sql.Rows
	types   []*sql.ColumnType
	columns []tabular.Column
	refined bool
	row     []any
	err     error
	closed  bool
}

// open runs statements until one returns columns. It reports false when
// the list is exhausted or a statement failed (see c.err).
func (c *cursor) open() bool {
	c.release()
	for c.next < len(c.stmts) {
		st := c.stmts[c.next]
		c.next++
		rows, err := c.conn.QueryContext(c.ctx, st.Query, st.Args...)
		if err != nil {
			if c.wrap != nil {
				err = c.wrap(err, "QUERY", st.Query)
			}
			c.err = errors.Wrapf(err, "statement %d", c.next)
			return false
		}
		types, err := rows.ColumnTypes()
		if err != nil {
			rows.Close()
			c.err = errors.Wrapf(err, "statement %d", c.next)
			return false
		}
		if len(types) == 0 {
			for rows.Next() {
			}
			err := rows.Err()
			rows.Close()
			if err != nil {
				c.err = errors.Wrapf(err, "statement %d", c.next)
				return false
			}
			continue
		}
		c.rows = rows
		c.types = types
		return true
	}
	return false
}

// release closes the current result set.
func (c *cursor) release() {
	if c.rows != nil {
		if err := c.rows.Close(); err != nil && c.err == nil {
			c.err = err
		}
	}
	c.rows, c.types, c.columns, c.row = nil, nil, nil, nil
	c.refined = false
}

func (c *cursor) Columns() ([]tabular.Column, error) {
	if c.rows == nil {
		return nil, c.err
	}
	if c.columns == nil || (!c.refined && c.row != nil) {
		c.columns = columnsOf(c.types, c.row)
		c.refined = c.row != nil
	}
	out := make([]tabular.Column, len(c.columns))
	copy(out, c.columns)
	return out, nil
}

func (c *cursor) Next() bool {
	if c.rows == nil || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.row = nil
		return false
	}
	dest := make([]any, len(c.types))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = errors.Wrap(err, "scan")
		return false
	}
	for i := range dest {
		dest[i] = convertValue(dest[i])
	}
	c.row = dest
	return true
}

func (c *cursor) Values() ([]any, error) {
	if c.row == nil {
		return nil, errors.New("no current row")
	}
	return c.row, nil
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if c.rows != nil {
		return c.rows.Err()
	}
	return nil
}

func (c *cursor) NextResultSet() bool {
	if c.closed || c.err != nil {
		return false
	}
	return c.open()
}

// Close releases the result set, the connection and the query timeout.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	if c.rows != nil {
		err = c.rows.Close()
		c.rows = nil
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	if c.cancel != nil {
		c.cancel()
	}
	return err
}

// columnsOf resolves column kinds: from the declared database type name
// when the driver reports a known one, else from the first row's value,
// else from the driver's scan type.
func columnsOf(types []*sql.ColumnType, first []any) []tabular.Column {
	cols := make([]tabular.Column, len(types))
	for i, t := range types {
		kind, ok := tabular.KindOfDatabaseType(t.DatabaseTypeName())
		if !ok {
			switch {
			case first != nil && first[i] != nil:
				kind = tabular.KindOfValue(first[i])
			case t.ScanType() != nil && t.ScanType().Kind() != reflect.Interface:
				kind = tabular.KindOf(t.ScanType())
			default:
				kind = tabular.Text
			}
		}
		cols[i] = tabular.Column{Name: t.Name(), Kind: kind, Ordinal: i}
	}
	return cols
}

// convertValue turns raw driver bytes into text. Everything else is kept
// as the driver returned it.
func convertValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	default:
		return value
	}
}
