package simpledb

import (
	"context"
	"errors"

	"github.com/medatechnology/simpledb/tabular"
)

// fakeBackend serves scripted result sets and records every command.
type fakeBackend struct {
	caps Capabilities

	// sets are the result sets returned by the next Query.
	sets    []tabular.RowSource
	queries []Command
	cursors []*fakeCursor

	execs      []Command
	execResult BasicSQLResult
	batches    [][]Command
	err        error
}

func newFake(sets ...tabular.RowSource) *fakeBackend {
	return &fakeBackend{sets: sets, execResult: BasicSQLResult{RowsAffected: 1}}
}

func (f *fakeBackend) Query(ctx context.Context, cmd Command) (Cursor, error) {
	f.queries = append(f.queries, cmd)
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeCursor{MultiSource: tabular.Multi(f.sets...)}
	f.cursors = append(f.cursors, c)
	return c, nil
}

func (f *fakeBackend) Exec(ctx context.Context, cmd Command) (BasicSQLResult, error) {
	f.execs = append(f.execs, cmd)
	if f.err != nil {
		return BasicSQLResult{}, f.err
	}
	return f.execResult, nil
}

func (f *fakeBackend) ExecBatch(ctx context.Context, cmds []Command) ([]BasicSQLResult, error) {
	f.batches = append(f.batches, cmds)
	if f.err != nil {
		return nil, f.err
	}
	results := make([]BasicSQLResult, len(cmds))
	for i := range results {
		results[i] = f.execResult
	}
	return results, nil
}

func (f *fakeBackend) Capabilities() Capabilities { return f.caps }

func (f *fakeBackend) Status(ctx context.Context) (StatusStruct, error) {
	return StatusStruct{DBMS: "fake"}, nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) allClosed() bool {
	for _, c := range f.cursors {
		if !c.closed {
			return false
		}
	}
	return true
}

type fakeCursor struct {
	tabular.MultiSource
	closed bool
}

func (c *fakeCursor) Close() error {
	if c.closed {
		return errors.New("closed twice")
	}
	c.closed = true
	return nil
}

func rows(cols []tabular.Column, data ...[]any) tabular.RowSource {
	return tabular.NewSliceSource(cols, data...)
}

func usersSource() tabular.RowSource {
	return rows(
		[]tabular.Column{tabular.Col("Id", tabular.Numeric), tabular.Col("Name", tabular.Text)},
		[]any{int64(1), "Ann"},
		[]any{int64(2), nil},
	)
}

func emptySource() tabular.RowSource {
	return rows([]tabular.Column{tabular.Col("Id", tabular.Numeric)})
}

func newTestDB(f *fakeBackend) *DB {
	return New(f, Config{Logger: NewNoopLogger()})
}
