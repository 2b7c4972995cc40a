// Package rqlite opens rqlite clusters as simpledb backends, through
// gorqlite or, with RqliteConfig.Direct, the HTTP API itself.
package rqlite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
	"github.com/medatechnology/simpledb/tabular"
)

// client is the transport under the backend.
type client interface {
	name() string
	// query returns one set per statement, nil for statements without
	// columns.
	query(ctx context.Context, stmts []sqldb.Statement) ([]*resultSet, error)
	write(ctx context.Context, stmts []sqldb.Statement, transaction bool) ([]simpledb.BasicSQLResult, error)
	status(ctx context.Context, status *simpledb.StatusStruct) error
	close()
}

// Backend implements simpledb.Backend for rqlite. Parameters are bound
// positionally (? marks); whole requests are sent at once, so a cursor
// holds no connection.
type Backend struct {
	config RqliteConfig
	client client
	opened time.Time
}

// Open connects to the node in config.
func Open(config RqliteConfig) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var c client
	if config.Direct {
		c = newHTTPClient(config, nil)
	} else {
		gc, err := newGorqliteClient(config)
		if err != nil {
			return nil, err
		}
		c = gc
	}
	return &Backend{config: config, client: c, opened: time.Now()}, nil
}

// OpenHTTP uses hc for the HTTP API, regardless of config.Direct.
func OpenHTTP(config RqliteConfig, hc *http.Client) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.Direct = true
	return &Backend{config: config, client: newHTTPClient(config, hc), opened: time.Now()}, nil
}

func (b *Backend) Capabilities() simpledb.Capabilities { return simpledb.Capabilities{} }

func (b *Backend) Close() error {
	b.client.close()
	return nil
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.config.Timeout)
}

func (b *Backend) statements(cmd simpledb.Command) ([]sqldb.Statement, error) {
	if cmd.StoredProcedure {
		return nil, simpledb.ErrStoredProcedureUnsupported
	}
	return sqldb.Split(sqldb.Question, cmd)
}

// Query sends every statement of cmd in one request. Statements that
// return no columns do not produce result sets.
func (b *Backend) Query(ctx context.Context, cmd simpledb.Command) (simpledb.Cursor, error) {
	stmts, err := b.statements(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sets, err := b.client.query(ctx, stmts)
	if err != nil {
		return nil, WrapRQLiteError(err, "QUERY", cmd.Query)
	}
	var sources []tabular.RowSource
	for _, rs := range sets {
		if rs != nil {
			sources = append(sources, rs.source())
		}
	}
	return cursor{tabular.Multi(sources...)}, nil
}

type cursor struct {
	tabular.MultiSource
}

func (cursor) Close() error { return nil }

// Exec runs the statements of cmd in one request. Their affected rows add
// up; the last insert id is the last statement's.
func (b *Backend) Exec(ctx context.Context, cmd simpledb.Command) (simpledb.BasicSQLResult, error) {
	stmts, err := b.statements(cmd)
	if err != nil {
		return simpledb.BasicSQLResult{}, err
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	results, err := b.client.write(ctx, stmts, len(stmts) > 1)
	if err != nil {
		return simpledb.BasicSQLResult{}, WrapRQLiteError(err, "EXEC", cmd.Query)
	}
	var res simpledb.BasicSQLResult
	for _, r := range results {
		res.RowsAffected += r.RowsAffected
		res.LastInsertID = r.LastInsertID
	}
	res.Timing = time.Since(start).Seconds()
	return res, nil
}

// ExecBatch sends all statements of all commands as one transactional
// request and folds the results back per command.
func (b *Backend) ExecBatch(ctx context.Context, cmds []simpledb.Command) ([]simpledb.BasicSQLResult, error) {
	var (
		all    []sqldb.Statement
		counts []int
	)
	for i, cmd := range cmds {
		stmts, err := b.statements(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		all = append(all, stmts...)
		counts = append(counts, len(stmts))
	}
	if len(all) == 0 {
		return nil, nil
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	results, err := b.client.write(ctx, all, true)
	if err != nil {
		return nil, WrapRQLiteError(err, "TRANSACTION", "")
	}
	out := make([]simpledb.BasicSQLResult, len(cmds))
	next := 0
	for i, n := range counts {
		for _, r := range results[next : next+n] {
			out[i].RowsAffected += r.RowsAffected
			out[i].LastInsertID = r.LastInsertID
			out[i].Timing += r.Timing
		}
		next += n
	}
	return out, nil
}

// Status reports the cluster membership and the SQLite version of the
// node.
func (b *Backend) Status(ctx context.Context) (simpledb.StatusStruct, error) {
	status := simpledb.StatusStruct{
		URL:        b.config.URL,
		DBMS:       "rqlite",
		DBMSDriver: b.client.name(),
		StartTime:  b.opened,
		Uptime:     time.Since(b.opened),
		Mode:       "rw",
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.client.status(ctx, &status); err != nil {
		return status, WrapRQLiteError(err, "STATUS", "")
	}
	if status.Leader == "" {
		status.Mode = "r"
	}

	sets, err := b.client.query(ctx, []sqldb.Statement{{Query: "SELECT sqlite_version()"}})
	if err != nil {
		return status, WrapRQLiteError(err, "STATUS", "")
	}
	if len(sets) == 1 && sets[0] != nil && len(sets[0].rows) == 1 && len(sets[0].rows[0]) == 1 {
		status.Version = fmt.Sprint(sets[0].rows[0][0])
	}
	return status, nil
}
