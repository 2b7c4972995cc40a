package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/medatechnology/simpledb"
)

// Backend implements simpledb.Backend for a *sql.DB.
type Backend struct {
	db           *sql.DB
	driver       string
	dialect      Dialect
	queryTimeout time.Duration
	opened       time.Time
	closed       atomic.Bool
}

// New wraps db, opened with driver, for dialect. A positive queryTimeout
// bounds every command; a query's bound lasts until its cursor is closed.
func New(db *sql.DB, driver string, dialect Dialect, queryTimeout time.Duration) *Backend {
	return &Backend{
		db:           db,
		driver:       driver,
		dialect:      dialect,
		queryTimeout: queryTimeout,
		opened:       time.Now(),
	}
}

// DB returns the underlying pool.
func (b *Backend) DB() *sql.DB { return b.db }

// Dialect returns the dialect the backend was built with.
func (b *Backend) Dialect() Dialect { return b.dialect }

func (b *Backend) Capabilities() simpledb.Capabilities {
	return b.dialect.Capabilities()
}

// Close closes the pool. Later calls on the backend return ErrClosed.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) checkOpen() error {
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

// wrap passes a driver error through the dialect's ErrorWrapper, if any.
func (b *Backend) wrap(err error, operation, query string) error {
	if err == nil {
		return nil
	}
	if w, ok := b.dialect.(ErrorWrapper); ok {
		return w.WrapError(err, operation, query)
	}
	return err
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.queryTimeout > 0 {
		return context.WithTimeout(ctx, b.queryTimeout)
	}
	return context.WithCancel(ctx)
}

// statements turns cmd into bound statements, calling the dialect for
// stored procedures.
func (b *Backend) statements(cmd simpledb.Command, rows bool) ([]Statement, error) {
	if !cmd.StoredProcedure {
		return Split(b.dialect.Placeholder(), cmd)
	}
	query, err := b.dialect.Procedure(cmd.Query, cmd.Params, rows)
	if err != nil {
		return nil, err
	}
	query, args, err := Bind(b.dialect.Placeholder(), query, cmd.Params)
	if err != nil {
		return nil, err
	}
	return []Statement{{Query: query, Args: args}}, nil
}

// Query runs cmd on one connection and returns a cursor over its result
// sets. Only the first row-returning statement runs before Query returns;
// the rest run as the cursor reaches them.
func (b *Backend) Query(ctx context.Context, cmd simpledb.Command) (simpledb.Cursor, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	stmts, err := b.statements(cmd, true)
	if err != nil {
		return nil, err
	}
	ctx, cancel := b.withTimeout(ctx)
	conn, err := b.db.Conn(ctx)
	if err != nil {
		cancel()
		return nil, b.wrap(err, "CONNECT", cmd.Query)
	}
	c := &cursor{ctx: ctx, cancel: cancel, conn: conn, stmts: stmts, wrap: b.wrap}
	if !c.open() && c.err != nil {
		err := c.err
		c.Close()
		return nil, err
	}
	return c, nil
}

// Exec runs cmd and reports rows affected and the last insert id, where
// the driver has one. Several statements run in order on one connection;
// their affected rows add up.
func (b *Backend) Exec(ctx context.Context, cmd simpledb.Command) (simpledb.BasicSQLResult, error) {
	if err := b.checkOpen(); err != nil {
		return simpledb.BasicSQLResult{}, err
	}
	stmts, err := b.statements(cmd, false)
	if err != nil {
		return simpledb.BasicSQLResult{}, err
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var res simpledb.BasicSQLResult
	if len(stmts) == 1 {
		res, err = execOne(ctx, b.db, stmts[0])
	} else {
		conn, cerr := b.db.Conn(ctx)
		if cerr != nil {
			return simpledb.BasicSQLResult{}, cerr
		}
		defer conn.Close()
		for i, st := range stmts {
			r, eerr := execOne(ctx, conn, st)
			if eerr != nil {
				err = fmt.Errorf("statement %d: %w", i+1, eerr)
				break
			}
			res.RowsAffected += r.RowsAffected
			res.LastInsertID = r.LastInsertID
		}
	}
	if err != nil {
		return simpledb.BasicSQLResult{}, b.wrap(err, "EXEC", cmd.Query)
	}
	res.Timing = time.Since(start).Seconds()
	return res, nil
}

// ExecBatch runs every command in one transaction, rolled back on the
// first failure.
func (b *Backend) ExecBatch(ctx context.Context, cmds []simpledb.Command) ([]simpledb.BasicSQLResult, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	var all [][]Statement
	for i, cmd := range cmds {
		stmts, err := b.statements(cmd, false)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		all = append(all, stmts)
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := make([]simpledb.BasicSQLResult, 0, len(cmds))
	for i, stmts := range all {
		start := time.Now()
		var res simpledb.BasicSQLResult
		for _, st := range stmts {
			r, err := execOne(ctx, tx, st)
			if err != nil {
				return nil, fmt.Errorf("command %d: %w", i+1, b.wrap(err, "TRANSACTION", st.Query))
			}
			res.RowsAffected += r.RowsAffected
			res.LastInsertID = r.LastInsertID
		}
		res.Timing = time.Since(start).Seconds()
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", b.wrap(err, "COMMIT", ""))
	}
	return results, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execOne(ctx context.Context, ex execer, st Statement) (simpledb.BasicSQLResult, error) {
	result, err := ex.ExecContext(ctx, st.Query, st.Args...)
	if err != nil {
		return simpledb.BasicSQLResult{}, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return simpledb.BasicSQLResult{}, err
	}
	// Not every driver supports it (lib/pq does not).
	lastInsertID, _ := result.LastInsertId()
	return simpledb.BasicSQLResult{
		RowsAffected: rowsAffected,
		LastInsertID: lastInsertID,
	}, nil
}

// Status reports pool statistics and whatever the dialect can describe.
func (b *Backend) Status(ctx context.Context) (simpledb.StatusStruct, error) {
	if err := b.checkOpen(); err != nil {
		return simpledb.StatusStruct{}, err
	}
	stats := b.db.Stats()
	status := simpledb.StatusStruct{
		DBMS:            b.dialect.Name(),
		DBMSDriver:      b.driver,
		StartTime:       b.opened,
		Uptime:          time.Since(b.opened),
		Mode:            "rw",
		Nodes:           1,
		IsLeader:        true,
		MaxPool:         stats.MaxOpenConnections,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}
	if err := b.db.PingContext(ctx); err != nil {
		return status, err
	}
	if err := b.dialect.Describe(ctx, b.db, &status); err != nil {
		return status, err
	}
	return status, nil
}
