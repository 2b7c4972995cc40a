package rqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medatechnology/goutil/simplelog"
	"github.com/rqlite/gorqlite"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
)

// gorqliteClient runs statements through a gorqlite connection. The
// connection keeps its transaction flag and cluster view in plain fields:
// queries hold mu for reading, while writes that switch the flag, status
// (which refreshes the cluster view) and close hold it exclusively.
type gorqliteClient struct {
	conn *gorqlite.Connection
	mu   sync.RWMutex
	// transactions mirrors the connection's flag, which gorqlite does not
	// expose
	transactions bool
}

func newGorqliteClient(config RqliteConfig) (*gorqliteClient, error) {
	conn, err := gorqlite.Open(config.ConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
	}
	level, err := gorqlite.ParseConsistencyLevel(config.Consistency)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrRQLiteInvalidConfig, err)
	}
	if err := conn.SetConsistencyLevel(level); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrRQLiteInvalidConfig, err)
	}
	// reads and single writes go without a transaction
	if err := conn.SetExecutionWithTransaction(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
	}
	return &gorqliteClient{conn: conn}, nil
}

func (c *gorqliteClient) name() string { return "gorqlite" }

func (c *gorqliteClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.Close()
}

func parameterized(stmts []sqldb.Statement) []gorqlite.ParameterizedStatement {
	out := make([]gorqlite.ParameterizedStatement, len(stmts))
	for i, st := range stmts {
		args := make([]interface{}, len(st.Args))
		for j, arg := range st.Args {
			if t, ok := arg.(time.Time); ok {
				arg = t.UTC().Format("2006-01-02 15:04:05.999999999")
			}
			args[j] = arg
		}
		out[i] = gorqlite.ParameterizedStatement{Query: st.Query, Arguments: args}
	}
	return out
}

// query runs read statements. gorqlite reports statement failures both in
// the result and as a summary error; the first failing statement is
// returned.
func (c *gorqliteClient) query(ctx context.Context, stmts []sqldb.Statement) ([]*resultSet, error) {
	c.mu.RLock()
	results, err := c.conn.QueryParameterizedContext(ctx, parameterized(stmts))
	c.mu.RUnlock()
	for i, r := range results {
		if r.Err != nil {
			return nil, statementError("QUERY", i, stmts[i].Query, r.Err.Error())
		}
	}
	if err != nil {
		return nil, err
	}

	sets := make([]*resultSet, len(results))
	for i := range results {
		r := &results[i]
		if len(r.Columns()) == 0 {
			continue
		}
		rs := &resultSet{columns: r.Columns(), types: r.Types()}
		for r.Next() {
			row, err := r.Slice()
			if err != nil {
				return nil, statementError("QUERY", i, stmts[i].Query, err.Error())
			}
			rs.rows = append(rs.rows, row)
		}
		sets[i] = rs
	}
	return sets, nil
}

func (c *gorqliteClient) write(ctx context.Context, stmts []sqldb.Statement, transaction bool) ([]simpledb.BasicSQLResult, error) {
	results, err := c.send(ctx, stmts, transaction)
	for i, r := range results {
		if r.Err != nil {
			return nil, statementError("EXEC", i, stmts[i].Query, r.Err.Error())
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]simpledb.BasicSQLResult, len(results))
	for i, r := range results {
		out[i] = simpledb.BasicSQLResult{
			LastInsertID: r.LastInsertID,
			RowsAffected: r.RowsAffected,
			Timing:       r.Timing,
		}
	}
	return out, nil
}

// send runs a write request. A request that needs the other transaction
// mode holds the connection exclusively and puts the previous mode back.
func (c *gorqliteClient) send(ctx context.Context, stmts []sqldb.Statement, transaction bool) ([]gorqlite.WriteResult, error) {
	c.mu.RLock()
	if transaction == c.transactions {
		defer c.mu.RUnlock()
		return c.conn.WriteParameterizedContext(ctx, parameterized(stmts))
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.transactions
	if err := c.setTransactions(transaction); err != nil {
		return nil, err
	}
	defer c.setTransactions(previous)
	return c.conn.WriteParameterizedContext(ctx, parameterized(stmts))
}

// setTransactions must be called with mu held.
func (c *gorqliteClient) setTransactions(on bool) error {
	if err := c.conn.SetExecutionWithTransaction(on); err != nil {
		return err
	}
	c.transactions = on
	return nil
}

func (c *gorqliteClient) status(ctx context.Context, status *simpledb.StatusStruct) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	leader, err := c.conn.Leader()
	if err != nil {
		simplelog.LogErr(err, "error getting rqlite leader")
		return fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
	}
	status.Leader = leader
	peers, err := c.conn.Peers()
	if err != nil {
		simplelog.LogErr(err, "error getting rqlite peers")
		return fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
	}
	for _, p := range peers {
		if p != leader {
			status.Peers = append(status.Peers, p)
		}
	}
	status.Nodes = len(status.Peers) + 1
	return nil
}
