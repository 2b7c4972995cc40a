package simpledb

import (
	"context"
)

// Execute runs a statement and returns the number of affected rows.
func (db *DB) Execute(ctx context.Context, query string, opts ...Option) (int64, error) {
	op := db.begin("EXECUTE", query)
	res, err := db.exec(ctx, NewCommand(query, opts...))
	if err != nil {
		return 0, op.end(err)
	}
	op.end(nil, Int64("rows_affected", res.RowsAffected))
	return res.RowsAffected, nil
}

// Transaction splits script into statements (on ';' and on lines holding
// only GO, outside quotes and comments) and runs them in one transaction.
// It returns the affected rows per statement, nil for an empty script.
func (db *DB) Transaction(ctx context.Context, script string) ([]int64, error) {
	return db.TransactionStatements(ctx, SplitStatements(script))
}

// TransactionStatements runs statements in one transaction and returns the
// affected rows of each. Nothing is committed when one of them fails.
func (db *DB) TransactionStatements(ctx context.Context, statements []string) ([]int64, error) {
	if len(statements) == 0 {
		return nil, nil
	}
	cmds := make([]Command, len(statements))
	for i, s := range statements {
		cmds[i] = Command{Query: s}
	}
	results, err := db.batch(ctx, "TRANSACTION", cmds)
	if err != nil {
		return nil, err
	}
	affected := make([]int64, len(results))
	for i, r := range results {
		affected[i] = r.RowsAffected
	}
	return affected, nil
}

// batch runs cmds through ExecBatch with the operation logging.
func (db *DB) batch(ctx context.Context, name string, cmds []Command) ([]BasicSQLResult, error) {
	op := db.begin(name, cmds[0].Query)
	for _, c := range cmds {
		if err := db.check(c); err != nil {
			return nil, op.end(err)
		}
	}
	results, err := db.backend.ExecBatch(ctx, cmds)
	if err != nil {
		return nil, op.end(WrapTransactionError(err, "EXEC"))
	}
	op.end(nil, Int("statements", len(cmds)), F("ms", SecondToMsString(TotalTimeElapsedInSecond(results))))
	return results, nil
}
