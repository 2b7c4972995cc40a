package simpledb

import (
	"context"

	"github.com/medatechnology/simpledb/tabular"
)

// Backend is what a database client has to provide. Every implementation
// lives in its own sub-package (sqldb, rqlite) and the DB convenience layer
// is written only against this interface.
type Backend interface {
	// Query runs a command and returns a cursor over all of its result sets.
	// The caller must Close it.
	Query(ctx context.Context, cmd Command) (Cursor, error)

	// Exec runs a command that returns no rows.
	Exec(ctx context.Context, cmd Command) (BasicSQLResult, error)

	// ExecBatch runs the commands sequentially in one transaction. The
	// transaction is rolled back on the first error.
	ExecBatch(ctx context.Context, cmds []Command) ([]BasicSQLResult, error)

	Capabilities() Capabilities

	// Status and Health check
	Status(ctx context.Context) (StatusStruct, error)

	Close() error
}

// Cursor is a forward-only multi-result cursor that holds a connection
// until it is closed.
type Cursor interface {
	tabular.MultiSource
	Close() error
}

// Capabilities lists optional backend features.
type Capabilities struct {
	StoredProcedures bool `json:"stored_procedures"`
	// Returning is true when INSERT ... RETURNING is the way to read back a
	// generated id (LastInsertId is not supported by the driver).
	Returning bool `json:"returning"`
}
