// Package sqldb implements simpledb.Backend over database/sql. What differs
// between database servers (placeholder syntax, stored procedure calls,
// status queries) is supplied by a Dialect; see the postgres and sqlite
// packages.
package sqldb

import (
	"context"
	"database/sql"

	"github.com/medatechnology/goutil/medaerror"

	"github.com/medatechnology/simpledb"
)

var (
	ErrMissingParameter medaerror.MedaError = medaerror.MedaError{Message: "parameter is referenced but has no value"}
	ErrEmptyQuery       medaerror.MedaError = medaerror.MedaError{Message: "query has no statements"}
	ErrClosed           medaerror.MedaError = medaerror.MedaError{Message: "backend is closed"}
)

// Placeholder is the parameter syntax a driver understands.
type Placeholder int

const (
	// Question binds ? in order. Named parameters are rewritten to ? and
	// their values repeated per occurrence.
	Question Placeholder = iota
	// Dollar binds $1, $2, ... Named parameters get one number per distinct
	// name.
	Dollar
	// AtName keeps @name in the query and passes sql.Named arguments.
	AtName
)

func (p Placeholder) String() string {
	switch p {
	case Question:
		return "?"
	case Dollar:
		return "$N"
	case AtName:
		return "@name"
	default:
		return "unknown"
	}
}

// Dialect describes one database server.
type Dialect interface {
	// Name is the DBMS name reported in status.
	Name() string

	Placeholder() Placeholder

	Capabilities() simpledb.Capabilities

	// Procedure returns the statement that calls the stored procedure name.
	// Parameters are referenced as @name (or ? when positional) and bound
	// afterwards. rows selects the form that returns a result set.
	Procedure(name string, params []simpledb.Param, rows bool) (string, error)

	// Describe fills the server specific parts of status (version, size,
	// start time).
	Describe(ctx context.Context, db *sql.DB, status *simpledb.StatusStruct) error
}

// ErrorWrapper is implemented by dialects that translate driver errors
// (codes, details) into their own error type.
type ErrorWrapper interface {
	WrapError(err error, operation, query string) error
}
