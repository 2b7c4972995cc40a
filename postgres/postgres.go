// Package postgres opens PostgreSQL databases as simpledb backends, through
// either lib/pq or the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
)

// Open connects with config and returns the backend. The connection is
// verified with a ping before Open returns.
func Open(config PostgresConfig) (*sqldb.Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var (
		dsn string
		err error
	)
	// pgx reads the URL form, lib/pq both.
	if config.Driver == DriverPGX {
		dsn, err = config.ToDSN()
	} else {
		dsn, err = config.ToSimpleDSN()
	}
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "CONNECT", ""))
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPostgresConnectionFailed, WrapPostgreSQLError(err, "PING", ""))
	}

	return sqldb.New(db, config.Driver, Dialect{Address: config.Address()}, config.QueryTimeout), nil
}

// Dialect is the PostgreSQL dialect: $N parameters, functions and
// procedures, INSERT ... RETURNING for generated ids.
type Dialect struct {
	Address string // host:port/dbname
}

func (Dialect) Name() string { return "postgresql" }

func (Dialect) Placeholder() sqldb.Placeholder { return sqldb.Dollar }

func (Dialect) Capabilities() simpledb.Capabilities {
	return simpledb.Capabilities{StoredProcedures: true, Returning: true}
}

// Procedure calls a set returning function when rows is set
// (SELECT * FROM name(a => @a)), a procedure otherwise (CALL name(...)).
// Named parameters use PostgreSQL's named notation.
//
//	Procedure("report", [@from, @to], true) -> SELECT * FROM report(from => @from, to => @to)
//	Procedure("archive", [1], false)        -> CALL archive(?)
func (Dialect) Procedure(name string, params []simpledb.Param, rows bool) (string, error) {
	if err := simpledb.ValidateIdentifier(name); err != nil {
		return "", err
	}
	args := make([]string, len(params))
	for i, p := range params {
		if p.Name == "" {
			args[i] = "?"
			continue
		}
		key := p.Key()
		if err := simpledb.ValidateIdentifier(key); err != nil {
			return "", err
		}
		args[i] = fmt.Sprintf("%s => @%s", key, key)
	}
	call := fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	if rows {
		return "SELECT * FROM " + call, nil
	}
	return "CALL " + call, nil
}

// WrapError attaches the server diagnostics of a failed command.
func (Dialect) WrapError(err error, operation, query string) error {
	return WrapPostgreSQLError(err, operation, query)
}

// Describe reports the server version, database size and postmaster start
// time. Uptime is measured from the server start.
func (d Dialect) Describe(ctx context.Context, db *sql.DB, status *simpledb.StatusStruct) error {
	status.URL = d.Address
	err := db.QueryRowContext(ctx,
		"SELECT current_setting('server_version'), pg_database_size(current_database()), pg_postmaster_start_time()").
		Scan(&status.Version, &status.DBSize, &status.StartTime)
	if err != nil {
		return WrapPostgreSQLError(err, "STATUS", "")
	}
	if !status.StartTime.IsZero() {
		status.Uptime = time.Since(status.StartTime)
	}

	var recovery bool
	if err := db.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&recovery); err == nil && recovery {
		status.Mode = "r"
		status.IsLeader = false
	}
	return nil
}
