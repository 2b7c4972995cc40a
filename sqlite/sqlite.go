// Package sqlite opens SQLite databases (mattn/go-sqlite3) as simpledb
// backends.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/medatechnology/goutil/medaerror"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
)

const (
	DriverName         = "sqlite3"
	MemoryPath         = ":memory:"
	DefaultBusyTimeout = 5 * time.Second
	DefaultMaxOpenConn = 4
)

var ErrSQLiteInvalidConfig medaerror.MedaError = medaerror.MedaError{Message: "invalid sqlite configuration"}

// Config holds the configuration of a SQLite database.
type Config struct {
	Path         string        // file path, or ":memory:" (default)
	MaxOpenConns int           // forced to 1 for in-memory databases
	BusyTimeout  time.Duration // how long a locked database is retried
	ForeignKeys  bool          // enforce foreign key constraints
	QueryTimeout time.Duration // bound on every command (0 = none)
}

// NewDefaultConfig returns an in-memory configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Path:         MemoryPath,
		MaxOpenConns: DefaultMaxOpenConn,
		BusyTimeout:  DefaultBusyTimeout,
		ForeignKeys:  true,
	}
}

// NewConfig returns the default configuration for the database file path.
func NewConfig(path string) *Config {
	c := NewDefaultConfig()
	c.Path = path
	return c
}

// Validate fills defaults and checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		c.Path = MemoryPath
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: negative busy timeout", ErrSQLiteInvalidConfig)
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConn
	}
	// Every connection to :memory: is a database of its own.
	if c.Path == MemoryPath {
		c.MaxOpenConns = 1
	}
	return nil
}

// ToDSN returns the go-sqlite3 data source name.
func (c *Config) ToDSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	if c.ForeignKeys {
		params.Set("_foreign_keys", "on")
	}
	return c.Path + "?" + params.Encode(), nil
}

// Open opens the database and returns it as a backend.
func Open(config Config) (*sqldb.Backend, error) {
	dsn, err := config.ToDSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, simpledb.WrapConnectionError(err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	if config.Path == MemoryPath {
		// Closing the last connection would drop the database.
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, simpledb.WrapConnectionError(err)
	}
	return sqldb.New(db, DriverName, Dialect{Path: config.Path}, config.QueryTimeout), nil
}

// Dialect is the SQLite dialect: @name parameters, no stored procedures,
// LastInsertId supported.
type Dialect struct {
	Path string
}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder() sqldb.Placeholder { return sqldb.AtName }

func (Dialect) Capabilities() simpledb.Capabilities { return simpledb.Capabilities{} }

func (Dialect) Procedure(name string, params []simpledb.Param, rows bool) (string, error) {
	return "", simpledb.ErrStoredProcedureUnsupported
}

// Describe reports the library version and the database size.
func (d Dialect) Describe(ctx context.Context, db *sql.DB, status *simpledb.StatusStruct) error {
	status.URL = d.Path
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&status.Version); err != nil {
		return err
	}
	var size int64
	err := db.QueryRowContext(ctx,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	if err == nil {
		status.DBSize = size
	}
	return nil
}
