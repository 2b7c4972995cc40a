package simpledb

import (
	"context"
	"time"

	"github.com/medatechnology/simpledb/tabular"
)

// Config holds the settings of a DB. The zero value is usable: date/time
// cells in seconds, the package default logger and "Id" as primary key.
type Config struct {
	TimeUnit   tabular.TimeUnit
	Logger     Logger
	PrimaryKey string
}

// DB is the convenience layer over one Backend. It is safe for concurrent
// use as long as the backend is.
type DB struct {
	backend    Backend
	encoder    *tabular.Encoder
	logger     Logger
	primaryKey string
}

// New wraps backend.
func New(backend Backend, config Config) *DB {
	logger := config.Logger
	if logger == nil {
		logger = GetDefaultLogger()
	}
	pk := config.PrimaryKey
	if pk == "" {
		pk = DEFAULT_PRIMARY_KEY
	}
	return &DB{
		backend:    backend,
		encoder:    tabular.NewEncoder(config.TimeUnit),
		logger:     logger,
		primaryKey: pk,
	}
}

// Backend returns the wrapped backend.
func (db *DB) Backend() Backend { return db.backend }

// Encoder returns the codec encoder configured for this DB.
func (db *DB) Encoder() *tabular.Encoder { return db.encoder }

// Decoder returns a decoder matching Encoder.
func (db *DB) Decoder() *tabular.Decoder { return tabular.NewDecoder(db.encoder.TimeUnit) }

// Status asks the backend for its status.
func (db *DB) Status(ctx context.Context) (StatusStruct, error) {
	return db.backend.Status(ctx)
}

// Close closes the backend.
func (db *DB) Close() error {
	return db.backend.Close()
}

// operation is the logging scope of one DB call.
type operation struct {
	logger Logger
	name   string
	query  string
	start  time.Time
}

func (db *DB) begin(name, query string) *operation {
	op := &operation{
		logger: db.logger.With(Op(NewOperationID()), String("operation", name)),
		name:   name,
		query:  query,
		start:  time.Now(),
	}
	op.logger.Debug("start", String("query", query))
	return op
}

// end logs the outcome of the operation and returns err wrapped with the
// operation context.
func (op *operation) end(err error, fields ...Field) error {
	if err != nil {
		wrapped := WrapQueryError(err, op.name, op.query)
		logErrorWithContext(op.logger, wrapped, Duration("duration", time.Since(op.start)))
		return wrapped
	}
	op.logger.Debug("done", append(fields, Duration("duration", time.Since(op.start)))...)
	return nil
}

// query opens a cursor for cmd. Stored procedures are refused up front on
// backends that have none.
func (db *DB) query(ctx context.Context, cmd Command) (Cursor, error) {
	if err := db.check(cmd); err != nil {
		return nil, err
	}
	return db.backend.Query(ctx, cmd)
}

func (db *DB) exec(ctx context.Context, cmd Command) (BasicSQLResult, error) {
	if err := db.check(cmd); err != nil {
		return BasicSQLResult{}, err
	}
	return db.backend.Exec(ctx, cmd)
}

func (db *DB) check(cmd Command) error {
	if cmd.StoredProcedure {
		if !db.backend.Capabilities().StoredProcedures {
			return ErrStoredProcedureUnsupported
		}
		if err := ValidateIdentifier(cmd.Query); err != nil {
			return err
		}
	}
	_, err := cmd.Named()
	return err
}

// withCursor runs fn over the cursor of a query and closes it on every
// path. The close error is reported when fn succeeded.
func (db *DB) withCursor(ctx context.Context, name, query string, opts []Option, fn func(Cursor) error) error {
	op := db.begin(name, query)
	cur, err := db.query(ctx, NewCommand(query, opts...))
	if err != nil {
		return op.end(err)
	}
	err = fn(cur)
	if cerr := cur.Close(); err == nil {
		err = cerr
	}
	return op.end(err)
}
