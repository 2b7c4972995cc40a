package simpledb

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

// ErrorContext records where a failed operation happened.
type ErrorContext struct {
	Operation string
	Table     string
	Query     string
	Fields    map[string]interface{}
}

// DBError is a backend or codec failure annotated with its context. The
// message carries operation and table; the query text only shows up in
// FormatError and the error log.
type DBError struct {
	Err     error
	Context ErrorContext
}

func (e *DBError) Error() string {
	var tags []string
	if op := e.Context.Operation; op != "" {
		tags = append(tags, "operation="+op)
	}
	if t := e.Context.Table; t != "" {
		tags = append(tags, "table="+t)
	}
	if len(tags) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + " [" + strings.Join(tags, ", ") + "]"
}

func (e *DBError) Unwrap() error { return e.Err }

func wrap(err error, ctx ErrorContext) error {
	if err == nil {
		return nil
	}
	return &DBError{Err: err, Context: ctx}
}

// WrapError annotates err with an operation and table. A nil err stays nil.
func WrapError(err error, operation, table string) error {
	return wrap(err, ErrorContext{Operation: operation, Table: table})
}

// WrapErrorWithQuery is WrapError plus the statement text.
func WrapErrorWithQuery(err error, operation, table, query string) error {
	return wrap(err, ErrorContext{Operation: operation, Table: table, Query: query})
}

// WrapErrorWithFields is WrapError plus free-form fields.
func WrapErrorWithFields(err error, operation, table string, fields map[string]interface{}) error {
	return wrap(err, ErrorContext{Operation: operation, Table: table, Fields: fields})
}

func WrapSelectError(err error, table string) error { return WrapError(err, "SELECT", table) }
func WrapInsertError(err error, table string) error { return WrapError(err, "INSERT", table) }
func WrapUpdateError(err error, table string) error { return WrapError(err, "UPDATE", table) }
func WrapDeleteError(err error, table string) error { return WrapError(err, "DELETE", table) }
func WrapConnectionError(err error) error           { return WrapError(err, "CONNECT", "") }

// WrapQueryError wraps a failed statement that is not tied to one table.
func WrapQueryError(err error, operation, query string) error {
	return WrapErrorWithQuery(err, operation, "", query)
}

// WrapTransactionError tags the failure as TRANSACTION:<operation>.
func WrapTransactionError(err error, operation string) error {
	return WrapError(err, "TRANSACTION:"+operation, "")
}

// NewError builds a medaerror with the given message, already wrapped.
func NewError(message, operation, table string) error {
	return WrapError(medaerror.MedaError{Message: message}, operation, table)
}

// IsDBError reports whether a DBError sits anywhere in err's chain.
func IsDBError(err error) bool {
	_, ok := GetErrorContext(err)
	return ok
}

// GetErrorContext returns the context of the first DBError in err's chain.
func GetErrorContext(err error) (ErrorContext, bool) {
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return ErrorContext{}, false
	}
	return dbErr.Context, true
}

// FormatError renders err with every piece of context it carries, for
// log lines and CLI output.
func FormatError(err error) string {
	if err == nil {
		return "no error"
	}
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return err.Error()
	}

	c := dbErr.Context
	out := []string{"Error: " + dbErr.Err.Error()}
	for _, kv := range [][2]string{{"Operation", c.Operation}, {"Table", c.Table}, {"Query", c.Query}} {
		if kv[1] != "" {
			out = append(out, kv[0]+": "+kv[1])
		}
	}
	if len(c.Fields) > 0 {
		out = append(out, fmt.Sprintf("Fields: %v", c.Fields))
	}
	return strings.Join(out, " | ")
}

// LogErrorWithContext logs err at error level on the default logger.
func LogErrorWithContext(err error, fields ...Field) {
	logErrorWithContext(GetDefaultLogger(), err, fields...)
}

func logErrorWithContext(logger Logger, err error, fields ...Field) {
	if err == nil {
		return
	}
	all := append([]Field{}, fields...)
	if c, ok := GetErrorContext(err); ok {
		for _, kv := range [][2]string{{"operation", c.Operation}, {"table", c.Table}, {"query", c.Query}} {
			if kv[1] != "" {
				all = append(all, String(kv[0], kv[1]))
			}
		}
		keys := make([]string, 0, len(c.Fields))
		for k := range c.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			all = append(all, Any(k, c.Fields[k]))
		}
	}
	logger.Error(err.Error(), append(all, Error(err))...)
}
