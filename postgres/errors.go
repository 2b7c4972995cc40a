package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/medatechnology/goutil/medaerror"
)

// PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 23 - Integrity Constraint Violation
	ErrCodeUniqueViolation     = "23505"
	ErrCodeForeignKeyViolation = "23503"
	ErrCodeNotNullViolation    = "23502"
	ErrCodeCheckViolation      = "23514"
	ErrCodeExclusionViolation  = "23P01"

	// Class 42 - Syntax Error or Access Rule Violation
	ErrCodeSyntaxError       = "42601"
	ErrCodeUndefinedTable    = "42P01"
	ErrCodeUndefinedColumn   = "42703"
	ErrCodeUndefinedFunction = "42883"

	// Class 08 - Connection Exception
	ErrCodeConnectionException    = "08000"
	ErrCodeConnectionFailure      = "08006"
	ErrCodeSQLClientCannotConnect = "08001"

	// Class 57 - Operator Intervention
	ErrCodeQueryCanceled    = "57014"
	ErrCodeCannotConnectNow = "57P03"

	// Class 53 - Insufficient Resources
	ErrCodeTooManyConnections = "53300"

	// Class 40 - Transaction Rollback
	ErrCodeDeadlockDetected     = "40P01"
	ErrCodeSerializationFailure = "40001"
)

var (
	ErrPostgresInvalidDSN       medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL DSN connection string"}
	ErrPostgresConnectionFailed medaerror.MedaError = medaerror.MedaError{Message: "failed to connect to PostgreSQL database"}
	ErrPostgresInvalidConfig    medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL configuration"}
)

// PostgreSQLError carries the server's diagnostics for a failed command,
// whichever driver produced them.
type PostgreSQLError struct {
	Operation string // EXEC, TRANSACTION, COMMIT, ...
	Query     string
	Code      string // SQLSTATE
	Message   string
	Detail    string
	Hint      string
	Err       error
}

func (e *PostgreSQLError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, "operation="+e.Operation)
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}

	msg := e.Message
	if len(parts) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, ", "))
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s - Detail: %s", msg, e.Detail)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s - Hint: %s", msg, e.Hint)
	}
	return msg
}

func (e *PostgreSQLError) Unwrap() error {
	return e.Err
}

// diagnostics pulls SQLSTATE and friends out of a lib/pq or pgx error.
func diagnostics(err error) (code, message, detail, hint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message, pqErr.Detail, pqErr.Hint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, true
	}
	var own *PostgreSQLError
	if errors.As(err, &own) {
		return own.Code, own.Message, own.Detail, own.Hint, true
	}
	return "", "", "", "", false
}

// WrapPostgreSQLError wraps err with the operation and query that failed.
// Errors that carry no server diagnostics are returned as they are.
func WrapPostgreSQLError(err error, operation, query string) error {
	if err == nil {
		return nil
	}
	code, message, detail, hint, ok := diagnostics(err)
	if !ok {
		return err
	}
	return &PostgreSQLError{
		Operation: operation,
		Query:     query,
		Code:      code,
		Message:   message,
		Detail:    detail,
		Hint:      hint,
		Err:       err,
	}
}

// GetPostgreSQLErrorCode returns the SQLSTATE of err, or "".
func GetPostgreSQLErrorCode(err error) string {
	if err == nil {
		return ""
	}
	code, _, _, _, _ := diagnostics(err)
	return code
}

func hasCode(err error, codes ...string) bool {
	code := GetPostgreSQLErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, ErrCodeUniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, ErrCodeForeignKeyViolation)
}

// IsConstraintViolation checks if the error is any type of constraint violation
func IsConstraintViolation(err error) bool {
	return hasCode(err,
		ErrCodeUniqueViolation,
		ErrCodeForeignKeyViolation,
		ErrCodeNotNullViolation,
		ErrCodeCheckViolation,
		ErrCodeExclusionViolation)
}

func IsUndefinedTable(err error) bool {
	return hasCode(err, ErrCodeUndefinedTable)
}

// IsUndefinedFunction reports a missing function or procedure, or one
// called with the wrong argument names.
func IsUndefinedFunction(err error) bool {
	return hasCode(err, ErrCodeUndefinedFunction)
}

func IsConnectionError(err error) bool {
	return hasCode(err,
		ErrCodeConnectionException,
		ErrCodeConnectionFailure,
		ErrCodeSQLClientCannotConnect,
		ErrCodeCannotConnectNow,
		ErrCodeTooManyConnections)
}

// IsRetryable checks if the error is transient and the operation can be retried
func IsRetryable(err error) bool {
	return hasCode(err, ErrCodeDeadlockDetected, ErrCodeSerializationFailure) || IsConnectionError(err)
}

// FormatPostgreSQLError formats a PostgreSQL error for logging or display
func FormatPostgreSQLError(err error) string {
	if err == nil {
		return "no error"
	}
	code, message, detail, hint, ok := diagnostics(err)
	if !ok {
		return err.Error()
	}

	parts := []string{"Message: " + message}
	if code != "" {
		parts = append(parts, "Code: "+code)
	}
	if detail != "" {
		parts = append(parts, "Detail: "+detail)
	}
	if hint != "" {
		parts = append(parts, "Hint: "+hint)
	}
	return strings.Join(parts, " | ")
}
