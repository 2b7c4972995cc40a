package rqlite

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

// Messages SQLite (and so rqlite) reports for common failures
const (
	ErrMsgUniqueConstraint     = "UNIQUE constraint failed"
	ErrMsgPrimaryKeyConstraint = "PRIMARY KEY constraint failed"
	ErrMsgNotNullConstraint    = "NOT NULL constraint failed"
	ErrMsgForeignKeyConstraint = "FOREIGN KEY constraint failed"
	ErrMsgCheckConstraint      = "CHECK constraint failed"
	ErrMsgDatabaseLocked       = "database is locked"
	ErrMsgNoSuchTable          = "no such table"
	ErrMsgNoSuchColumn         = "no such column"
	ErrMsgSyntaxError          = "syntax error"
	ErrMsgNotLeader            = "not leader"
)

var (
	ErrRQLiteInvalidURL       medaerror.MedaError = medaerror.MedaError{Message: "invalid RQLite URL"}
	ErrRQLiteInvalidConfig    medaerror.MedaError = medaerror.MedaError{Message: "invalid RQLite configuration"}
	ErrRQLiteConnectionFailed medaerror.MedaError = medaerror.MedaError{Message: "failed to connect to RQLite server"}
	ErrRQLiteUnauthorized     medaerror.MedaError = medaerror.MedaError{Message: "RQLite authentication failed"}
	ErrRQLiteInvalidJSON      medaerror.MedaError = medaerror.MedaError{Message: "invalid JSON response from RQLite"}
)

// RQLiteError is a failed request or statement.
type RQLiteError struct {
	Operation  string // QUERY, EXEC, TRANSACTION, STATUS
	Query      string
	Statement  int // 1-based index in the request, 0 for request failures
	StatusCode int // HTTP status, when the server answered
	Message    string
	Err        error
}

func (e *RQLiteError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, "operation="+e.Operation)
	}
	if e.Statement > 0 {
		parts = append(parts, fmt.Sprintf("statement=%d", e.Statement))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if len(parts) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s [%s]", e.Message, strings.Join(parts, ", "))
}

func (e *RQLiteError) Unwrap() error {
	return e.Err
}

// statementError reports the failure of statement i (0-based) of a request.
func statementError(operation string, i int, query, message string) error {
	return &RQLiteError{Operation: operation, Query: query, Statement: i + 1, Message: message}
}

// WrapRQLiteError wraps an error with the operation and query that failed
func WrapRQLiteError(err error, operation, query string) error {
	if err == nil {
		return nil
	}
	var rqErr *RQLiteError
	if errors.As(err, &rqErr) {
		return err
	}
	return &RQLiteError{Operation: operation, Query: query, Message: err.Error(), Err: err}
}

func IsUniqueViolation(err error) bool {
	return containsErrorMessage(err, ErrMsgUniqueConstraint) || containsErrorMessage(err, ErrMsgPrimaryKeyConstraint)
}

// IsConstraintViolation checks if the error is any type of constraint violation
func IsConstraintViolation(err error) bool {
	return IsUniqueViolation(err) ||
		containsErrorMessage(err, ErrMsgNotNullConstraint) ||
		containsErrorMessage(err, ErrMsgForeignKeyConstraint) ||
		containsErrorMessage(err, ErrMsgCheckConstraint)
}

func IsTableNotFound(err error) bool {
	return containsErrorMessage(err, ErrMsgNoSuchTable)
}

func IsColumnNotFound(err error) bool {
	return containsErrorMessage(err, ErrMsgNoSuchColumn)
}

func IsSyntaxError(err error) bool {
	return containsErrorMessage(err, ErrMsgSyntaxError)
}

// IsAuthenticationError checks if the server refused the credentials
func IsAuthenticationError(err error) bool {
	var rqErr *RQLiteError
	if errors.As(err, &rqErr) && (rqErr.StatusCode == http.StatusUnauthorized || rqErr.StatusCode == http.StatusForbidden) {
		return true
	}
	return containsErrorMessage(err, ErrRQLiteUnauthorized.Message)
}

// IsConnectionError checks if the error is related to connection failure
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, strings.ToLower(ErrRQLiteConnectionFailed.Message))
}

// IsRetryable checks if the error is transient and the operation can be retried
func IsRetryable(err error) bool {
	if containsErrorMessage(err, ErrMsgDatabaseLocked) || containsErrorMessage(err, ErrMsgNotLeader) {
		return true
	}
	var rqErr *RQLiteError
	if errors.As(err, &rqErr) && rqErr.StatusCode == http.StatusServiceUnavailable {
		return true
	}
	return IsConnectionError(err)
}

func containsErrorMessage(err error, msg string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), strings.ToLower(msg))
}

// FormatRQLiteError formats an RQLite error for logging or display
func FormatRQLiteError(err error) string {
	if err == nil {
		return "no error"
	}
	var rqErr *RQLiteError
	if !errors.As(err, &rqErr) {
		return err.Error()
	}

	parts := []string{"Message: " + rqErr.Message}
	if rqErr.Operation != "" {
		parts = append(parts, "Operation: "+rqErr.Operation)
	}
	if rqErr.Statement > 0 {
		parts = append(parts, fmt.Sprintf("Statement: %d", rqErr.Statement))
	}
	if rqErr.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP Status: %d", rqErr.StatusCode))
	}
	if rqErr.Query != "" {
		parts = append(parts, "Query: "+rqErr.Query)
	}
	return strings.Join(parts, " | ")
}
