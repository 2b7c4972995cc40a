package simpledb

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDBErrorMessage(t *testing.T) {
	base := errors.New("no such table")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Operation and table", WrapError(base, "SELECT", "users"), "no such table [operation=SELECT, table=users]"},
		{"Operation only", WrapQueryError(base, "CSV", "SELECT 1"), "no such table [operation=CSV]"},
		{"No context", WrapError(base, "", ""), "no such table"},
		{"Transaction", WrapTransactionError(base, "SAVEALL"), "no such table [operation=TRANSACTION:SAVEALL]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if !errors.Is(tt.err, base) {
				t.Errorf("Expected wrapped error to unwrap to the base error")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if WrapError(nil, "SELECT", "users") != nil {
		t.Errorf("Expected nil")
	}
	if WrapErrorWithQuery(nil, "SELECT", "users", "SELECT 1") != nil {
		t.Errorf("Expected nil")
	}
	if WrapErrorWithFields(nil, "SELECT", "users", nil) != nil {
		t.Errorf("Expected nil")
	}
}

func TestGetErrorContext(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapErrorWithQuery(errors.New("boom"), "JSON", "users", "SELECT *"))

	if !IsDBError(err) {
		t.Fatalf("Expected a DBError in the chain")
	}
	ctx, ok := GetErrorContext(err)
	if !ok {
		t.Fatalf("Expected context")
	}
	if ctx.Operation != "JSON" || ctx.Table != "users" || ctx.Query != "SELECT *" {
		t.Errorf("Unexpected context %+v", ctx)
	}

	if _, ok := GetErrorContext(errors.New("plain")); ok {
		t.Errorf("Expected no context for a plain error")
	}
}

func TestFormatError(t *testing.T) {
	err := WrapErrorWithFields(errors.New("boom"), "INSERT", "users", map[string]interface{}{"rows": 2})
	got := FormatError(err)
	for _, part := range []string{"Error: boom", "Operation: INSERT", "Table: users", "Fields: map[rows:2]"} {
		if !strings.Contains(got, part) {
			t.Errorf("Expected %q in %q", part, got)
		}
	}
	if FormatError(nil) != "no error" {
		t.Errorf("Expected 'no error'")
	}
	if FormatError(errors.New("plain")) != "plain" {
		t.Errorf("Expected plain message")
	}
}

func TestNewError(t *testing.T) {
	err := NewError("bad thing", "DELETE", "users")
	if err.Error() != "bad thing [operation=DELETE, table=users]" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestLogErrorWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LogLevelDebug)

	logErrorWithContext(logger, WrapErrorWithQuery(errors.New("boom"), "CSV", "", "SELECT 1"), String("user", "ann"))
	out := buf.String()
	for _, part := range []string{`level=ERROR msg="boom [operation=CSV]"`, "user=ann", "operation=CSV", `query="SELECT 1"`, `error="boom [operation=CSV]"`} {
		if !strings.Contains(out, part) {
			t.Errorf("Expected %q in %q", part, out)
		}
	}

	buf.Reset()
	logErrorWithContext(logger, nil)
	if buf.Len() != 0 {
		t.Errorf("Expected nothing logged for a nil error, got %q", buf.String())
	}
}
