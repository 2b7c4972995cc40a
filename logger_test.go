package simpledb

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LogLevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn", Int("n", 1))
	logger.Error("error")

	out := buf.String()
	if strings.Contains(out, "debug") || strings.Contains(out, "info") {
		t.Errorf("Expected debug and info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "level=WARN msg=warn n=1") {
		t.Errorf("Expected warn line, got %q", out)
	}
	if !strings.Contains(out, "level=ERROR msg=error") {
		t.Errorf("Expected error line, got %q", out)
	}

	buf.Reset()
	logger.SetLevel(LogLevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), `level=DEBUG msg="now visible"`) {
		t.Errorf("Expected debug line after SetLevel, got %q", buf.String())
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, LogLevelDebug)
	child := base.With(String("component", "csv"))

	child.Info("hello", Bool("ok", true))
	if !strings.Contains(buf.String(), "component=csv ok=true") {
		t.Errorf("Expected inherited fields, got %q", buf.String())
	}

	buf.Reset()
	base.Info("plain")
	if strings.Contains(buf.String(), "component") {
		t.Errorf("Expected parent logger to be unchanged, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"":        LogLevelInfo,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		" Error ": LogLevelError,
	}
	for in, expected := range tests {
		got, err := ParseLogLevel(in)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", in, err)
		}
		if got != expected {
			t.Errorf("Expected %s for %q, got %s", expected, in, got)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
	if LogLevel(42).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN")
	}
}

func TestOperationLogging(t *testing.T) {
	var buf bytes.Buffer
	db := New(newFake(usersSource()), Config{Logger: NewWriterLogger(&buf, LogLevelDebug)})

	if _, err := db.Csv(context.Background(), "SELECT Id, Name FROM users"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "operation=CSV") || !strings.Contains(out, "op=") {
		t.Errorf("Expected operation fields, got %q", out)
	}
	if !strings.Contains(out, "level=DEBUG msg=done") {
		t.Errorf("Expected done line, got %q", out)
	}

	buf.Reset()
	f := newFake()
	f.err = errors.New("boom")
	db = New(f, Config{Logger: NewWriterLogger(&buf, LogLevelDebug)})
	_, _ = db.Csv(context.Background(), "SELECT 1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("Expected error line, got %q", buf.String())
	}
}

func TestLogfmtValue(t *testing.T) {
	tests := []struct {
		in       interface{}
		expected string
	}{
		{"plain", "plain"},
		{"two words", `"two words"`},
		{"", `""`},
		{"a=b", `"a=b"`},
		{nil, "<nil>"},
		{errors.New("boom"), "boom"},
		{1500 * time.Millisecond, "1.5s"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := logfmtValue(tt.in); got != tt.expected {
			t.Errorf("logfmtValue(%#v) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestDefaultLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewWriterLogger(&buf, LogLevelInfo))
	defer SetDefaultLogger(nil)

	Debug("hidden")
	Info("shown", String("k", "v"))
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "level=INFO msg=shown k=v") {
		t.Errorf("Unexpected output %q", buf.String())
	}

	SetDefaultLogger(nil)
	if _, ok := GetDefaultLogger().(*NoopLogger); !ok {
		t.Errorf("Expected nil to restore the no-op logger")
	}
}

func TestNewOperationID(t *testing.T) {
	a, b := NewOperationID(), NewOperationID()
	if len(a) != 27 || a == b {
		t.Errorf("Expected distinct 27 char ids, got %q and %q", a, b)
	}
}
