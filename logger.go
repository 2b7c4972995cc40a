package simpledb

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// LogLevelDebug for detailed diagnostic information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo for general informational messages
	LogLevelInfo
	// LogLevelWarn for warning messages
	LogLevelWarn
	// LogLevelError for error messages
	LogLevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel accepts debug, info, warn(ing) and error in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the interface for structured logging in simpledb
// Implementations can use any logging library (zap, logrus, zerolog, etc.)
type Logger interface {
	// Debug logs a debug-level message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info-level message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning-level message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error-level message with optional fields
	Error(msg string, fields ...Field)

	// With creates a new logger with the given fields pre-populated
	With(fields ...Field) Logger

	// SetLevel sets the minimum log level
	SetLevel(level LogLevel)
}

// Field represents a structured logging field (key-value pair)
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand constructor for Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Common field constructors for convenience
func String(key, value string) Field             { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Int64(key string, value int64) Field        { return Field{key, value} }
func Float64(key string, value float64) Field    { return Field{key, value} }
func Bool(key string, value bool) Field          { return Field{key, value} }
func Error(err error) Field                      { return Field{"error", err} }
func Duration(key string, d time.Duration) Field { return Field{key, d} }
func Any(key string, value interface{}) Field    { return Field{key, value} }

// NewOperationID returns a sortable id that ties together the log lines of
// one DB operation.
func NewOperationID() string {
	return ksuid.New().String()
}

// Op is the field carrying an operation id.
func Op(id string) Field { return Field{"op", id} }

// DefaultLogger writes one logfmt line per message through the standard
// log package:
//
//	2024/05/01 10:00:00 level=DEBUG msg=done op=2fT... operation=CSV ms=0.42
//
// Loggers derived with With share the level of their parent.
type DefaultLogger struct {
	logger *log.Logger
	level  *atomic.Int32
	fields []Field
}

// NewDefaultLogger creates a new default logger with the specified minimum level
func NewDefaultLogger(minLevel LogLevel) *DefaultLogger {
	return NewWriterLogger(os.Stdout, minLevel)
}

// NewWriterLogger is NewDefaultLogger writing to w.
func NewWriterLogger(w io.Writer, minLevel LogLevel) *DefaultLogger {
	level := new(atomic.Int32)
	level.Store(int32(minLevel))
	return &DefaultLogger{logger: log.New(w, "", log.LstdFlags), level: level}
}

// NewNoopLogger creates a logger that doesn't log anything (useful for testing)
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(LogLevelDebug, msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log(LogLevelInfo, msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log(LogLevelWarn, msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log(LogLevelError, msg, fields) }

// With returns a logger that adds fields to every line.
func (l *DefaultLogger) With(fields ...Field) Logger {
	return &DefaultLogger{
		logger: l.logger,
		level:  l.level,
		fields: append(append([]Field(nil), l.fields...), fields...),
	}
}

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *DefaultLogger) log(level LogLevel, msg string, fields []Field) {
	if level < LogLevel(l.level.Load()) {
		return
	}
	var b strings.Builder
	b.WriteString("level=")
	b.WriteString(level.String())
	b.WriteString(" msg=")
	b.WriteString(logfmtValue(msg))
	for _, set := range [][]Field{l.fields, fields} {
		for _, f := range set {
			b.WriteByte(' ')
			b.WriteString(f.Key)
			b.WriteByte('=')
			b.WriteString(logfmtValue(f.Value))
		}
	}
	l.logger.Println(b.String())
}

// logfmtValue renders v, quoted when it holds spaces, quotes or '='.
func logfmtValue(v interface{}) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = x
	case error:
		s = x.Error()
	case time.Duration:
		s = x.String()
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// NoopLogger is a logger that doesn't log anything
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}
func (n *NoopLogger) With(fields ...Field) Logger       { return n }
func (n *NoopLogger) SetLevel(level LogLevel)           {}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewNoopLogger()
)

// SetDefaultLogger replaces the logger used by DBs created without one and
// by the package-level functions. nil restores the no-op logger.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = NewNoopLogger()
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetDefaultLogger returns the current default logger
func GetDefaultLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(msg string, fields ...Field)    { GetDefaultLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)     { GetDefaultLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)     { GetDefaultLogger().Warn(msg, fields...) }
func LogError(msg string, fields ...Field) { GetDefaultLogger().Error(msg, fields...) }
