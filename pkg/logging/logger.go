// Package logging provides structured logging for the Josser client on top of
// zerolog. It supports JSON and console output, log levels, and integration
// with error contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// Level represents the severity of a log message
type Level int

const (
	// DebugLevel is for detailed information useful for debugging
	DebugLevel Level = iota - 1
	// InfoLevel is for general informational messages
	InfoLevel
	// WarnLevel is for warning messages
	WarnLevel
	// ErrorLevel is for error messages
	ErrorLevel
	// FatalLevel is for fatal errors that will terminate the program
	FatalLevel
	// Disabled turns logging off
	Disabled
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	case Disabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "disabled", "off", "none":
		return Disabled, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.Disabled
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an error field
func ErrorField(err error) Field {
	return Field{Key: "error", Value: err}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Time creates a time field
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for structured logging
type Logger interface {
	// Debug logs a debug message with fields
	Debug(msg string, fields ...Field)
	// Info logs an info message with fields
	Info(msg string, fields ...Field)
	// Warn logs a warning message with fields
	Warn(msg string, fields ...Field)
	// Error logs an error message with fields
	Error(msg string, fields ...Field)
	// Fatal logs a fatal message with fields and exits
	Fatal(msg string, fields ...Field)

	// WithFields returns a new logger with additional fields
	WithFields(fields ...Field) Logger
	// WithContext returns a new logger with context fields
	WithContext(ctx context.Context) Logger
	// WithError returns a new logger with error context
	WithError(err error) Logger

	// SetLevel sets the minimum log level. Loggers derived with the With*
	// methods share the level of their parent.
	SetLevel(level Level)
	// GetLevel returns the current log level
	GetLevel() Level
}

// Config configures New.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
	// NoColor disables colors in console output.
	NoColor bool
}

type zeroLogger struct {
	zl         zerolog.Logger
	level      *atomic.Int32
	requestKey string
}

// New creates a zerolog-backed structured logger. A nil Output writes to
// stderr.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := new(atomic.Int32)
	level.Store(int32(cfg.Level))

	return &zeroLogger{
		zl:         zerolog.New(newWriter(cfg.Format, out, cfg.NoColor)).With().Timestamp().Logger(),
		level:      level,
		requestKey: "request_id",
	}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	level := new(atomic.Int32)
	level.Store(int32(Disabled))
	return &zeroLogger{zl: zerolog.Nop(), level: level, requestKey: "request_id"}
}

// Debug logs a debug message
func (l *zeroLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields)
}

// Info logs an info message
func (l *zeroLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields)
}

// Warn logs a warning message
func (l *zeroLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields)
}

// Error logs an error message
func (l *zeroLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields)
}

// Fatal logs a fatal message and exits
func (l *zeroLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

// WithFields returns a new logger with additional fields
func (l *zeroLogger) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zeroLogger{
		zl:         l.zl.With().Fields(keyValues(fields)).Logger(),
		level:      l.level,
		requestKey: l.requestKey,
	}
}

// WithContext returns a new logger with context fields
func (l *zeroLogger) WithContext(ctx context.Context) Logger {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return l.WithFields(String(l.requestKey, requestID))
	}
	return l
}

// WithError returns a new logger with error context
func (l *zeroLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{ErrorField(err)}

	if jerr, ok := jerrors.AsJosserError(err); ok {
		fields = append(fields,
			Int("error_code", jerr.Code()),
			String("error_category", string(jerr.Category())),
			String("error_severity", string(jerr.Severity())),
		)

		if ctx := jerr.Context(); ctx != nil {
			if ctx.RequestID != "" {
				fields = append(fields, String(l.requestKey, ctx.RequestID))
			}
			if ctx.Endpoint != "" {
				fields = append(fields, String("endpoint", ctx.Endpoint))
			}
			if ctx.Component != "" {
				fields = append(fields, String("component", ctx.Component))
			}
			if ctx.Operation != "" {
				fields = append(fields, String("operation", ctx.Operation))
			}
		}
	}

	return l.WithFields(fields...)
}

// SetLevel sets the minimum log level
func (l *zeroLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *zeroLogger) GetLevel() Level {
	return Level(l.level.Load())
}

func (l *zeroLogger) log(level Level, msg string, fields []Field) {
	if current := l.GetLevel(); current == Disabled || level < current {
		return
	}

	ev := l.zl.WithLevel(level.zerolog())
	if len(fields) > 0 {
		ev = ev.Fields(keyValues(fields))
	}
	ev.Msg(msg)
}

// keyValues flattens fields into the key/value list zerolog accepts. zerolog
// renders errors, durations and times natively.
func keyValues(fields []Field) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID returns a context with a request ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from a context
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
