// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Every component receives a Logger scoped to its module:
//
//	central, err := logger.NewCentralLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer central.Close()
//
//	capLog := central.Module("stream").Module("capture")
//	capLog.Info("capture started",
//	    logger.Int("block_samples", 1600),
//	    logger.Int("sample_rate", 16000))
//
// Console output is human-readable text without timestamps. File output is JSON
// with RFC3339 timestamps and is rotated by size through lumberjack.
//
// Tests should use NewSlogLogger with a bytes.Buffer or io.Discard.
//
// Log levels from most to least verbose: trace, debug, info, warn, error.
package logger

import (
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned using unique.Make(); the same key string (e.g. "error",
// "mtu") logged on every transmit cycle shares a single allocation.
type Field struct {
	Key   string
	Value any
}

// internKey returns an interned version of the key string.
// This ensures repeated keys share the same underlying memory.
func internKey(key string) string {
	return unique.Make(key).Value()
}

// Pre-interned common keys for zero-allocation access
var (
	errorKey  = internKey("error")
	moduleKey = internKey("module")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	// Leveled logging methods
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry
	With(fields ...Field) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// Field constructors. Keys are interned so repeated keys share one allocation.

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for counts, sizes and port numbers.
//
//	log.Debug("block written",
//	    logger.Int("bytes", n),
//	    logger.Int("occupancy", buf.Available()))
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Uint64 creates an unsigned 64-bit integer field, used for cumulative byte counters.
func Uint64(key string, value uint64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field. Output is rounded to three decimals.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field. The key is always "error".
// If err is nil, the value will be nil.
//
//	if err := src.Capture(ctx, block, rate, false); err != nil {
//	    log.Warn("capture failed", logger.Error(err))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a human-readable string ("1.5s", "200ms").
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value.String()}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value. Prefer the typed constructors for simple values.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
