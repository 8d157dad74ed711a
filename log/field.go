package log

import (
	"context"

	kit_log "github.com/go-kit/log"
)

// FieldType defines the type for a field
type FieldType int

// Field Types supported by Logger
const (
	UNKNOWN FieldType = iota
	BOOL
	INT
	INT64
	STRING
	ERROR
	FLOAT
)

// Field defines a standard Key-Value pair used to populate
// the value for the logger
type Field struct {
	Key string
	Type FieldType

	Value interface{}

	// optimizations for string/int so the common cases don't allocate
	Integer int64
	String  string
}

// String is logger wrapper for string
func String(key string, value string) Field {
	return Field{Key: key, Type: STRING, String: value}
}

// Int wrapper for logging
func Int(key string, value int) Field {
	return Field{Key: key, Type: INT, Integer: int64(value)}
}

// Int64 is a wrapper int64 values for logging
func Int64(key string, value int64) Field {
	return Field{Key: key, Type: INT64, Integer: value}
}

// Bool is a wrapper for boolean values for logging
func Bool(key string, value bool) Field {
	var ival int64
	if value {
		ival = 1
	}
	return Field{Key: key, Type: BOOL, Integer: ival}
}

// Error is wrapper for error values for logging
func Error(err error) Field {
	return Field{Key: "err", Type: ERROR, Value: err}
}

// Float value is for floating point fields
func Float(key string, value float64) Field {
	return Field{Key: key, Type: FLOAT, Value: value}
}

// Reflect returns a field for which the value is undetermined
func Reflect(key string, value interface{}) Field {
	return Field{Key: key, Type: UNKNOWN, Value: value}
}

type ctxKey struct{}

// Logger defines the standard set of functions supported across the
// package. It embeds go-kit/log's Logger so it can be passed directly
// wherever a go-kit Logger is expected (go-kit metrics backends,
// dogstatsd, etc.)
type Logger interface {
	kit_log.Logger

	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)
	Panic(string, ...Field)
	Fatal(string, ...Field)
	Debug(string, ...Field)

	Infof(string, ...interface{})
	Errorf(string, ...interface{})
	Debugf(string, ...interface{})

	Flush() error

	// With returns a new Logger carrying the additional fields; it never
	// mutates the receiver (invocation.Context decoration
	// depends on this).
	With(...Field) Logger

	WithContext(context.Context) context.Context
}

// FromContext returns the Logger stashed in ctx by WithContext, or
// fallback if none is present.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallback
}
