package log

import (
	"context"
	"fmt"
)

// noopLogger discards every call. It is the default stand-in wherever a
// caller wires no real backend, and the baseline for tests whose
// assertions don't depend on what got logged.
type noopLogger struct{}

func (nl *noopLogger) Info(string, ...Field)                          {}
func (nl *noopLogger) Warn(string, ...Field)                          {}
func (nl *noopLogger) Error(string, ...Field)                         {}
func (nl *noopLogger) Panic(string, ...Field)                         {}
func (nl *noopLogger) Fatal(string, ...Field)                         {}
func (nl *noopLogger) Debug(string, ...Field)                         {}
func (nl *noopLogger) Infof(string, ...interface{})                   {}
func (nl *noopLogger) Errorf(string, ...interface{})                  {}
func (nl *noopLogger) Debugf(string, ...interface{})                  {}
func (nl *noopLogger) Flush() error                                   { return nil }
func (nl *noopLogger) With(...Field) Logger                           { return &noopLogger{} }
func (nl *noopLogger) WithContext(cx context.Context) context.Context { return cx }
func (nl *noopLogger) Log(keyvals ...interface{}) error               { return nil }

func NewNoopLogger() Logger { return &noopLogger{} }

// Entry is one call recorded by a capturing logger.
type Entry struct {
	Level   string
	Message string
	Fields  []Field
}

// capturingLogger appends every call to entries instead of discarding it,
// carrying forward whatever fields were attached via With. Lets a test
// assert on what an invocation-decorated logger actually logged - e.g.
// that a terminal orchestrator failure logged the endpoint and operation
// fields WithOutgoingDecoratedLogger attached - without standing up a
// real backend.
type capturingLogger struct {
	entries *[]Entry
	fields  []Field
}

// NewCapturingLogger returns a Logger that appends every call onto
// entries. entries is shared across every logger derived from it via
// With, so a decorated child's calls are visible through the parent's
// slice too.
func NewCapturingLogger(entries *[]Entry) Logger {
	return &capturingLogger{entries: entries}
}

func (cl *capturingLogger) record(level, msg string, fields ...Field) {
	all := append(append([]Field{}, cl.fields...), fields...)
	*cl.entries = append(*cl.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (cl *capturingLogger) Info(msg string, fields ...Field)  { cl.record("info", msg, fields...) }
func (cl *capturingLogger) Warn(msg string, fields ...Field)  { cl.record("warn", msg, fields...) }
func (cl *capturingLogger) Error(msg string, fields ...Field) { cl.record("error", msg, fields...) }
func (cl *capturingLogger) Panic(msg string, fields ...Field) { cl.record("panic", msg, fields...) }
func (cl *capturingLogger) Fatal(msg string, fields ...Field) { cl.record("fatal", msg, fields...) }
func (cl *capturingLogger) Debug(msg string, fields ...Field) { cl.record("debug", msg, fields...) }

func (cl *capturingLogger) Infof(msg string, vals ...interface{}) {
	cl.record("info", fmt.Sprintf(msg, vals...))
}
func (cl *capturingLogger) Errorf(msg string, vals ...interface{}) {
	cl.record("error", fmt.Sprintf(msg, vals...))
}
func (cl *capturingLogger) Debugf(msg string, vals ...interface{}) {
	cl.record("debug", fmt.Sprintf(msg, vals...))
}

func (cl *capturingLogger) Flush() error { return nil }

func (cl *capturingLogger) With(fields ...Field) Logger {
	return &capturingLogger{entries: cl.entries, fields: append(append([]Field{}, cl.fields...), fields...)}
}

func (cl *capturingLogger) WithContext(ctx context.Context) context.Context { return ctx }

func (cl *capturingLogger) Log(keyvals ...interface{}) error {
	cl.record("info", fmt.Sprint(keyvals...))
	return nil
}
