package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Info("hello", String("k", "v"))
	l.Debug("hello")
	require.NoError(t, l.Flush())

	decorated := l.With(String("a", "b"))
	require.NotNil(t, decorated)
	require.IsType(t, l, decorated)

	ctx := l.WithContext(context.Background())
	require.Equal(t, context.Background(), ctx)
}

func TestZeroLoggerWithSamplingBuildsSuccessfully(t *testing.T) {
	l, err := NewZeroLogger(
		ZeroLoggerWithLevel("info"),
		ZeroLoggerWithSampling(5),
	)
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Info("sampled message", String("k", "v"))
}

func TestZeroLoggerWithFieldsBuildsAndLogs(t *testing.T) {
	var buf bytes.Buffer

	l, err := NewZeroLogger(
		ZeroLoggerWithLevel("debug"),
	)
	require.NoError(t, err)
	require.NotNil(t, l)

	decorated := l.With(String("component", "test"))
	decorated.Info("message", Int("count", 3), Bool("flag", true))

	_ = buf // zerolog writes to os.Stdout by default in this constructor
}

func TestFromContextFallback(t *testing.T) {
	fallback := NewNoopLogger()
	got := FromContext(context.Background(), fallback)
	require.Same(t, fallback, got)
}

func TestCapturingLoggerRecordsCallsAndCarriesWithFields(t *testing.T) {
	var entries []Entry
	l := NewCapturingLogger(&entries)

	decorated := l.With(String("endpoint", "api.example.com"), String("operation", "search-products"))
	decorated.Error("attempt failed", Int("code", 500))
	l.Info("unrelated")

	require.Len(t, entries, 2)

	require.Equal(t, "error", entries[0].Level)
	require.Equal(t, "attempt failed", entries[0].Message)
	require.Equal(t, []Field{
		String("endpoint", "api.example.com"),
		String("operation", "search-products"),
		Int("code", 500),
	}, entries[0].Fields)

	require.Equal(t, "info", entries[1].Level)
	require.Empty(t, entries[1].Fields)
}
