package breaker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unbxd/go-httpinvoker/endpoint"
)

func TestBreakerDisabledPassesThrough(t *testing.T) {
	called := false
	fn := endpoint.Endpoint(func(context.Context, interface{}) (interface{}, error) {
		called = true
		return "ok", nil
	})

	b := New("test.disabled", fn, WithEnabled(false))
	res, err := b.Endpoint()(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.True(t, called)
}

func TestBreakerEnabledReturnsUnderlyingResult(t *testing.T) {
	fn := endpoint.Endpoint(func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})

	b := New("test.enabled", fn, WithEnabled(true), WithMaxConcurrentRequests(10))
	res, err := b.Endpoint()(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, "ok", res)
}
