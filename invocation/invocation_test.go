package invocation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unbxd/go-httpinvoker/log"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/trace"
)

func TestDecorationDoesNotMutateOriginal(t *testing.T) {
	base := NewReporting(log.NewNoopLogger(), trace.NewNoopContext())
	originalID := base.InternalRequestID

	decorated := base.WithOutgoingRequestIDLoggerMetadata()

	require.Equal(t, originalID, base.InternalRequestID)
	require.NotEqual(t, originalID, decorated.InternalRequestID)
}

func TestConcurrentDecorationsGetIndependentRequestIDs(t *testing.T) {
	base := NewReporting(log.NewNoopLogger(), trace.NewNoopContext())

	a := base.WithOutgoingRequestIDLoggerMetadata()
	b := base.WithOutgoingRequestIDLoggerMetadata()

	require.NotEqual(t, a.InternalRequestID, b.InternalRequestID)
}

func TestInnerReportingNullsMetricsHandles(t *testing.T) {
	provider := metrics.NewNoopProvider()

	base := NewReporting(log.NewNoopLogger(), trace.NewNoopContext())
	base.SuccessCounter = provider.NewCounter("success", 1)
	base.ClientErrorCounter = provider.NewCounter("client_error", 1)
	base.ServerErrorCounter = provider.NewCounter("server_error", 1)

	inner := base.InnerReporting()

	require.Nil(t, inner.SuccessCounter)
	require.Nil(t, inner.ClientErrorCounter)
	require.Nil(t, inner.ServerErrorCounter)
	require.NotNil(t, base.SuccessCounter)
}

func TestContextInnerContextPreservesHandlerDelegate(t *testing.T) {
	delegate := NopHandlerDelegate{}
	ctx := NewContext(NewReporting(log.NewNoopLogger(), trace.NewNoopContext()), delegate)

	inner := ctx.InnerContext()

	require.Equal(t, delegate, inner.HandlerDelegate)
}
