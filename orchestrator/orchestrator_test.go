package orchestrator

import (
	"context"
	"testing"
	"time"

	kit_metrics "github.com/go-kit/kit/metrics"
	"github.com/stretchr/testify/require"

	"github.com/unbxd/go-httpinvoker/aggregator"
	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/invocation"
	"github.com/unbxd/go-httpinvoker/log"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/retryconfig"
	"github.com/unbxd/go-httpinvoker/trace"
)

type countingHistogram struct{ observations []float64 }

func (h *countingHistogram) With(...string) kit_metrics.Histogram { return h }
func (h *countingHistogram) Observe(v float64)                    { h.observations = append(h.observations, v) }

type countingCounter struct{ n int }

func (c *countingCounter) With(...string) kit_metrics.Counter { return c }
func (c *countingCounter) Add(delta float64)                  { c.n++ }

func newReporting(agg aggregator.Aggregator) (invocation.Reporting, *countingCounter, *countingCounter, *countingCounter, *countingHistogram) {
	success, clientErr, serverErr := &countingCounter{}, &countingCounter{}, &countingCounter{}
	retryHist := &countingHistogram{}

	r := invocation.NewReporting(log.NewNoopLogger(), trace.NewNoopContext())
	r.Aggregator = agg
	r.SuccessCounter = success
	r.ClientErrorCounter = clientErr
	r.ServerErrorCounter = serverErr
	r.RetryCountRecorder = metrics.NewRetryCountRecorder(retryHist)
	return r, success, clientErr, serverErr, retryHist
}

func newConfig(t *testing.T, numRetries int, base, max int64, exp float64, jitter bool) *retryconfig.Configuration {
	cfg, err := retryconfig.New(
		retryconfig.WithNumRetries(numRetries),
		retryconfig.WithBaseInterval(base),
		retryconfig.WithMaxInterval(max),
		retryconfig.WithExponentialBase(exp),
		retryconfig.WithJitter(jitter),
	)
	require.NoError(t, err)
	return cfg
}

func TestSuccessOnFirstTry(t *testing.T) {
	agg := aggregator.New()
	reporting, success, _, _, retryHist := newReporting(agg)
	cfg := newConfig(t, 3, 500, 10000, 2, false)

	calls := 0
	out, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		return "ok", nil
	}, invocation.NewContext(reporting, nil), cfg)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, success.n)
	require.Equal(t, []float64{0}, retryHist.observations)

	records := agg.Records()
	require.Len(t, records, 1)
	require.Nil(t, records[0].RetryAttempt)
}

func TestRetryThenSuccess(t *testing.T) {
	agg := aggregator.New()
	reporting, success, _, serverErr, retryHist := newReporting(agg)
	cfg := newConfig(t, 3, 500, 10000, 2, false)

	var waits []time.Duration
	last := time.Now()

	calls := 0
	out, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		waits = append(waits, time.Since(last))
		last = time.Now()
		if calls <= 2 {
			return nil, errors.NewClientError(500, errors.New("downstream 500"))
		}
		return "ok", nil
	}, invocation.NewContext(reporting, nil), cfg)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, calls)
	require.Equal(t, 1, success.n)
	require.Equal(t, 2, serverErr.n)
	require.Equal(t, []float64{2}, retryHist.observations)

	records := agg.Records()
	require.Len(t, records, 3)
	require.Nil(t, records[0].RetryAttempt)
	require.Equal(t, 500.0, records[1].RetryAttempt.RetryWaitMs)
	require.Equal(t, 1000.0, records[2].RetryAttempt.RetryWaitMs)
}

func TestExhaustion(t *testing.T) {
	agg := aggregator.New()
	reporting, _, _, serverErr, retryHist := newReporting(agg)
	cfg := newConfig(t, 2, 100, 1000, 2, false)

	calls := 0
	_, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		return nil, errors.NewClientError(500, errors.New("downstream 500"))
	}, invocation.NewContext(reporting, nil), cfg)

	require.Error(t, err)
	ce, ok := err.(*errors.ClientError)
	require.True(t, ok)
	require.Equal(t, 500, ce.Code)
	require.Equal(t, 3, calls)
	require.Equal(t, 3, serverErr.n)
	require.Equal(t, []float64{2}, retryHist.observations)

	records := agg.Records()
	require.Len(t, records, 3)
	require.Equal(t, 100.0, records[1].RetryAttempt.RetryWaitMs)
	require.Equal(t, 200.0, records[2].RetryAttempt.RetryWaitMs)
}

func TestClientErrorNotRetried(t *testing.T) {
	agg := aggregator.New()
	reporting, _, clientErr, _, retryHist := newReporting(agg)
	cfg := newConfig(t, 5, 500, 10000, 2, false)

	calls := 0
	_, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		return nil, errors.NewClientError(400, errors.New("bad request"))
	}, invocation.NewContext(reporting, nil), cfg)

	require.Error(t, err)
	ce, ok := err.(*errors.ClientError)
	require.True(t, ok)
	require.Equal(t, 400, ce.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, clientErr.n)
	require.Equal(t, []float64{0}, retryHist.observations)
}

func TestTransientAbortConsumesAbortedBudgetNotRetries(t *testing.T) {
	agg := aggregator.New()
	reporting, success, _, serverErr, retryHist := newReporting(agg)
	cfg := newConfig(t, 3, 500, 10000, 2, false)

	calls := 0
	out, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		if calls <= 3 {
			return nil, errors.NewClientError(500, errors.ErrRemoteConnectionClosed)
		}
		return "ok", nil
	}, invocation.NewContext(reporting, nil), cfg)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 4, calls)
	require.Equal(t, 1, success.n)
	require.Equal(t, 0, serverErr.n)
	require.Equal(t, []float64{0}, retryHist.observations)

	records := agg.Records()
	require.Len(t, records, 4)
	for i := 1; i < 4; i++ {
		require.Equal(t, 2.0, records[i].RetryAttempt.RetryWaitMs)
	}
}

type countingTraceContext struct {
	startCalls   int
	successCalls int
	failureCalls int
	lastStatus   int
}

func (c *countingTraceContext) OnStart(string, string, log.Logger, string, *[]trace.Header, []byte) trace.Token {
	c.startCalls++
	return "token"
}

func (c *countingTraceContext) OnSuccess(_ trace.Token, _ log.Logger, _ string, statusCode int, _ []byte) {
	c.successCalls++
	c.lastStatus = statusCode
}

func (c *countingTraceContext) OnFailure(_ trace.Token, _ log.Logger, _ string, statusCode int, _ []byte, _ error) {
	c.failureCalls++
	c.lastStatus = statusCode
}

func TestRetryThenSuccessEmitsTraceStartOnceAndSuccessOnce(t *testing.T) {
	tc := &countingTraceContext{}
	reporting := invocation.NewReporting(log.NewNoopLogger(), tc)
	cfg := newConfig(t, 3, 500, 10000, 2, false)

	calls := 0
	out, err := Execute(context.Background(), func(_ context.Context, ictx invocation.Context) (interface{}, error) {
		calls++
		ictx.Reporting.EnsureTraceStarted("GET", "http://example.com/x", &invocation.RequestComponents{})
		if calls <= 2 {
			ictx.Reporting.RecordTraceAttempt(500, []byte("downstream 500"))
			return nil, errors.NewClientError(500, errors.New("downstream 500"))
		}
		ictx.Reporting.RecordTraceAttempt(200, []byte(`{"v":1}`))
		return "ok", nil
	}, invocation.NewContext(reporting, nil), cfg)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, calls)

	require.Equal(t, 1, tc.startCalls)
	require.Equal(t, 1, tc.successCalls)
	require.Equal(t, 0, tc.failureCalls)
	require.Equal(t, 200, tc.lastStatus)
}

func TestExhaustionEmitsTraceStartOnceAndFailureOnce(t *testing.T) {
	tc := &countingTraceContext{}
	reporting := invocation.NewReporting(log.NewNoopLogger(), tc)
	cfg := newConfig(t, 2, 100, 1000, 2, false)

	calls := 0
	_, err := Execute(context.Background(), func(_ context.Context, ictx invocation.Context) (interface{}, error) {
		calls++
		ictx.Reporting.EnsureTraceStarted("GET", "http://example.com/x", &invocation.RequestComponents{})
		ictx.Reporting.RecordTraceAttempt(500, []byte("downstream 500"))
		return nil, errors.NewClientError(500, errors.New("downstream 500"))
	}, invocation.NewContext(reporting, nil), cfg)

	require.Error(t, err)
	require.Equal(t, 3, calls)

	require.Equal(t, 1, tc.startCalls)
	require.Equal(t, 0, tc.successCalls)
	require.Equal(t, 1, tc.failureCalls)
	require.Equal(t, 500, tc.lastStatus)
}

type recordingScheduler struct{ waits []time.Duration }

func (s *recordingScheduler) After(d time.Duration) <-chan time.Time {
	s.waits = append(s.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestSleepsGoThroughSchedulerBindingWhenPresent(t *testing.T) {
	agg := aggregator.New()
	reporting, _, _, _, _ := newReporting(agg)

	sched := &recordingScheduler{}
	reporting.Scheduler = sched

	cfg := newConfig(t, 2, 100, 1000, 2, false)

	calls := 0
	out, err := Execute(context.Background(), func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		if calls <= 2 {
			return nil, errors.NewClientError(500, errors.New("downstream 500"))
		}
		return "ok", nil
	}, invocation.NewContext(reporting, nil), cfg)

	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sched.waits)
}

func TestCancellationStillFinalizesExactlyOnce(t *testing.T) {
	agg := aggregator.New()
	reporting, _, _, serverErr, retryHist := newReporting(agg)
	cfg := newConfig(t, 5, 50, 1000, 2, false)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Execute(ctx, func(context.Context, invocation.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return nil, errors.NewClientError(500, errors.New("downstream 500"))
	}, invocation.NewContext(reporting, nil), cfg)

	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, serverErr.n)
	require.Len(t, retryHist.observations, 1)
}
