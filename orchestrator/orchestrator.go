// Package orchestrator drives the retriable request state machine: it
// repeats a single attempt function with exponential backoff and
// jitter, classifies failures into retriable/non-retriable, tracks a
// separate budget for transient connection aborts, counts each attempt's
// outcome as it completes, and reports trace, retry-count, latency, and
// aggregator events exactly once per invocation.
package orchestrator

import (
	"context"
	"time"

	"github.com/unbxd/go-httpinvoker/aggregator"
	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/invocation"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/retryconfig"
)

// AbortedAttemptBudget is the number of transient connection aborts an
// invocation tolerates before it gives up, separate from the configured
// retry count. AbortedAttemptWait is the fixed wait before retrying
// after one. Both are the current policy, not a contract.
const (
	AbortedAttemptBudget = 5
	AbortedAttemptWait   = 2 * time.Millisecond
)

// Attempt is a single physical try: given the per-attempt invocation
// context, it performs one HTTP round trip and returns the decoded
// output or a *errors.ClientError.
type Attempt func(ctx context.Context, ictx invocation.Context) (interface{}, error)

// Execute drives attempt through the retry state machine described by
// cfg, threading ictx's reporting into metrics, trace, and aggregator
// hooks. It returns the first successful output or the terminal error
// from the last attempt.
func Execute(ctx context.Context, attempt Attempt, ictx invocation.Context, cfg *retryconfig.Configuration) (interface{}, error) {
	outer := ictx.Reporting
	inner := aggregator.New()

	start := time.Now()
	retriesRemaining := cfg.NumRetries
	abortedRemaining := AbortedAttemptBudget

	for {
		attemptCtx := ictx.InnerContext()
		attemptCtx.Reporting.Aggregator = nil

		attemptStart := time.Now()
		output, err := attempt(ctx, attemptCtx)
		latencyMs := float64(time.Since(attemptStart).Milliseconds())

		inner.RecordOutwardsRequest(latencyMs)

		if err == nil {
			metrics.IncrCounter(outer.SuccessCounter)
			outer.EmitTraceTerminal(nil)
			finalize(outer, inner, start, cfg.NumRetries-retriesRemaining)
			return output, nil
		}

		ce, _ := asClientError(err)

		if errors.IsTransientConnectionFailure(ce.Cause) && abortedRemaining > 0 {
			abortedRemaining--
			inner.RecordRetryAttempt(float64(AbortedAttemptWait.Milliseconds()))

			if !sleep(ctx, outer.Scheduler, AbortedAttemptWait) {
				outer.EmitTraceTerminal(ce)
				finalize(outer, inner, start, cfg.NumRetries-retriesRemaining)
				return nil, ctx.Err()
			}
			continue
		}

		recordAttemptFailure(outer, ce)

		if !cfg.ShouldRetry(ce.Cause, ce.Retriable()) || retriesRemaining <= 0 {
			outer.EmitTraceTerminal(ce)
			finalize(outer, inner, start, cfg.NumRetries-retriesRemaining)
			return nil, ce
		}

		wait := cfg.Wait(retriesRemaining)
		retriesRemaining--
		inner.RecordRetryAttempt(float64(wait.Milliseconds()))

		if !sleep(ctx, outer.Scheduler, wait) {
			outer.EmitTraceTerminal(ce)
			finalize(outer, inner, start, cfg.NumRetries-retriesRemaining)
			return nil, ctx.Err()
		}
	}
}

// sleep waits for d, through the invocation's scheduler binding when one
// is present, or returns false if ctx is cancelled first.
func sleep(ctx context.Context, sched invocation.Scheduler, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	if sched != nil {
		select {
		case <-sched.After(d):
			return true
		case <-ctx.Done():
			return false
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func asClientError(err error) (*errors.ClientError, bool) {
	if ce, ok := err.(*errors.ClientError); ok {
		return ce, true
	}
	return errors.NewClientError(500, err), false
}

// recordAttemptFailure increments exactly one of the 4xx/5xx counters
// for a completed failed attempt, whether or not a retry follows it.
// Transient aborts never reach here; they are aborted attempts, not
// completed ones. The matching per-attempt trace event is recorded by
// the transport through RecordTraceAttempt.
func recordAttemptFailure(r invocation.Reporting, ce *errors.ClientError) {
	if ce.Category() == errors.ClientErrorCategory {
		metrics.IncrCounter(r.ClientErrorCounter)
	} else {
		metrics.IncrCounter(r.ServerErrorCounter)
	}
}

// finalize records the retry count and overall latency once, then folds
// the invocation's private aggregator into the caller-provided outer
// aggregator exactly once.
func finalize(r invocation.Reporting, inner aggregator.Aggregator, start time.Time, retryCount int) {
	r.RetryCountRecorder.Record(retryCount)
	r.LatencyTimer.RecordMilliseconds(float64(time.Since(start).Milliseconds()))

	if r.Aggregator != nil {
		r.Aggregator.RecordRetriableOutwardsRequest(inner.Records())
	}
}
