package retryconfig

import (
	"math"
	"math/rand"
	"time"

	"github.com/unbxd/go-httpinvoker/errors"
)

var (
	// ErrInvalidNumRetries is returned when NumRetries is negative.
	ErrInvalidNumRetries = errors.New("retryconfig: numRetries must be >= 0")
	// ErrInvalidBaseInterval is returned when BaseIntervalMs is not positive.
	ErrInvalidBaseInterval = errors.New("retryconfig: baseIntervalMs must be > 0")
	// ErrInvalidMaxInterval is returned when MaxIntervalMs is smaller than BaseIntervalMs.
	ErrInvalidMaxInterval = errors.New("retryconfig: maxIntervalMs must be >= baseIntervalMs")
	// ErrInvalidExponentialBase is returned when ExponentialBase is less
	// than 1. Exactly 1 is legal and means constant, non-growing backoff.
	ErrInvalidExponentialBase = errors.New("retryconfig: exponentialBase must be >= 1")
)

// Configuration is the immutable, freely shareable policy governing how
// an invocation's retry sequence unfolds: how many retries are allowed,
// and how the backoff-with-jitter wait is computed between attempts.
type Configuration struct {
	// NumRetries is the maximum number of retries after the first
	// attempt; at most NumRetries+1 physical attempts are ever made.
	NumRetries int

	// BaseIntervalMs is the wait before the second attempt.
	BaseIntervalMs int64

	// MaxIntervalMs caps the computed wait before jitter is applied.
	MaxIntervalMs int64

	// ExponentialBase is the multiplier applied per consumed retry slot.
	ExponentialBase float64

	// Jitter, when true, randomizes the computed wait uniformly in
	// [0, computedIntervalMs).
	Jitter bool

	// RetryOnError is the user-supplied predicate consulted for errors
	// that aren't already excluded by category. A ClientErrorCategory
	// error is never retried even if this predicate returns true.
	RetryOnError func(error) bool
}

// Option configures a Configuration.
type Option func(*Configuration) error

// WithNumRetries sets the maximum retry count.
func WithNumRetries(n int) Option {
	return func(c *Configuration) error { c.NumRetries = n; return nil }
}

// WithBaseInterval sets the wait before the second attempt.
func WithBaseInterval(ms int64) Option {
	return func(c *Configuration) error { c.BaseIntervalMs = ms; return nil }
}

// WithMaxInterval caps the computed wait.
func WithMaxInterval(ms int64) Option {
	return func(c *Configuration) error { c.MaxIntervalMs = ms; return nil }
}

// WithExponentialBase sets the backoff multiplier.
func WithExponentialBase(base float64) Option {
	return func(c *Configuration) error { c.ExponentialBase = base; return nil }
}

// WithJitter toggles jitter.
func WithJitter(enabled bool) Option {
	return func(c *Configuration) error { c.Jitter = enabled; return nil }
}

// WithRetryOnError sets the caller's retry predicate. It is only
// consulted for ServerErrorCategory errors - category always wins.
func WithRetryOnError(fn func(error) bool) Option {
	return func(c *Configuration) error { c.RetryOnError = fn; return nil }
}

// New builds a Configuration with baseline defaults (numRetries=3,
// base=500ms, max=10000ms, exponentialBase=2, jitter disabled), applies
// opts, and validates the result.
func New(opts ...Option) (*Configuration, error) {
	c := &Configuration{
		NumRetries:      3,
		BaseIntervalMs:  500,
		MaxIntervalMs:   10000,
		ExponentialBase: 2,
		Jitter:          false,
		RetryOnError:    func(error) bool { return true },
	}

	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration's invariants.
func (c *Configuration) Validate() error {
	if c.NumRetries < 0 {
		return ErrInvalidNumRetries
	}
	if c.BaseIntervalMs <= 0 {
		return ErrInvalidBaseInterval
	}
	if c.MaxIntervalMs < c.BaseIntervalMs {
		return ErrInvalidMaxInterval
	}
	if c.ExponentialBase < 1 {
		return ErrInvalidExponentialBase
	}
	return nil
}

// ComputedIntervalMs returns the pre-jitter wait for the attempt that
// follows a failure with retriesRemaining slots left, following
// min(maxIntervalMs, baseIntervalMs * exponentialBase^(numRetries-retriesRemaining)).
func (c *Configuration) ComputedIntervalMs(retriesRemaining int) int64 {
	k := c.NumRetries - retriesRemaining
	if k < 0 {
		k = 0
	}

	interval := float64(c.BaseIntervalMs) * math.Pow(c.ExponentialBase, float64(k))
	if interval > float64(c.MaxIntervalMs) {
		return c.MaxIntervalMs
	}
	return int64(interval)
}

// Wait returns the actual wait duration for retriesRemaining, applying
// jitter if enabled: a uniform draw in [0, computedIntervalMs).
func (c *Configuration) Wait(retriesRemaining int) time.Duration {
	computed := c.ComputedIntervalMs(retriesRemaining)
	if !c.Jitter {
		return time.Duration(computed) * time.Millisecond
	}
	if computed <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(computed)) * time.Millisecond
}

// ShouldRetry reports whether cause warrants another attempt, given the
// error's retry-category classifier (usually errors.ClientError's own
// Retriable method) and the configured predicate. category always wins:
// a non-retriable category short-circuits to false regardless of what
// RetryOnError would say.
func (c *Configuration) ShouldRetry(cause error, categoryRetriable bool) bool {
	if !categoryRetriable {
		return false
	}
	if c.RetryOnError == nil {
		return true
	}
	return c.RetryOnError(cause)
}
