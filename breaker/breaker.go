package breaker

import (
	"context"

	"github.com/unbxd/hystrix-go/hystrix"

	"github.com/unbxd/go-httpinvoker/endpoint"
	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/metrics"
)

// Breaker wraps an invocation endpoint with a hystrix circuit for a
// single named command. It is an opt-in middleware: the orchestrator and
// transport work without one, but a Breaker can sit between the façade
// and the orchestrator's retriable endpoint to trip the circuit across
// invocations rather than within one.
type Breaker struct {
	enable bool
	cmd    string
	cmdcfg hystrix.CommandConfig

	fn         endpoint.Endpoint
	fallbackfn func(error) error
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithTimeout sets the hystrix command timeout in milliseconds.
func WithTimeout(ms int) Option { return func(b *Breaker) { b.cmdcfg.Timeout = ms } }

// WithMaxConcurrentRequests caps in-flight executions of this command.
func WithMaxConcurrentRequests(n int) Option {
	return func(b *Breaker) { b.cmdcfg.MaxConcurrentRequests = n }
}

// WithRequestVolumeThreshold sets the minimum request count before the
// circuit may trip on health.
func WithRequestVolumeThreshold(n int) Option {
	return func(b *Breaker) { b.cmdcfg.RequestVolumeThreshold = n }
}

// WithSleepWindow sets how long, in milliseconds, the circuit stays open
// before testing for recovery.
func WithSleepWindow(ms int) Option { return func(b *Breaker) { b.cmdcfg.SleepWindow = ms } }

// WithErrorPercentThreshold sets the rolling error percentage beyond
// which the circuit opens.
func WithErrorPercentThreshold(pct int) Option {
	return func(b *Breaker) { b.cmdcfg.ErrorPercentThreshold = pct }
}

// WithFallback sets a function invoked to transform the error returned
// when the circuit is open or the command times out.
func WithFallback(fn func(error) error) Option {
	return func(b *Breaker) { b.fallbackfn = fn }
}

// WithEnabled toggles whether the breaker actually intercepts calls;
// disabled, Endpoint() passes through to fn untouched.
func WithEnabled(enabled bool) Option {
	return func(b *Breaker) { b.enable = enabled }
}

// WithMetricsCollector registers metrics as a hystrix collector so
// circuit health is observable through the same Provider used elsewhere.
func WithMetricsCollector(provider metrics.Provider) Option {
	return func(b *Breaker) { registerMetricsCollector(provider) }
}

// New returns a Breaker guarding fn under command name cmd.
func New(cmd string, fn endpoint.Endpoint, opts ...Option) *Breaker {
	b := &Breaker{
		cmd: cmd,
		fn:  fn,
		cmdcfg: hystrix.CommandConfig{
			Timeout:                30000,
			MaxConcurrentRequests:  hystrix.DefaultMaxConcurrent,
			RequestVolumeThreshold: hystrix.DefaultVolumeThreshold,
			SleepWindow:            hystrix.DefaultSleepWindow,
			ErrorPercentThreshold:  hystrix.DefaultErrorPercentThreshold,
		},
		enable: true,
	}

	for _, o := range opts {
		o(b)
	}

	hystrix.ConfigureCommand(b.cmd, b.cmdcfg)

	return b
}

// Endpoint returns fn wrapped with the circuit breaker.
func (b *Breaker) Endpoint() endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if !b.enable {
			return b.fn(ctx, request)
		}

		rc := make(chan interface{}, 1)
		ec := hystrix.Go(b.cmd, func() error {
			res, err := b.fn(ctx, request)
			if err != nil {
				return err
			}
			rc <- res
			return nil
		}, b.fallbackfn)

		select {
		case res := <-rc:
			return res, nil
		case err := <-ec:
			return nil, errors.Wrap(err, "breaker: command failed")
		}
	}
}
