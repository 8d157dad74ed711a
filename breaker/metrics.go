package breaker

import (
	"github.com/unbxd/hystrix-go/hystrix/metric"

	"github.com/unbxd/go-httpinvoker/metrics"
)

// Metric names published by the circuit's metricsCollector.
const (
	CircuitOpen       = "breaker.circuit_open"
	Attempts          = "breaker.attempts"
	Errors            = "breaker.errors"
	Successes         = "breaker.successes"
	Failures          = "breaker.failures"
	Rejects           = "breaker.rejects"
	ShortCircuits     = "breaker.short_circuits"
	Timeouts          = "breaker.timeouts"
	FallbackSuccesses = "breaker.fallback_successes"
	FallbackFailures  = "breaker.fallback_failures"
	TotalDuration     = "breaker.total_duration_ms"
	RunDuration       = "breaker.run_duration_ms"
)

type metricsCollector struct {
	lvls []string

	attemptsCounter          metrics.Counter
	errorsCounter            metrics.Counter
	successCounter           metrics.Counter
	failuresCounter          metrics.Counter
	rejectsCounter           metrics.Counter
	shortCircuitsCounter     metrics.Counter
	timeoutsCounter          metrics.Counter
	fallbackSuccessesCounter metrics.Counter
	fallbackFailuresCounter  metrics.Counter

	circuitOpenGauge metrics.Gauge

	totalDurationHistogram metrics.Histogram
	runDurationHistogram   metrics.Histogram
}

func (mc *metricsCollector) Update(r metric.Result) {
	if r.Attempts > 0 {
		mc.attemptsCounter.With(mc.lvls...).Add(r.Attempts)
	}
	if r.Errors > 0 {
		mc.errorsCounter.With(mc.lvls...).Add(r.Errors)
	}
	if r.Successes > 0 {
		mc.circuitOpenGauge.With(mc.lvls...).Set(0)
		mc.successCounter.With(mc.lvls...).Add(r.Successes)
	}
	if r.Failures > 0 {
		mc.failuresCounter.With(mc.lvls...).Add(r.Failures)
	}
	if r.Rejects > 0 {
		mc.rejectsCounter.With(mc.lvls...).Add(r.Rejects)
	}
	if r.ShortCircuits > 0 {
		mc.circuitOpenGauge.With(mc.lvls...).Add(1)
		mc.shortCircuitsCounter.With(mc.lvls...).Add(r.ShortCircuits)
	}
	if r.Timeouts > 0 {
		mc.timeoutsCounter.With(mc.lvls...).Add(r.Timeouts)
	}
	if r.FallbackSuccesses > 0 {
		mc.fallbackSuccessesCounter.With(mc.lvls...).Add(r.FallbackSuccesses)
	}
	if r.FallbackFailures > 0 {
		mc.fallbackFailuresCounter.With(mc.lvls...).Add(r.FallbackFailures)
	}

	mc.totalDurationHistogram.With(mc.lvls...).Observe(float64(r.TotalDuration.Milliseconds()))
	mc.runDurationHistogram.With(mc.lvls...).Observe(float64(r.RunDuration.Milliseconds()))
}

func (mc *metricsCollector) Reset() {}

func newMetricsCollectorFactory(provider metrics.Provider) func(string) metric.Collector {
	collector := &metricsCollector{
		attemptsCounter:          provider.NewCounter(Attempts, 1.0),
		errorsCounter:            provider.NewCounter(Errors, 1.0),
		successCounter:           provider.NewCounter(Successes, 1.0),
		failuresCounter:          provider.NewCounter(Failures, 1.0),
		rejectsCounter:           provider.NewCounter(Rejects, 1.0),
		shortCircuitsCounter:     provider.NewCounter(ShortCircuits, 1.0),
		timeoutsCounter:          provider.NewCounter(Timeouts, 1.0),
		fallbackSuccessesCounter: provider.NewCounter(FallbackSuccesses, 1.0),
		fallbackFailuresCounter:  provider.NewCounter(FallbackFailures, 1.0),
		circuitOpenGauge:         provider.NewGauge(CircuitOpen),
		totalDurationHistogram:   provider.NewHistogram(TotalDuration, 1.0),
		runDurationHistogram:     provider.NewHistogram(RunDuration, 1.0),
	}

	return func(name string) metric.Collector {
		collector.lvls = append(collector.lvls, "breaker", name)
		return collector
	}
}

func registerMetricsCollector(provider metrics.Provider) {
	metric.Registry.Register(newMetricsCollectorFactory(provider))
}
