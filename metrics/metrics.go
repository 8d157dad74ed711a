package metrics

import (
	net_http "net/http"

	kit_metrics "github.com/go-kit/kit/metrics"
)

type (
	Counter   interface{ kit_metrics.Counter }
	Gauge     interface{ kit_metrics.Gauge }
	Histogram interface{ kit_metrics.Histogram }

	// Handler interface exposes metrics which support handler
	Handler interface{ Handler() net_http.Handler }

	// Provider standarizes the metrics interface used by the applications
	Provider interface {
		NewCounter(name string, sampleRate float64) Counter
		NewHistogram(name string, sampleRate float64) Histogram
		NewGauge(name string) Gauge
	}
)

// Timer wraps a Histogram to record the overall invocation latency in
// milliseconds. The histogram may be nil when a caller opts out of the
// metric, in which case RecordMilliseconds is a no-op.
type Timer struct{ h Histogram }

// NewTimer wraps h.
func NewTimer(h Histogram) Timer { return Timer{h: h} }

// RecordMilliseconds observes d.
func (t Timer) RecordMilliseconds(d float64) {
	if t.h == nil {
		return
	}
	t.h.Observe(d)
}

// RetryCountRecorder wraps a Histogram to record how many retries an
// invocation consumed before reaching a terminal state.
type RetryCountRecorder struct{ h Histogram }

// NewRetryCountRecorder wraps h.
func NewRetryCountRecorder(h Histogram) RetryCountRecorder { return RetryCountRecorder{h: h} }

// Record observes n.
func (r RetryCountRecorder) Record(n int) {
	if r.h == nil {
		return
	}
	r.h.Observe(float64(n))
}

// IncrCounter adds 1 to c. c may be nil, in which case this is a no-op -
// every optional metric handle carried by an invocation follows this
// "absent means skip" contract.
func IncrCounter(c Counter) {
	if c == nil {
		return
	}
	c.Add(1)
}
