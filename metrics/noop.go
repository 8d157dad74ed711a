package metrics

import (
	kit_metrics "github.com/go-kit/kit/metrics"
)

type noopCounter struct{}

func (nm *noopCounter) With(...string) kit_metrics.Counter { return &noopCounter{} }
func (nm *noopCounter) Add(float64)                        {}

type noopHistogram struct{}

func (nm *noopHistogram) With(...string) kit_metrics.Histogram { return &noopHistogram{} }
func (nm *noopHistogram) Observe(float64)                      {}

type noopGauge struct{}

func (nm *noopGauge) With(...string) kit_metrics.Gauge { return &noopGauge{} }
func (nm *noopGauge) Add(float64)                      {}
func (nm *noopGauge) Set(float64)                      {}

type noopProvider struct{}

func (nm noopProvider) NewCounter(string, float64) Counter     { return &noopCounter{} }
func (nm noopProvider) NewHistogram(string, float64) Histogram { return &noopHistogram{} }
func (nm noopProvider) NewGauge(string) Gauge                  { return &noopGauge{} }

// NewNoopProvider returns a Provider whose handles discard everything
// they're given.
func NewNoopProvider() Provider { return noopProvider{} }
