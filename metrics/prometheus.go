package metrics

import (
	net_http "net/http"

	kitpr "github.com/go-kit/kit/metrics/prometheus"
	stdpr "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusProvider struct {
	namespace string
	subsystem string
	fields    []string
}

// PrometheusOption configures a prometheusProvider.
type PrometheusOption func(*prometheusProvider)

// PrometheusWithSubsystem sets the subsystem name component applied to
// every metric minted by this provider.
func PrometheusWithSubsystem(subsystem string) PrometheusOption {
	return func(p *prometheusProvider) { p.subsystem = subsystem }
}

// PrometheusWithLabels sets the label names every Counter/Gauge/
// Histogram is pre-declared with; values are supplied later via .With().
func PrometheusWithLabels(fields []string) PrometheusOption {
	return func(p *prometheusProvider) { p.fields = fields }
}

func (p *prometheusProvider) NewCounter(name string, _ float64) Counter {
	return kitpr.NewCounterFrom(stdpr.CounterOpts{
		Namespace: p.namespace,
		Subsystem: p.subsystem,
		Name:      name,
		Help:      "namespace:" + p.namespace + " subsystem:" + p.subsystem + " name:" + name,
	}, p.fields)
}

func (p *prometheusProvider) NewHistogram(name string, _ float64) Histogram {
	return kitpr.NewSummaryFrom(stdpr.SummaryOpts{
		Namespace: p.namespace,
		Subsystem: p.subsystem,
		Name:      name,
		Help:      "namespace:" + p.namespace + " subsystem:" + p.subsystem + " name:" + name,
	}, p.fields)
}

func (p *prometheusProvider) NewGauge(name string) Gauge {
	return kitpr.NewGaugeFrom(stdpr.GaugeOpts{
		Namespace: p.namespace,
		Subsystem: p.subsystem,
		Name:      name,
		Help:      "namespace:" + p.namespace + " subsystem:" + p.subsystem + " name:" + name,
	}, p.fields)
}

// Handler serves the default Prometheus registry, suitable for mounting
// under the façade's admin server at /metrics.
func (p *prometheusProvider) Handler() net_http.Handler { return promhttp.Handler() }

// NewPrometheusProvider returns a Provider (and Handler) backed by the
// default Prometheus registry.
func NewPrometheusProvider(namespace string, opts ...PrometheusOption) Provider {
	p := &prometheusProvider{namespace: namespace}
	for _, o := range opts {
		o(p)
	}
	return p
}
