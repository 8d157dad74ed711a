package metrics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	kitlogger "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/dogstatsd"
	"github.com/mitchellh/mapstructure"

	"github.com/unbxd/go-httpinvoker/log"
)

type (
	// datadogProvider is a Provider backed by a dogstatsd client flushed
	// on a fixed tick.
	datadogProvider struct {
		dstd *dogstatsd.Dogstatsd

		connstr string
		host    string
		port    string

		ns  string
		lvs []string

		tick   time.Duration
		logger kitlogger.Logger

		enabled bool
	}

	// DatadogOption configures a datadogProvider.
	DatadogOption func(*datadogProvider)
)

// DatadogWithNamespace sets the statsd namespace prefix.
func DatadogWithNamespace(ns string) DatadogOption {
	return func(dd *datadogProvider) { dd.ns = ns }
}

// DatadogWithServerHost sets the agent host to send metrics to.
func DatadogWithServerHost(host string) DatadogOption {
	return func(dd *datadogProvider) { dd.host = host }
}

// DatadogWithServerPort sets the agent port to send metrics to.
func DatadogWithServerPort(port string) DatadogOption {
	return func(dd *datadogProvider) { dd.port = port }
}

// DatadogWithServerConnstr sets the agent address directly, overriding
// host/port.
func DatadogWithServerConnstr(cstr string) DatadogOption {
	return func(dd *datadogProvider) { dd.connstr = cstr }
}

// DatadogWithTag appends a single tag.
func DatadogWithTag(key, value string) DatadogOption {
	return func(dd *datadogProvider) { dd.lvs = append(dd.lvs, key, value) }
}

// DatadogWithLabelValues overwrites the tag set with lvs, a flattened
// list of alternating key/value pairs.
func DatadogWithLabelValues(lvs []string) DatadogOption {
	return func(dd *datadogProvider) { dd.lvs = lvs }
}

// DatadogWithTags parses "key:value" tokens into label values; tokens
// without a ':' separator are ignored.
func DatadogWithTags(tags []string) DatadogOption {
	var lvs []string
	for _, tag := range tags {
		ss := strings.SplitN(tag, ":", 2)
		if len(ss) == 2 {
			lvs = append(lvs, ss[0], ss[1])
		}
	}
	return func(dd *datadogProvider) { dd.lvs = append(dd.lvs, lvs...) }
}

// DatadogWithEnabled toggles whether the background send loop runs.
func DatadogWithEnabled(enabled bool) DatadogOption {
	return func(dd *datadogProvider) { dd.enabled = enabled }
}

// DatadogWithTickInterval sets how often buffered metrics flush.
func DatadogWithTickInterval(tick time.Duration) DatadogOption {
	return func(dd *datadogProvider) { dd.tick = tick }
}

// DatadogWithLogger sets the logger the dogstatsd send loop reports to.
func DatadogWithLogger(logger log.Logger) DatadogOption {
	return func(dd *datadogProvider) { dd.logger = logger }
}

// DatadogConfig mirrors the legacy YAML shape the config layer decodes
// into via mapstructure:
//
//	url: "datadog:8125"
//	namespace: "invoker"
//	tags:
//	  - "env:staging"
type DatadogConfig struct {
	URL       string   `mapstructure:"url"`
	Namespace string   `mapstructure:"namespace"`
	Tags      []string `mapstructure:"tags"`
}

// DatadogWithConfigObject decodes cfg (any map/struct shape accepted by
// mapstructure) into a DatadogConfig and applies it.
func DatadogWithConfigObject(cfg interface{}) DatadogOption {
	var cf DatadogConfig
	if err := mapstructure.Decode(cfg, &cf); err != nil {
		panic(fmt.Sprintf("programmer error: cfg is not a valid datadog config: %s", err.Error()))
	}

	return func(dd *datadogProvider) {
		dd.connstr = cf.URL
		dd.ns = cf.Namespace
		DatadogWithTags(cf.Tags)(dd)
	}
}

func (dd *datadogProvider) NewCounter(name string, sampleRate float64) Counter {
	return dd.dstd.NewCounter(name, sampleRate)
}

func (dd *datadogProvider) NewHistogram(name string, sampleRate float64) Histogram {
	return dd.dstd.NewHistogram(name, sampleRate)
}

func (dd *datadogProvider) NewGauge(name string) Gauge { return dd.dstd.NewGauge(name) }

// NewDatadogProvider returns a Provider that ships metrics to a dogstatsd
// agent over UDP on a background send loop.
func NewDatadogProvider(opts ...DatadogOption) (Provider, error) {
	dd := &datadogProvider{
		host:    "localhost",
		port:    "8125",
		ns:      "httpinvoker",
		tick:    10 * time.Second,
		enabled: true,
		logger:  kitlogger.NewNopLogger(),
	}

	for _, o := range opts {
		o(dd)
	}

	if dd.connstr == "" {
		dd.connstr = net.JoinHostPort(dd.host, dd.port)
	}

	dd.dstd = dogstatsd.New(dd.ns, dd.logger, dd.lvs...)

	if dd.enabled {
		go func() {
			//nolint:errcheck
			dd.logger.Log("msg", "starting dogstatsd send loop", "address", dd.connstr)
			dd.dstd.SendLoop(context.Background(), time.Tick(dd.tick), "udp", dd.connstr)
		}()
	}

	return dd, nil
}
