// This example demonstrates wiring a Transport, a JSON codec delegate,
// and a retry policy into a Client, then issuing both a non-retriable
// and a retriable call against it.
package main

import (
	"context"
	clog "log"
	"net/url"
	"time"

	"github.com/unbxd/go-httpinvoker/client"
	"github.com/unbxd/go-httpinvoker/codec"
	"github.com/unbxd/go-httpinvoker/invocation"
	"github.com/unbxd/go-httpinvoker/log"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/retryconfig"
	"github.com/unbxd/go-httpinvoker/trace"
	"github.com/unbxd/go-httpinvoker/transport"
)

func main() {
	logger, err := log.NewZeroLogger(log.ZeroLoggerWithLevel("info"))
	if err != nil {
		clog.Fatal("error init logging: ", err)
	}

	provider := metrics.NewPrometheusProvider("go_httpinvoker")

	reporting := invocation.NewReporting(logger, trace.NewNoopContext())
	reporting.SuccessCounter = provider.NewCounter("success", 1.0)
	reporting.ClientErrorCounter = provider.NewCounter("client_errors", 1.0)
	reporting.ServerErrorCounter = provider.NewCounter("server_errors", 1.0)
	reporting.RetryCountRecorder = metrics.NewRetryCountRecorder(provider.NewHistogram("retry_count", 1.0))
	reporting.LatencyTimer = metrics.NewTimer(provider.NewHistogram("latency_ms", 1.0))

	defaultContext := invocation.NewContext(reporting, nil)

	tr := transport.New("api.example.com", "443", &codec.TLSSettings{InsecureSkipVerify: false}, "go-httpinvoker/1.0",
		transport.WithTimeouts(5*time.Second, 10*time.Second),
	)

	cfg, err := retryconfig.New(
		retryconfig.WithNumRetries(3),
		retryconfig.WithBaseInterval(500),
		retryconfig.WithMaxInterval(10000),
		retryconfig.WithExponentialBase(2),
		retryconfig.WithJitter(true),
	)
	if err != nil {
		clog.Fatal("error building retry configuration: ", err)
	}

	c, err := client.New(tr, codec.NewJSONDelegate(), defaultContext,
		client.WithRetryConfiguration(cfg),
		client.WithAdminServer(":9090", provider),
	)
	if err != nil {
		clog.Fatal("error building client: ", err)
	}
	defer c.Shutdown(context.Background())

	query := url.Values{}
	query.Set("q", "widgets")

	out, err := c.ExecuteWithOutput(context.Background(), nil, "/v1/products", "GET", "search-products",
		invocation.RequestInput{QueryEncodable: query},
	)
	if err != nil {
		logger.Error("search-products failed", log.Error(err))
	} else {
		logger.Info("search-products succeeded", log.Reflect("output", out))
	}

	out, err = c.ExecuteRetriableWithOutput(context.Background(), nil, "/v1/orders", "POST", "create-order",
		invocation.RequestInput{BodyEncodable: map[string]interface{}{"sku": "widget-1", "qty": 2}},
	)
	if err != nil {
		logger.Error("create-order failed", log.Error(err))
	} else {
		logger.Info("create-order succeeded", log.Reflect("output", out))
	}
}
