// Package client exposes the invocation façade: a configured transport
// paired with a default invocation context, offering four verbs per
// caller and an idempotent shutdown.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/unbxd/go-httpinvoker/codec"
	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/invocation"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/orchestrator"
	"github.com/unbxd/go-httpinvoker/retryconfig"
)

// Doer is the subset of *transport.Transport the client depends on,
// letting tests and alternate transports stand in for the real thing.
type Doer interface {
	Do(
		ctx context.Context,
		method string,
		components *invocation.RequestComponents,
		delegate invocation.HandlerDelegate,
		codecDelegate codec.Delegate,
		ictx invocation.Context,
	) (invocation.ResponseComponents, int, error)
}

// Client pairs a Doer and codec with a default invocation context and
// retry configuration, and exposes the four invocation verbs.
type Client struct {
	doer  Doer
	codec codec.Delegate

	defaultContext invocation.Context
	retryConfig    *retryconfig.Configuration

	admin *http.Server

	mu         sync.Mutex
	shutdownAt *time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfiguration sets the retry policy used by the retriable
// verbs. Defaults to retryconfig.New()'s baseline policy.
func WithRetryConfiguration(cfg *retryconfig.Configuration) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithAdminServer starts a self-diagnostics HTTP server on addr exposing
// a Prometheus metrics handler and a health check, closed by Shutdown.
func WithAdminServer(addr string, provider metrics.Provider) Option {
	return func(c *Client) {
		mux := chi.NewRouter()
		mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		if h, ok := provider.(metrics.Handler); ok && h.Handler() != nil {
			mux.Handle("/metrics", h.Handler())
		}
		c.admin = &http.Server{Addr: addr, Handler: mux}
	}
}

// New builds a Client invoking doer/codecDelegate under defaultContext.
// Any WithAdminServer option starts the admin server in the background.
func New(doer Doer, codecDelegate codec.Delegate, defaultContext invocation.Context, opts ...Option) (*Client, error) {
	cfg, err := retryconfig.New()
	if err != nil {
		return nil, err
	}

	c := &Client{
		doer:           doer,
		codec:          codecDelegate,
		defaultContext: defaultContext,
		retryConfig:    cfg,
	}

	for _, o := range opts {
		o(c)
	}

	if c.admin != nil {
		go c.admin.ListenAndServe() //nolint:errcheck
	}

	return c, nil
}

// callContext resolves the per-call invocation context: override if
// non-nil, else the client's default, decorated with a fresh outgoing
// request id and endpoint/operation metadata.
func (c *Client) callContext(override *invocation.Context, endpointPath, operation string) invocation.Context {
	ictx := c.defaultContext
	if override != nil {
		ictx = *override
	}
	return ictx.
		WithOutgoingRequestIDLoggerMetadata().
		WithOutgoingDecoratedLogger(endpointPath, operation)
}

// attempt builds the single-attempt function the orchestrator drives.
// components is encoded once per logical request by the caller below and
// reused verbatim across every retry; only the downstream call and output
// decode happen per attempt. components is shared by pointer across every
// attempt so that trace headers the first attempt appends reach the rest.
func (c *Client) attempt(httpMethod string, components *invocation.RequestComponents) orchestrator.Attempt {
	return func(ctx context.Context, ictx invocation.Context) (interface{}, error) {
		response, _, err := c.doer.Do(ctx, httpMethod, components, ictx.HandlerDelegate, c.codec, ictx)
		if err != nil {
			return nil, err
		}

		out, err := c.codec.DecodeOutput(response.Body, response.Headers, ictx.Reporting)
		if err != nil {
			return nil, errors.NewClientError(400, errors.Wrap(err, "client: failed to decode output"))
		}
		return out, nil
	}
}

func (c *Client) encode(ictx invocation.Context, endpointPath string, input invocation.RequestInput) (invocation.RequestComponents, error) {
	components, err := c.codec.EncodeInputAndQueryString(input, endpointPath, ictx.Reporting)
	if err != nil {
		return invocation.RequestComponents{}, errors.NewClientError(400, err)
	}
	return components, nil
}

// ExecuteWithOutput performs a single, non-retried attempt and returns
// the decoded output. Being single-attempt, it is trivially its own
// terminal trace event.
func (c *Client) ExecuteWithOutput(
	ctx context.Context,
	override *invocation.Context,
	endpointPath, httpMethod, operation string,
	input invocation.RequestInput,
) (interface{}, error) {
	ictx := c.callContext(override, endpointPath, operation)
	components, err := c.encode(ictx, endpointPath, input)
	if err != nil {
		return nil, err
	}

	out, err := c.attempt(httpMethod, &components)(ctx, ictx)
	ictx.Reporting.EmitTraceTerminal(err)
	return out, err
}

// ExecuteWithoutOutput performs a single, non-retried attempt and
// discards the decoded output.
func (c *Client) ExecuteWithoutOutput(
	ctx context.Context,
	override *invocation.Context,
	endpointPath, httpMethod, operation string,
	input invocation.RequestInput,
) error {
	_, err := c.ExecuteWithOutput(ctx, override, endpointPath, httpMethod, operation, input)
	return err
}

// ExecuteRetriableWithOutput drives the attempt through the retry
// orchestrator and returns the decoded output of the terminal success.
// The orchestrator itself emits the once-per-invocation terminal trace
// event; OnStart fires lazily, the first time any attempt reaches the
// transport.
func (c *Client) ExecuteRetriableWithOutput(
	ctx context.Context,
	override *invocation.Context,
	endpointPath, httpMethod, operation string,
	input invocation.RequestInput,
) (interface{}, error) {
	ictx := c.callContext(override, endpointPath, operation)
	components, err := c.encode(ictx, endpointPath, input)
	if err != nil {
		return nil, err
	}
	return orchestrator.Execute(ctx, c.attempt(httpMethod, &components), ictx, c.retryConfig)
}

// ExecuteRetriableWithoutOutput drives the attempt through the retry
// orchestrator, discarding the decoded output of the terminal success.
func (c *Client) ExecuteRetriableWithoutOutput(
	ctx context.Context,
	override *invocation.Context,
	endpointPath, httpMethod, operation string,
	input invocation.RequestInput,
) error {
	_, err := c.ExecuteRetriableWithOutput(ctx, override, endpointPath, httpMethod, operation, input)
	return err
}

// Shutdown releases the admin server, if any, and closes the doer when it
// has a Close method. Calling it more than once is safe: subsequent calls
// do nothing further and return nil.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdownAt != nil {
		return nil
	}
	now := time.Now()
	c.shutdownAt = &now

	var adminErr, transportErr error
	if c.admin != nil {
		adminErr = c.admin.Shutdown(ctx)
	}
	if closer, ok := c.doer.(interface{ Close() error }); ok {
		transportErr = closer.Close()
	}

	return multierr.Combine(adminErr, transportErr)
}
