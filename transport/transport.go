// Package transport performs a single HTTP attempt: build a URL and
// headers from encoded components, call the downstream, and map the
// status code (or a connection failure) back into ResponseComponents or
// a typed ClientError. It never retries; the orchestrator owns that.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unbxd/go-httpinvoker/codec"
	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/invocation"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultContentType    = "application/json"
)

var successCodes = map[int]bool{
	http.StatusOK:                   true,
	http.StatusCreated:              true,
	http.StatusAccepted:             true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusResetContent:         true,
	http.StatusPartialContent:       true,
}

// Transport dials a single downstream endpoint and executes one request
// attempt at a time. A single Transport's connection pool is shared
// across every invocation that targets it.
type Transport struct {
	scheme string
	host   string
	port   string

	userAgent   string
	contentType string

	client *http.Client
}

// Option configures a Transport.
type Option func(*Transport)

// WithUserAgent overrides the default User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithContentType overrides the Content-Type applied when a request body
// is present.
func WithContentType(ct string) Option {
	return func(t *Transport) { t.contentType = ct }
}

// WithTimeouts overrides the connect and read timeouts applied to the
// underlying http.Client's transport and deadlines.
func WithTimeouts(connect, read time.Duration) Option {
	return func(t *Transport) {
		t.client.Timeout = read
		if rt, ok := t.client.Transport.(*http.Transport); ok {
			rt.DialContext = (&net.Dialer{Timeout: connect}).DialContext
		}
	}
}

// WithHTTPClient replaces the underlying http.Client entirely, e.g. to
// share a transport's connection pool across multiple Transport values.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// New returns a Transport dialing host:port. codecTLS selects https and
// the certificate policy when non-nil; otherwise plain http is used.
func New(host, port string, codecTLS *codec.TLSSettings, userAgent string, opts ...Option) *Transport {
	scheme := "http"

	base := &http.Transport{
		DialContext: (&net.Dialer{Timeout: defaultConnectTimeout}).DialContext,
	}

	if codecTLS != nil {
		scheme = "https"
		switch {
		case codecTLS.Config != nil:
			base.TLSClientConfig = codecTLS.Config
		case codecTLS.InsecureSkipVerify:
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	t := &Transport{
		scheme:      scheme,
		host:        host,
		port:        port,
		userAgent:   userAgent,
		contentType: defaultContentType,
		client: &http.Client{
			Timeout:   defaultReadTimeout,
			Transport: base,
		},
	}

	for _, o := range opts {
		o(t)
	}

	if t.client.Transport == base {
		t.client.Transport = otelhttp.NewTransport(base)
	}

	return t
}

// Do executes a single attempt against method/components, consulting
// delegate and codecDelegate for error extraction on non-success
// responses. It returns the downstream status code alongside the usual
// response/error pair - -1 when no response was ever received - so a
// caller driving several attempts can report the last one actually made.
//
// components is shared across every attempt of the same logical request;
// the first attempt to reach EnsureTraceStarted appends any trace headers
// directly onto it, so retried attempts resend the same ones.
func (t *Transport) Do(
	ctx context.Context,
	method string,
	components *invocation.RequestComponents,
	delegate invocation.HandlerDelegate,
	codecDelegate codec.Delegate,
	ictx invocation.Context,
) (invocation.ResponseComponents, int, error) {
	reporting := ictx.Reporting

	uri := t.scheme + "://" + t.host
	if t.port != "" {
		uri += ":" + t.port
	}
	uri += components.PathWithQuery

	reporting.EnsureTraceStarted(method, uri, components)

	headers := append([]invocation.Header{}, components.AdditionalHeaders...)
	if delegate != nil {
		headers = append(headers, delegate.AdditionalHeaders()...)
	}

	if len(components.Body) > 0 || wantsContentHeadersForEmptyBody(delegate) {
		headers = append(headers,
			invocation.Header{Name: "Content-Type", Value: t.contentType},
			invocation.Header{Name: "Content-Length", Value: strconv.Itoa(len(components.Body))},
		)
	}
	headers = append(headers,
		invocation.Header{Name: "User-Agent", Value: t.userAgent},
		invocation.Header{Name: "Accept", Value: "*/*"},
	)

	req, err := http.NewRequestWithContext(ctx, method, uri, bodyReader(components.Body))
	if err != nil {
		reporting.RecordTraceAttempt(-1, nil)
		return invocation.ResponseComponents{}, -1, errors.Wrap(err, "transport: failed to build request")
	}
	for _, h := range headers {
		req.Header.Set(h.Name, h.Value)
	}

	res, err := t.client.Do(req)
	if err != nil {
		reporting.RecordTraceAttempt(-1, nil)
		return invocation.ResponseComponents{}, -1, errors.NewClientError(500, classifyDoError(err))
	}
	if res == nil {
		reporting.RecordTraceAttempt(-1, nil)
		return invocation.ResponseComponents{}, -1, errors.NewClientError(500, errors.ErrUnexpectedClosure)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		reporting.RecordTraceAttempt(res.StatusCode, nil)
		return invocation.ResponseComponents{}, res.StatusCode, errors.NewClientError(500, errors.Wrap(err, "transport: failed to read response body"))
	}

	response := invocation.ResponseComponents{
		Headers: responseHeaders(res.Header),
		Body:    body,
	}
	reporting.RecordTraceAttempt(res.StatusCode, body)

	if successCodes[res.StatusCode] {
		return response, res.StatusCode, nil
	}

	var respErr error
	if delegate != nil {
		respErr = delegate.HandleErrorResponses(response, res.StatusCode, reporting)
	}
	if respErr == nil && codecDelegate != nil {
		respErr = codecDelegate.GetResponseError(response, res.StatusCode, reporting)
	}
	if respErr == nil {
		respErr = errors.NewClientError(400, errors.Wrapf(errors.New(string(body)), "transport: downstream returned status %d", res.StatusCode))
	}

	return response, res.StatusCode, respErr
}

// Close releases idle pooled connections. Safe to call more than once.
func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func wantsContentHeadersForEmptyBody(delegate invocation.HandlerDelegate) bool {
	opt, ok := delegate.(invocation.ContentHeadersForEmptyBody)
	return ok && opt.ContentHeadersForEmptyBody()
}

func bodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return bytes.NewReader(body)
}

func responseHeaders(h http.Header) []invocation.Header {
	out := make([]invocation.Header, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			out = append(out, invocation.Header{Name: name, Value: v})
		}
	}
	return out
}

// classifyDoError maps a net/http client error into one of the
// transient-connection sentinels when it recognizes the cause, leaving
// everything else as errors.ErrConnectionCreateFailed. A closed pipe is
// our own half of the stream going away mid-write; an unexpected EOF is
// the remote's. All three carry code 500 and are retriable;
// IsTransientConnectionFailure lets the orchestrator single out the two
// closures that consume the aborted-attempt budget instead of a retry
// slot.
func classifyDoError(err error) error {
	if errors.Is(err, io.ErrClosedPipe) {
		return errors.ErrStreamClosed
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.ErrRemoteConnectionClosed
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return errors.ErrConnectionCreateFailed
	}
	return errors.Wrap(errors.ErrConnectionCreateFailed, err.Error())
}
