package invocation

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/unbxd/go-httpinvoker/aggregator"
	"github.com/unbxd/go-httpinvoker/log"
	"github.com/unbxd/go-httpinvoker/metrics"
	"github.com/unbxd/go-httpinvoker/trace"
)

// Aggregator is the capability Reporting carries; see the aggregator
// package for the concrete thread-safe implementation and its NATS/Kafka
// sinks.
type Aggregator = aggregator.Aggregator

type (
	// Header is a single ordered request header name/value pair.
	Header struct {
		Name  string
		Value string
	}

	// RequestInput is the logical request as the caller sees it. Any
	// field may be absent; encodable values are opaque to everything
	// but the encode/decode pipeline's delegate.
	RequestInput struct {
		QueryEncodable             interface{}
		PathEncodable              interface{}
		BodyEncodable              interface{}
		AdditionalHeadersEncodable interface{}
		PathPostfix                string
	}

	// RequestComponents is the encoded request produced once per logical
	// request and reused across every retry attempt.
	RequestComponents struct {
		PathWithQuery     string
		AdditionalHeaders []Header
		Body              []byte
	}

	// ResponseComponents is the raw response produced once per attempt.
	ResponseComponents struct {
		Headers []Header
		Body    []byte
	}
)

// Scheduler is the optional cooperative event-loop/scheduler binding an
// invocation reporting may carry, letting callers integrate the
// orchestrator's sleeps with their own run loop instead of a bare
// time.Sleep. Nil means "use real time".
type Scheduler interface {
	// After returns a channel that fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Reporting carries every cross-cutting handle threaded through an
// invocation: logger, trace context, optional metrics counters/timer/
// recorder, optional aggregator, optional scheduler binding.
//
// Reporting is value-like. Decoration methods return a new Reporting;
// the receiver is never mutated.
type Reporting struct {
	Logger            log.Logger
	InternalRequestID string
	TraceContext      trace.Context

	Scheduler Scheduler

	Aggregator Aggregator

	SuccessCounter     metrics.Counter
	ClientErrorCounter metrics.Counter
	ServerErrorCounter metrics.Counter
	RetryCountRecorder metrics.RetryCountRecorder
	LatencyTimer       metrics.Timer

	trace *traceState
}

// traceState is the per-logical-invocation state shared by every attempt's
// Reporting copy: the token OnStart returned (so whichever attempt turns
// out terminal can close the same span) and the most recently seen
// status/body, so the terminal call reflects the last attempt made even
// though only the first attempt actually invokes OnStart.
type traceState struct {
	mu         sync.Mutex
	started    bool
	token      trace.Token
	lastStatus int
	lastBody   []byte
}

// NewReporting builds a Reporting with a freshly generated internal
// request id and the given logger/trace context. Metrics handles and
// the aggregator default to nil/zero and are wired in by the façade.
func NewReporting(logger log.Logger, traceContext trace.Context) Reporting {
	return Reporting{
		Logger:            logger,
		InternalRequestID: newRequestID(),
		TraceContext:      traceContext,
		trace:             &traceState{},
	}
}

// EnsureTraceStarted calls TraceContext.OnStart at most once per logical
// invocation - whichever attempt gets there first wins - and returns the
// token every later attempt reuses. Headers OnStart appends are folded
// back into components.AdditionalHeaders so retried attempts resend them
// too. No-op if TraceContext or the invocation's trace state is absent.
func (r Reporting) EnsureTraceStarted(method, uri string, components *RequestComponents) trace.Token {
	if r.TraceContext == nil || r.trace == nil {
		return nil
	}

	r.trace.mu.Lock()
	defer r.trace.mu.Unlock()

	if r.trace.started {
		return r.trace.token
	}
	r.trace.started = true

	headers := toTraceHeaders(components.AdditionalHeaders)
	r.trace.token = r.TraceContext.OnStart(method, uri, r.Logger, r.InternalRequestID, &headers, components.Body)
	components.AdditionalHeaders = fromTraceHeaders(headers)
	return r.trace.token
}

// RecordTraceAttempt stashes the most recent attempt's status code and
// body, so the eventual terminal trace event reflects the attempt that
// actually decided the outcome rather than the first one.
func (r Reporting) RecordTraceAttempt(statusCode int, body []byte) {
	if r.trace == nil {
		return
	}
	r.trace.mu.Lock()
	r.trace.lastStatus = statusCode
	r.trace.lastBody = body
	r.trace.mu.Unlock()
}

// EmitTraceTerminal calls OnSuccess or OnFailure exactly once per logical
// invocation, regardless of how many attempts preceded it, using the
// token EnsureTraceStarted produced and the status/body RecordTraceAttempt
// last stashed. No-op if OnStart was never reached (e.g. encoding failed
// before any attempt ran).
func (r Reporting) EmitTraceTerminal(err error) {
	if r.TraceContext == nil || r.trace == nil {
		return
	}

	r.trace.mu.Lock()
	started, token, status, body := r.trace.started, r.trace.token, r.trace.lastStatus, r.trace.lastBody
	r.trace.mu.Unlock()

	if !started {
		return
	}

	if err == nil {
		r.TraceContext.OnSuccess(token, r.Logger, r.InternalRequestID, status, body)
	} else {
		r.TraceContext.OnFailure(token, r.Logger, r.InternalRequestID, status, body, err)
	}
}

func toTraceHeaders(headers []Header) []trace.Header {
	out := make([]trace.Header, len(headers))
	for i, h := range headers {
		out[i] = trace.Header{Name: h.Name, Value: h.Value}
	}
	return out
}

func fromTraceHeaders(headers []trace.Header) []Header {
	out := make([]Header, len(headers))
	for i, h := range headers {
		out[i] = Header{Name: h.Name, Value: h.Value}
	}
	return out
}

func newRequestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

// WithOutgoingRequestIDLoggerMetadata returns a new Reporting whose
// logger carries a fresh outgoingRequestId field. The receiver is left
// untouched.
func (r Reporting) WithOutgoingRequestIDLoggerMetadata() Reporting {
	next := r
	next.InternalRequestID = newRequestID()
	next.Logger = r.Logger.With(log.String("outgoingRequestId", next.InternalRequestID))
	next.trace = &traceState{}
	return next
}

// WithOutgoingDecoratedLogger returns a new Reporting whose logger
// additionally carries the target endpoint host and, if non-empty, the
// logical operation name.
func (r Reporting) WithOutgoingDecoratedLogger(endpointHost string, operation string) Reporting {
	fields := []log.Field{log.String("endpoint", endpointHost)}
	if operation != "" {
		fields = append(fields, log.String("operation", operation))
	}

	next := r
	next.Logger = r.Logger.With(fields...)
	return next
}

// InnerReporting derives the reporting the orchestrator threads into the
// transport for each attempt: same logger/trace/aggregator, but every
// metrics handle is nulled so counters are recorded exactly once, by the
// orchestrator itself.
func (r Reporting) InnerReporting() Reporting {
	inner := r
	inner.SuccessCounter = nil
	inner.ClientErrorCounter = nil
	inner.ServerErrorCounter = nil
	inner.RetryCountRecorder = metrics.RetryCountRecorder{}
	inner.LatencyTimer = metrics.Timer{}
	return inner
}

// HandlerDelegate customizes a single invocation beyond what the codec
// delegate does globally: extra headers and, optionally, a bespoke error
// mapping for this call only.
type HandlerDelegate interface {
	// AdditionalHeaders returns extra headers to merge into the encoded
	// request for this invocation. May return nil.
	AdditionalHeaders() []Header

	// HandleErrorResponses inspects a non-success response and may
	// return a ClientError; nil defers to the codec delegate's own
	// GetResponseError.
	HandleErrorResponses(response ResponseComponents, statusCode int, reporting Reporting) error
}

// ContentHeadersForEmptyBody is the optional capability a HandlerDelegate
// implements to request Content-Type/Content-Length headers even when the
// encoded request body is zero-length. Without it the transport only sets
// them for non-empty bodies.
type ContentHeadersForEmptyBody interface {
	ContentHeadersForEmptyBody() bool
}

// NopHandlerDelegate is a HandlerDelegate that contributes nothing.
type NopHandlerDelegate struct{}

func (NopHandlerDelegate) AdditionalHeaders() []Header { return nil }

func (NopHandlerDelegate) HandleErrorResponses(ResponseComponents, int, Reporting) error {
	return nil
}

// Context pairs Reporting with a per-request HandlerDelegate. It is
// value-like: decorating it never mutates the original.
type Context struct {
	Reporting       Reporting
	HandlerDelegate HandlerDelegate
}

// NewContext builds a Context with the given reporting and delegate. A
// nil delegate is replaced with NopHandlerDelegate.
func NewContext(reporting Reporting, delegate HandlerDelegate) Context {
	if delegate == nil {
		delegate = NopHandlerDelegate{}
	}
	return Context{Reporting: reporting, HandlerDelegate: delegate}
}

// WithOutgoingRequestIDLoggerMetadata decorates the underlying Reporting.
func (c Context) WithOutgoingRequestIDLoggerMetadata() Context {
	return Context{Reporting: c.Reporting.WithOutgoingRequestIDLoggerMetadata(), HandlerDelegate: c.HandlerDelegate}
}

// WithOutgoingDecoratedLogger decorates the underlying Reporting.
func (c Context) WithOutgoingDecoratedLogger(endpointHost, operation string) Context {
	return Context{
		Reporting:       c.Reporting.WithOutgoingDecoratedLogger(endpointHost, operation),
		HandlerDelegate: c.HandlerDelegate,
	}
}

// InnerContext derives the per-attempt context the orchestrator passes
// to the transport: metrics-less reporting, same handler delegate.
func (c Context) InnerContext() Context {
	return Context{Reporting: c.Reporting.InnerReporting(), HandlerDelegate: c.HandlerDelegate}
}
