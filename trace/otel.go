package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/unbxd/go-httpinvoker/log"
)

type otelToken struct {
	ctx  context.Context
	span oteltrace.Span
}

type otelContext struct {
	tracer oteltrace.Tracer
}

// NewOtelContext returns a Context that starts an OpenTelemetry span per
// invocation via tracer and propagates it through traceparent headers.
func NewOtelContext(tracer oteltrace.Tracer) Context {
	return &otelContext{tracer: tracer}
}

func (o *otelContext) OnStart(
	method, uri string,
	_ log.Logger,
	requestID string,
	headers *[]Header,
	_ []byte,
) Token {
	ctx, span := o.tracer.Start(context.Background(), method+" "+uri,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", uri),
			attribute.String("invocation.request_id", requestID),
		),
	)

	carrier := headerCarrier{headers: headers}
	propagateTraceparent(&carrier, span)

	return &otelToken{ctx: ctx, span: span}
}

func (o *otelContext) OnSuccess(tok Token, _ log.Logger, _ string, statusCode int, _ []byte) {
	t, ok := tok.(*otelToken)
	if !ok || t == nil {
		return
	}
	t.span.SetAttributes(attribute.Int("http.status_code", statusCode))
	t.span.SetStatus(codes.Ok, "")
	t.span.End()
}

func (o *otelContext) OnFailure(tok Token, _ log.Logger, _ string, statusCode int, _ []byte, cause error) {
	t, ok := tok.(*otelToken)
	if !ok || t == nil {
		return
	}
	if statusCode > 0 {
		t.span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
	if cause != nil {
		t.span.RecordError(cause)
	}
	t.span.SetStatus(codes.Error, causeMessage(cause))
	t.span.End()
}

func causeMessage(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

type headerCarrier struct {
	headers *[]Header
}

func (h headerCarrier) Get(key string) string {
	for _, hdr := range *h.headers {
		if hdr.Name == key {
			return hdr.Value
		}
	}
	return ""
}

func (h headerCarrier) Set(key, value string) {
	*h.headers = append(*h.headers, Header{Name: key, Value: value})
}

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*h.headers))
	for _, hdr := range *h.headers {
		keys = append(keys, hdr.Name)
	}
	return keys
}

func propagateTraceparent(carrier *headerCarrier, span oteltrace.Span) {
	sc := span.SpanContext()
	if !sc.IsValid() {
		return
	}
	carrier.Set("traceparent", "00-"+sc.TraceID().String()+"-"+sc.SpanID().String()+"-01")
}
