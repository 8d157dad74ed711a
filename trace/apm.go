package trace

import (
	"context"
	"strconv"

	"go.elastic.co/apm"
	"go.elastic.co/apm/module/apmhttp"

	"github.com/unbxd/go-httpinvoker/log"
)

type apmToken struct {
	tx   *apm.Transaction
	span *apm.Span
}

type apmContext struct {
	tracer *apm.Tracer
}

// NewApmContext returns a Context backed by Elastic APM. A nil tracer
// falls back to apm.DefaultTracer.
func NewApmContext(tracer *apm.Tracer) Context {
	if tracer == nil {
		tracer = apm.DefaultTracer
	}
	return &apmContext{tracer: tracer}
}

func (a *apmContext) OnStart(
	method, uri string,
	_ log.Logger,
	requestID string,
	headers *[]Header,
	_ []byte,
) Token {
	tx := a.tracer.StartTransaction(method+" "+uri, "http.invocation")
	tx.Context.SetLabel("request_id", requestID)

	ctx := apm.ContextWithTransaction(context.Background(), tx)
	span, _ := apm.StartSpan(ctx, uri, "http.attempt")

	traceContext := tx.TraceContext()
	*headers = append(*headers, Header{
		Name:  apmhttp.W3CTraceparentHeader,
		Value: apmhttp.FormatTraceparentHeader(traceContext),
	})

	return &apmToken{tx: tx, span: span}
}

func (a *apmContext) OnSuccess(tok Token, _ log.Logger, _ string, statusCode int, _ []byte) {
	t, ok := tok.(*apmToken)
	if !ok || t == nil {
		return
	}
	t.span.End()
	t.tx.Result = "success"
	t.tx.Context.SetLabel("http.status_code", strconv.Itoa(statusCode))
	t.tx.End()
}

func (a *apmContext) OnFailure(tok Token, _ log.Logger, _ string, statusCode int, _ []byte, cause error) {
	t, ok := tok.(*apmToken)
	if !ok || t == nil {
		return
	}
	if cause != nil {
		e := a.tracer.NewError(cause)
		e.SetTransaction(t.tx)
		e.Send()
	}
	t.span.End()
	t.tx.Result = "failure"
	if statusCode > 0 {
		t.tx.Context.SetLabel("http.status_code", strconv.Itoa(statusCode))
	}
	t.tx.End()
}
