package trace

import (
	"github.com/unbxd/go-httpinvoker/log"
)

// Header is a single outbound header name/value pair, mutable by onStart
// so a TraceContext implementation can inject span headers before send.
type Header struct {
	Name  string
	Value string
}

// Token is the opaque handle OnStart returns. Its lifetime spans exactly
// one invocation, not one attempt: the same token is threaded into
// whichever of OnSuccess or OnFailure eventually closes it, however many
// attempts ran in between.
type Token interface{}

// Context is the capability that receives start/success/failure events
// to integrate with a distributed tracing system. Implementations must
// be safe to call concurrently across unrelated invocations.
type Context interface {
	// OnStart is called once per invocation, before the first attempt is
	// sent. It may append to or rewrite headers.
	OnStart(method, uri string, logger log.Logger, requestID string, headers *[]Header, body []byte) Token

	// OnSuccess is called once, for the final terminal attempt of an
	// invocation that completed successfully.
	OnSuccess(tok Token, logger log.Logger, requestID string, statusCode int, body []byte)

	// OnFailure is called once, for the final terminal attempt of an
	// invocation that did not complete successfully. statusCode is -1
	// when no response was ever received.
	OnFailure(tok Token, logger log.Logger, requestID string, statusCode int, body []byte, cause error)
}
