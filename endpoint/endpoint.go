package endpoint

import "context"

type (
	// Endpoint models a single unit of business logic invoked by the
	// orchestrator: an attempt, or anything composed around one.
	Endpoint func(ctx context.Context, request interface{}) (response interface{}, err error)

	// Middleware wraps an Endpoint with cross-cutting behavior (retry,
	// circuit breaking, tracing) without the wrapped Endpoint knowing
	// it's been decorated.
	Middleware func(Endpoint) Endpoint
)

// NopEndpoint performs no action. Useful as a default/placeholder.
func NopEndpoint(context.Context, interface{}) (interface{}, error) {
	return struct{}{}, nil
}

// Chain composes a sequence of Middleware into a single Middleware,
// applying outer first and others in order, innermost last.
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}
