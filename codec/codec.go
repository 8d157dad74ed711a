package codec

import (
	"crypto/tls"

	"github.com/unbxd/go-httpinvoker/invocation"
)

// TLSSettings configures transport-level TLS. transport.New takes a
// *TLSSettings directly; a nil value there means the transport dials
// plain http://.
type TLSSettings struct {
	Config             *tls.Config
	InsecureSkipVerify bool
}

// Delegate unifies the codec concerns the transport depends on: encoding
// a logical RequestInput into RequestComponents, decoding a response body
// plus headers into a caller's Output type, and producing a typed error
// for non-success responses. One Delegate instance is shared across every
// attempt of every invocation that uses it.
type Delegate interface {
	// EncodeInputAndQueryString produces pathWithQuery, additional
	// headers, and body bytes for input against httpPath.
	EncodeInputAndQueryString(
		input invocation.RequestInput,
		httpPath string,
		reporting invocation.Reporting,
	) (invocation.RequestComponents, error)

	// DecodeOutput composes an Output value from a response body and
	// headers. Either may be empty.
	DecodeOutput(
		body []byte,
		headers []invocation.Header,
		reporting invocation.Reporting,
	) (interface{}, error)

	// GetResponseError produces a typed error for a non-success
	// response. Called only when the handler delegate's own
	// HandleErrorResponses returned nil.
	GetResponseError(
		response invocation.ResponseComponents,
		statusCode int,
		reporting invocation.Reporting,
	) error

	// TLS returns the TLS settings this delegate was configured with, or
	// nil. The transport package does not read it: the scheme and
	// certificate policy come only from the settings given to
	// transport.New.
	TLS() *TLSSettings
}
