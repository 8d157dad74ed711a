package codec

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"
	"github.com/oxtoacart/bpool"

	"github.com/unbxd/go-httpinvoker/errors"
	"github.com/unbxd/go-httpinvoker/invocation"
)

// jsonDelegate is the default Delegate: JSON request/response bodies,
// headers decoded into a caller-supplied struct shape via mapstructure.
type jsonDelegate struct {
	bufPool *bpool.BufferPool
	tls     *TLSSettings

	// headerShape, when non-nil, is a pointer-producing factory for the
	// struct DecodeOutput's header decoding step fills via mapstructure.
	// When nil, DecodeOutput ignores headers entirely.
	headerShape func() interface{}

	errorFromBody func(body []byte, statusCode int) error
}

// JSONOption configures a jsonDelegate.
type JSONOption func(*jsonDelegate)

// WithTLS sets the TLS settings the delegate's TLS method returns.
func WithTLS(tls *TLSSettings) JSONOption {
	return func(d *jsonDelegate) { d.tls = tls }
}

// WithHeaderShape registers a factory returning a pointer to a struct
// tagged with `mapstructure` fields; DecodeOutput populates it from the
// response headers and makes it available via Headers on the returned
// Output.
func WithHeaderShape(factory func() interface{}) JSONOption {
	return func(d *jsonDelegate) { d.headerShape = factory }
}

// WithErrorFromBody overrides how a non-success response is turned into
// an error. The default returns a ClientError carrying the response's
// status code with the raw body as its cause's message; an override that
// wants the retry predicate to see a category must do the same.
func WithErrorFromBody(fn func(body []byte, statusCode int) error) JSONOption {
	return func(d *jsonDelegate) { d.errorFromBody = fn }
}

// NewJSONDelegate returns a Delegate that marshals request bodies and
// unmarshals response bodies as JSON, pooling encode buffers the way
// transport/http/encoder.go pools its copy buffers.
func NewJSONDelegate(opts ...JSONOption) Delegate {
	d := &jsonDelegate{
		bufPool: bpool.NewBufferPool(64),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Output is what DecodeOutput returns for the JSON delegate: the raw
// response body bytes in Body, left for the caller to unmarshal, plus
// optional decoded header values.
type Output struct {
	Body    []byte
	Headers interface{}
}

func (d *jsonDelegate) EncodeInputAndQueryString(
	input invocation.RequestInput,
	httpPath string,
	_ invocation.Reporting,
) (invocation.RequestComponents, error) {
	pathWithQuery := httpPath
	if input.PathPostfix != "" {
		pathWithQuery += input.PathPostfix
	}

	if input.QueryEncodable != nil {
		values, ok := input.QueryEncodable.(url.Values)
		if !ok {
			return invocation.RequestComponents{}, errors.New("codec: QueryEncodable must be url.Values for the JSON delegate")
		}
		if encoded := values.Encode(); encoded != "" {
			pathWithQuery += "?" + encoded
		}
	}

	var headers []invocation.Header
	if input.AdditionalHeadersEncodable != nil {
		hs, ok := input.AdditionalHeadersEncodable.([]invocation.Header)
		if !ok {
			return invocation.RequestComponents{}, errors.New("codec: AdditionalHeadersEncodable must be []invocation.Header for the JSON delegate")
		}
		headers = hs
	}

	var body []byte
	if input.BodyEncodable != nil {
		buf := d.bufPool.Get()
		defer d.bufPool.Put(buf)

		enc := json.NewEncoder(buf)
		if err := enc.Encode(input.BodyEncodable); err != nil {
			return invocation.RequestComponents{}, errors.Wrap(err, "codec: failed to encode body as JSON")
		}

		body = make([]byte, buf.Len())
		copy(body, buf.Bytes())
	}

	return invocation.RequestComponents{
		PathWithQuery:     pathWithQuery,
		AdditionalHeaders: headers,
		Body:              body,
	}, nil
}

func (d *jsonDelegate) DecodeOutput(
	body []byte,
	headers []invocation.Header,
	_ invocation.Reporting,
) (interface{}, error) {
	out := Output{Body: body}

	if d.headerShape == nil {
		return out, nil
	}

	shape := d.headerShape()

	m := make(map[string]interface{}, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}

	if err := mapstructure.Decode(m, shape); err != nil {
		return nil, errors.Wrap(err, "codec: failed to decode headers")
	}

	out.Headers = shape
	return out, nil
}

func (d *jsonDelegate) GetResponseError(
	response invocation.ResponseComponents,
	statusCode int,
	_ invocation.Reporting,
) error {
	if d.errorFromBody != nil {
		return d.errorFromBody(response.Body, statusCode)
	}
	return errors.NewClientError(statusCode,
		fmt.Errorf("codec: downstream returned status %d: %s", statusCode, string(response.Body)))
}

func (d *jsonDelegate) TLS() *TLSSettings { return d.tls }
