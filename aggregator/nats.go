package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"

	natn "github.com/nats-io/nats.go"

	"github.com/unbxd/go-httpinvoker/errors"
)

// NatsSinkOption configures a NatsSink.
type NatsSinkOption func(*NatsSink)

// WithNatsSubjectPrefix sets the subject prefix every published rollup
// is published under, "<prefix>.<subject>".
func WithNatsSubjectPrefix(prefix string) NatsSinkOption {
	return func(s *NatsSink) { s.prefix = prefix }
}

// NatsSink publishes each completed RetriableOutputRequestRecord as a
// JSON NATS message. It wraps an Aggregator so callers can use it
// anywhere an Aggregator is expected. The client package does not call
// PublishRollup; records are published only when the sink's owner calls
// it.
type NatsSink struct {
	Aggregator

	conn    *natn.Conn
	subject string
	prefix  string
}

// NewNatsSink connects to connstr and returns a NatsSink wrapping a fresh
// in-memory Aggregator.
func NewNatsSink(connstr, subject string, opts ...NatsSinkOption) (*NatsSink, error) {
	opts2 := natn.GetDefaultOptions()
	opts2.Url = connstr

	conn, err := opts2.Connect()
	if err != nil {
		return nil, errors.Wrap(err, "aggregator: unable to connect to nats server")
	}

	s := &NatsSink{
		Aggregator: New(),
		conn:       conn,
		subject:    subject,
		prefix:     "httpinvoker",
	}

	for _, o := range opts {
		o(s)
	}

	return s, nil
}

func (s *NatsSink) fullSubject() string {
	if s.prefix == "" {
		return s.subject
	}
	return fmt.Sprintf("%s.%s", s.prefix, s.subject)
}

// PublishRollup publishes the current snapshot as one JSON message, then
// clears it by replacing the underlying Aggregator with a fresh one.
func (s *NatsSink) PublishRollup() error {
	rollup := Rollup(s.Aggregator)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(rollup); err != nil {
		return errors.Wrap(err, "aggregator: failed to encode rollup")
	}

	if err := s.conn.Publish(s.fullSubject(), buf.Bytes()); err != nil {
		return errors.Wrap(err, "aggregator: failed to publish rollup")
	}

	s.Aggregator = New()
	return nil
}

// Close drains and closes the underlying NATS connection.
func (s *NatsSink) Close() error {
	s.conn.Close()
	return nil
}
