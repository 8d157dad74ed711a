package aggregator

import (
	"bytes"
	"context"
	"encoding/json"

	kafgo "github.com/segmentio/kafka-go"

	"github.com/unbxd/go-httpinvoker/errors"
)

// KafkaSinkOption configures a KafkaSink.
type KafkaSinkOption func(*KafkaSink)

// WithKafkaMaxAttempts bounds the writer's internal retry count for a
// single publish.
func WithKafkaMaxAttempts(attempts int) KafkaSinkOption {
	return func(s *KafkaSink) { s.writer.MaxAttempts = attempts }
}

// KafkaSink publishes each completed RetriableOutputRequestRecord as a
// JSON message on a Kafka topic.
type KafkaSink struct {
	Aggregator

	writer *kafgo.Writer
}

// NewKafkaSink returns a KafkaSink wrapping a fresh in-memory Aggregator,
// writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string, opts ...KafkaSinkOption) *KafkaSink {
	s := &KafkaSink{
		Aggregator: New(),
		writer: &kafgo.Writer{
			Addr:     kafgo.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafgo.LeastBytes{},
		},
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// PublishRollup publishes the current snapshot as one JSON message, then
// clears it by replacing the underlying Aggregator with a fresh one.
func (s *KafkaSink) PublishRollup(ctx context.Context) error {
	rollup := Rollup(s.Aggregator)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(rollup); err != nil {
		return errors.Wrap(err, "aggregator: failed to encode rollup")
	}

	if err := s.writer.WriteMessages(ctx, kafgo.Message{Value: buf.Bytes()}); err != nil {
		return errors.Wrap(err, "aggregator: failed to publish rollup")
	}

	s.Aggregator = New()
	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
