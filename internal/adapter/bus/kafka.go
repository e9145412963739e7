package bus

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher implements usecase.BusPublisher on a kafka-go writer.
// WriteMessages blocks until the broker acknowledges, which is exactly the
// synchronous publish the relay needs before marking a record processed.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher for a comma-separated broker list.
// The Hash balancer keyed by aggregate id keeps all events of one aggregate
// on a single partition, preserving per-aggregate order.
func NewKafkaPublisher(brokers string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parseBrokers(brokers)...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish sends one message and waits for the broker ack.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return err
	}

	p.logger.Debug().
		Str("topic", topic).
		Str("key", key).
		Msg("message published")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func parseBrokers(brokers string) []string {
	var parsed []string

	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			parsed = append(parsed, b)
		}
	}

	return parsed
}
