package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopicPrefix is the prefix for dead-letter queue topics.
const DLQTopicPrefix = TopicPrefix + ".dlq"

// DLQTopic returns the dead-letter topic name for a source topic,
// e.g. "menontrucks.listing.created" -> "menontrucks.dlq.listing.created".
func DLQTopic(sourceTopic string) string {
	if len(sourceTopic) > len(TopicPrefix) && sourceTopic[:len(TopicPrefix)+1] == TopicPrefix+"." {
		return DLQTopicPrefix + sourceTopic[len(TopicPrefix):]
	}
	return DLQTopicPrefix + "." + sourceTopic
}

// DLQProducer publishes poison messages to dead-letter topics so they can be
// inspected and replayed without blocking the main consumer.
type DLQProducer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewDLQProducer creates a producer for dead-letter topics.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}

	return &DLQProducer{
		writer: w,
		logger: logger,
	}
}

// Publish writes the original message to the dead-letter topic for its source
// topic, recording the failure reason and original coordinates in headers.
func (p *DLQProducer) Publish(ctx context.Context, msg kafka.Message, handlerErr error) error {
	dlqMsg := kafka.Message{
		Topic: DLQTopic(msg.Topic),
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "dlq-source-topic", Value: []byte(msg.Topic)},
			kafka.Header{Key: "dlq-source-partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "dlq-source-offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "dlq-error", Value: []byte(handlerErr.Error())},
			kafka.Header{Key: "dlq-failed-at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	if err := p.writer.WriteMessages(ctx, dlqMsg); err != nil {
		return fmt.Errorf("publish to DLQ %s: %w", dlqMsg.Topic, err)
	}

	p.logger.WarnContext(ctx, "message sent to dead-letter queue",
		slog.String("dlq_topic", dlqMsg.Topic),
		slog.String("source_topic", msg.Topic),
		slog.Int64("offset", msg.Offset),
		slog.String("error", handlerErr.Error()),
	)

	return nil
}

// Close closes the underlying writer.
func (p *DLQProducer) Close() error {
	return p.writer.Close()
}
