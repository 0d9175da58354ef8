package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries is the number of times a handler is retried before the
// message is routed to the dead-letter queue.
const maxHandlerRetries = 3

// Handler processes a single decoded event. Returning an error triggers the
// retry/DLQ path; returning nil commits the message.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// DefaultConsumerConfig returns sensible defaults for the given topic and group.
func DefaultConsumerConfig(brokers []string, topic, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}
}

// Consumer reads events from a single topic and dispatches them to a handler.
// Duplicate events are skipped via the idempotency store, failing events are
// retried with backoff and finally dead-lettered so the partition never stalls
// on a poison message.
type Consumer struct {
	reader      *kafka.Reader
	handler     Handler
	idempotency IdempotencyStore
	dlq         *DLQProducer
	logger      *slog.Logger
	topic       string
	groupID     string
}

// NewConsumer creates a consumer for the given topic. The DLQ producer may be
// nil, in which case poison messages are dropped after logging.
func NewConsumer(cfg ConsumerConfig, handler Handler, idempotency IdempotencyStore, dlq *DLQProducer, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})

	return &Consumer{
		reader:      reader,
		handler:     handler,
		idempotency: idempotency,
		dlq:         dlq,
		logger:      logger,
		topic:       cfg.Topic,
		groupID:     cfg.GroupID,
	}
}

// Run consumes messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "kafka consumer started",
		slog.String("topic", c.topic),
		slog.String("group_id", c.groupID),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.ErrorContext(ctx, "fetch message failed", slog.String("error", err.Error()))
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.ErrorContext(ctx, "commit failed",
				slog.String("topic", c.topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	start := time.Now()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		// Malformed payloads can never succeed, dead-letter immediately.
		c.logger.ErrorContext(ctx, "unmarshal event failed",
			slog.String("topic", c.topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		return
	}

	if seen, err := c.idempotency.Contains(ctx, event.EventID); err == nil && seen {
		ConsumerMessagesDuplicate.WithLabelValues(c.topic, c.groupID).Inc()
		c.logger.DebugContext(ctx, "duplicate event skipped",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
		)
		return
	}

	var handlerErr error
	for attempt := 0; attempt <= maxHandlerRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		handlerErr = c.handler(ctx, event)
		if handlerErr == nil {
			break
		}

		c.logger.WarnContext(ctx, "event handler failed",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("attempt", attempt+1),
			slog.String("error", handlerErr.Error()),
		)
	}

	if handlerErr != nil {
		c.deadLetter(ctx, msg, handlerErr)
		return
	}

	if err := c.idempotency.Add(ctx, event.EventID); err != nil {
		c.logger.WarnContext(ctx, "idempotency store add failed",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}

	ConsumerMessagesProcessed.WithLabelValues(c.topic, c.groupID).Inc()
	ConsumerProcessingDuration.WithLabelValues(c.topic, c.groupID).Observe(time.Since(start).Seconds())
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	ConsumerMessagesFailed.WithLabelValues(c.topic, c.groupID).Inc()

	if c.dlq == nil {
		c.logger.ErrorContext(ctx, "message dropped, no DLQ configured",
			slog.String("topic", c.topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", cause.Error()),
		)
		return
	}

	if err := c.dlq.Publish(ctx, msg, cause); err != nil {
		c.logger.ErrorContext(ctx, "DLQ publish failed",
			slog.String("topic", c.topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
