package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerAttempts bounds how often one message is handed to the handler
// before it is committed and skipped.
const maxHandlerAttempts = 3

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds reader settings. Topics are consumed as one group.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds messages from a consumer group to a Handler. Offsets are
// committed after the handler succeeds or gives up, so every message is
// processed at least once.
type Consumer struct {
	reader    messageReader
	group     string
	handler   Handler
	logger    *slog.Logger
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a consumer for cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return newConsumer(r, cfg.GroupID, handler, logger)
}

func newConsumer(r messageReader, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		group:   group,
		handler: handler,
		logger:  logger,
		backoff: 100 * time.Millisecond,
	}
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("group", c.group))
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("group", c.group))
				return nil
			}
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}
		if !c.process(ctx, msg) {
			return nil
		}
	}
}

// process handles one message and commits it. It returns false when ctx was
// canceled mid-retry, leaving the message uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	consumerReceived.WithLabelValues(msg.Topic, c.group).Inc()
	log := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		log.Error("undecodable message skipped", slog.String("error", err.Error()))
		consumerFailed.WithLabelValues(msg.Topic, c.group).Inc()
		c.commit(ctx, log, msg)
		return true
	}

	hctx := ExtractTrace(ctx, &msg)
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		if lastErr = c.handler(hctx, event); lastErr == nil {
			break
		}
		log.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < maxHandlerAttempts && !sleep(ctx, time.Duration(attempt)*c.backoff) {
			return false
		}
	}
	consumerDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		log.Error("handler gave up, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.String("error", lastErr.Error()),
		)
		consumerFailed.WithLabelValues(msg.Topic, c.group).Inc()
	} else {
		consumerProcessed.WithLabelValues(msg.Topic, c.group).Inc()
	}
	c.commit(ctx, log, msg)
	return true
}

func (c *Consumer) commit(ctx context.Context, log *slog.Logger, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit failed", slog.String("error", err.Error()))
	}
}

// Close closes the reader once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.reader.Close() })
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
