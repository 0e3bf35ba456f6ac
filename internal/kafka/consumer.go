package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
)

// Handler processes one decoded envelope. A returned error is logged; the
// message is committed either way, so handlers own their retries.
type Handler func(ctx context.Context, env event.Envelope) error

// Consumer fans one topic out to a pool of workers under a consumer group.
// Offsets are committed after the handler returns.
type Consumer struct {
	reader  *kafka.Reader
	workers int
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, workers int, logger *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		workers: workers,
		logger:  logger,
	}
}

// Run fetches until ctx is done, then drains the workers and closes the
// reader. It blocks; call it from a goroutine if you need to keep going.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs := make(chan kafka.Message)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				c.handleMessage(ctx, msg, handle)
			}
		}()
	}

	var fetchErr error
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				fetchErr = err
			}
			break
		}
		msgs <- msg
	}

	close(msgs)
	wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error("kafka reader close failed", "error", err.Error())
	}
	return fetchErr
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message, handle Handler) {
	env, err := event.Unmarshal(msg.Value)
	if err != nil {
		c.logger.Error("dropping undecodable message", "topic", msg.Topic, "offset", msg.Offset, "error", err.Error())
	} else if err := handle(ctx, env); err != nil {
		c.logger.Error("handler failed", "event_type", env.EventType, "event_id", env.EventID, "error", err.Error())
	}

	if err := c.reader.CommitMessages(context.Background(), msg); err != nil {
		c.logger.Error("commit failed", "topic", msg.Topic, "offset", msg.Offset, "error", err.Error())
	}
}
