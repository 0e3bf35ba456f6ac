package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer owns an asynchronous writer: Publish enqueues, one goroutine
// drains the inbox into the broker, Close flushes whatever is queued. The
// request path never waits on Kafka.
type Producer struct {
	writer *kafka.Writer
	inbox  chan kafka.Message
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewProducer builds a producer for the brokers. Messages carry their topic,
// so one producer serves every topic the service emits on.
func NewProducer(brokers []string, buffer int, logger *slog.Logger) *Producer {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 20 * time.Millisecond,
		},
		inbox:  make(chan kafka.Message, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the drain loop. Call it once, before any Publish.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for msg := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.writer.WriteMessages(ctx, msg); err != nil {
				p.logger.Error("kafka write failed", "topic", msg.Topic, "error", err.Error())
			}
			cancel()
		}
		if err := p.writer.Close(); err != nil {
			p.logger.Error("kafka writer close failed", "error", err.Error())
		}
	}()
}

// Publish enqueues one message. It returns false when the producer is
// closed or the inbox is full, dropping the message rather than stalling
// the caller.
func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) bool {
	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("kafka producer closed, dropping message", "topic", topic)
		return false
	}
	select {
	case p.inbox <- msg:
		return true
	default:
		p.logger.Warn("kafka inbox full, dropping message", "topic", topic)
		return false
	}
}

// Close stops intake and flushes the inbox. It is safe to call more than
// once and safe against concurrent Publish. WaitClosed blocks until the
// flush finished.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

func (p *Producer) WaitClosed() {
	<-p.done
}
