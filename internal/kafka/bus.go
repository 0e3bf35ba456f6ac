package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
)

// Bus adapts the Producer to port.EventPublisher. It stamps the producing
// service's name, routes the envelope to its topic and keys the message by
// correlation ID so events for one item stay in order.
type Bus struct {
	producer *Producer
	name     string
}

func NewBus(producer *Producer, serviceName string) *Bus {
	return &Bus{producer: producer, name: serviceName}
}

func (b *Bus) Publish(ctx context.Context, env event.Envelope) error {
	env.Producer = b.name

	topic, err := event.TopicFor(env.EventType)
	if err != nil {
		return err
	}
	value, err := event.Marshal(env)
	if err != nil {
		return err
	}

	ok := b.producer.Publish(topic, []byte(env.CorrelationID), value,
		kafka.Header{Key: "event-type", Value: []byte(env.EventType)},
	)
	if !ok {
		return fmt.Errorf("producer inbox full, dropped %s", env.EventType)
	}
	return nil
}
