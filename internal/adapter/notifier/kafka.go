package notifier

import (
	"context"
	"fmt"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

// KafkaNotifier hands reminders to the event bus as ReminderDue events; the
// mailer process consumes them and does the actual delivery. This keeps slow
// SMTP round trips out of the sweep loop.
type KafkaNotifier struct {
	bus port.EventPublisher
}

func NewKafkaNotifier(bus port.EventPublisher) *KafkaNotifier {
	return &KafkaNotifier{bus: bus}
}

func (n *KafkaNotifier) Send(ctx context.Context, kerb, subject, body string) error {
	env, err := event.New(event.TypeReminderDue, kerb, event.ReminderPayload{
		Kerb:    kerb,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("build reminder event: %w", err)
	}
	if err := n.bus.Publish(ctx, env); err != nil {
		return fmt.Errorf("publish reminder: %w", err)
	}
	return nil
}
