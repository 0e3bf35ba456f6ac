package port

import (
	"context"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
)

type EventPublisher interface {
	// Publish hands the envelope to the event bus. Implementations must not
	// block the caller beyond enqueueing
	Publish(ctx context.Context, env event.Envelope) error
}
