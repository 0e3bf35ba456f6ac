package port

import "context"

type NotificationSink interface {
	// Send delivers one reminder to the holder identified by kerb. Delivery
	// is best-effort: implementations report failure but must not retry
	Send(ctx context.Context, kerb, subject, body string) error
}
