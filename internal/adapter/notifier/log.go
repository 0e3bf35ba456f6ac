package notifier

import (
	"context"
	"log/slog"
)

// LogNotifier writes reminders to the log instead of delivering them. It is
// the default sink when no relay is configured, and what local development
// runs with.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, kerb, subject, body string) error {
	n.logger.Info("reminder", "kerb", kerb, "subject", subject, "body", body)
	return nil
}
