package port

import (
	"context"
	"time"
)

type ReminderLedger interface {
	// Reserve claims key for ttl, returning false if a live claim already
	// exists. Used to suppress repeat reminders inside a cooldown window
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
