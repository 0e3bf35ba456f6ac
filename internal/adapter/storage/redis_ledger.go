package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger implements port.ReminderLedger on a shared Redis so several
// server replicas agree on which reminders already went out. SET NX with a
// TTL makes the claim and its expiry one atomic step.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (r *RedisLedger) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
