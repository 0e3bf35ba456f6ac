package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is the single-process ReminderLedger used when no Redis is
// configured. Expired claims are purged lazily on the next Reserve.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryLedger) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, deadline := range m.claims {
		if !deadline.After(now) {
			delete(m.claims, k)
		}
	}

	if _, held := m.claims[key]; held {
		return false, nil
	}
	m.claims[key] = now.Add(ttl)
	return true, nil
}
