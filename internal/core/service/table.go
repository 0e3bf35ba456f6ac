package service

import (
	"sync"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
)

// ReservationTable is the authoritative in-memory record of active loans,
// keyed by the case-insensitive item key. The catalog's availability flag is
// a projection of this table, never the other way around.
type ReservationTable struct {
	mu   sync.RWMutex
	held map[string]domain.Reservation
}

func NewReservationTable() *ReservationTable {
	return &ReservationTable{held: make(map[string]domain.Reservation)}
}

// Get returns the reservation for the item, if one exists.
func (t *ReservationTable) Get(name string) (domain.Reservation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res, ok := t.held[domain.Key(name)]
	return res, ok
}

// Put stores the reservation under its item key, replacing any previous entry.
func (t *ReservationTable) Put(res domain.Reservation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[domain.Key(res.Item)] = res
}

// Remove deletes the reservation for the item and returns what was removed.
func (t *ReservationTable) Remove(name string) (domain.Reservation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := domain.Key(name)
	res, ok := t.held[key]
	if ok {
		delete(t.held, key)
	}
	return res, ok
}

// Snapshot returns a copy of every active reservation. Callers iterate the
// copy without holding up writers.
func (t *ReservationTable) Snapshot() []domain.Reservation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(t.held))
	for _, res := range t.held {
		out = append(out, res)
	}
	return out
}

// Len returns the number of active reservations.
func (t *ReservationTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.held)
}
