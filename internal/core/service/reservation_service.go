package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

var (
	ErrItemNotFound    = errors.New("item not found in catalog")
	ErrNotEligible     = errors.New("kerb is not eligible to check out items")
	ErrAlreadyReserved = errors.New("item is already checked out")
	ErrNotReserved     = errors.New("item is not currently checked out")
	ErrInvalidPeriod   = errors.New("loan period must be positive")
)

// DefaultLoanPeriod applies when a checkout does not name a period.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// ReservationService runs the checkout and checkin state machine over a
// shared ReservationTable, projecting every change onto the catalog.
type ReservationService struct {
	table   *ReservationTable
	catalog port.Catalog
	roster  port.Roster

	events     port.EventPublisher
	logger     port.Logger
	now        func() time.Time
	loanPeriod time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*ReservationService)

// WithLoanPeriod overrides the default period applied to checkouts that do
// not name one.
func WithLoanPeriod(d time.Duration) Option {
	return func(s *ReservationService) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

// WithLogger attaches a structured logger. Without one the service is silent.
func WithLogger(l port.Logger) Option {
	return func(s *ReservationService) { s.logger = l }
}

// WithEventPublisher attaches the event bus. Without one no events are
// published.
func WithEventPublisher(p port.EventPublisher) Option {
	return func(s *ReservationService) { s.events = p }
}

func NewReservationService(table *ReservationTable, catalog port.Catalog, roster port.Roster, opts ...Option) *ReservationService {
	s := &ReservationService{
		table:      table,
		catalog:    catalog,
		roster:     roster,
		now:        time.Now,
		loanPeriod: DefaultLoanPeriod,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout places a loan on the named item for kerb. A zero period uses the
// configured default. On success the reservation table and the catalog row
// change together; on any failure neither change survives.
func (s *ReservationService) Checkout(ctx context.Context, kerb, itemName string, period time.Duration) error {
	if period == 0 {
		period = s.loanPeriod
	}
	if period < 0 {
		return ErrInvalidPeriod
	}

	eligible, err := s.roster.IsEligible(ctx, kerb)
	if err != nil {
		return fmt.Errorf("eligibility check failed: %w", err)
	}
	if !eligible {
		return ErrNotEligible
	}

	item, err := s.catalog.Find(ctx, itemName)
	if err != nil {
		return fmt.Errorf("catalog lookup failed: %w", err)
	}
	if item == nil {
		return ErrItemNotFound
	}

	// Collaborator I/O stays outside the critical section; only the paired
	// table+catalog write happens inside it.
	unlock := s.lockItem(itemName)
	defer unlock()

	if !item.Available {
		return ErrAlreadyReserved
	}
	prev, held := s.table.Get(itemName)
	if held && !prev.Expired(s.now()) {
		return ErrAlreadyReserved
	}

	now := s.now()
	res := domain.Reservation{
		ID:           uuid.NewString(),
		Item:         item.Name,
		Kerb:         kerb,
		CheckedOutAt: now,
		Expiry:       now.Add(period),
	}
	due := res.DueDate()

	s.table.Put(res)
	upd := port.AvailabilityUpdate{Available: false, LastKerb: &kerb, LastCheckout: &due}
	if err := s.catalog.Update(ctx, itemName, upd); err != nil {
		// Roll the table back so the failed checkout leaves no trace.
		if held {
			s.table.Put(prev)
		} else {
			s.table.Remove(itemName)
		}
		return fmt.Errorf("catalog update failed: %w", err)
	}

	s.logInfo("item checked out", "item", item.Name, "kerb", kerb, "expiry", res.Expiry)
	s.publish(ctx, event.TypeItemCheckedOut, domain.Key(item.Name), event.CheckoutPayload{
		ReservationID: res.ID,
		Item:          res.Item,
		Kerb:          res.Kerb,
		Expiry:        res.Expiry,
	})
	return nil
}

// Checkin ends the loan on the named item. The holder is cleared from the
// catalog row but the recorded due date stays behind as loan history.
func (s *ReservationService) Checkin(ctx context.Context, itemName string) error {
	item, err := s.catalog.Find(ctx, itemName)
	if err != nil {
		return fmt.Errorf("catalog lookup failed: %w", err)
	}
	if item == nil {
		return ErrItemNotFound
	}

	unlock := s.lockItem(itemName)
	defer unlock()

	res, ok := s.table.Remove(itemName)
	if !ok {
		return ErrNotReserved
	}

	upd := port.AvailabilityUpdate{Available: true, LastKerb: nil, LastCheckout: nil}
	if err := s.catalog.Update(ctx, itemName, upd); err != nil {
		s.table.Put(res)
		return fmt.Errorf("catalog update failed: %w", err)
	}

	s.logInfo("item checked in", "item", item.Name, "kerb", res.Kerb)
	s.publish(ctx, event.TypeItemCheckedIn, domain.Key(item.Name), event.CheckinPayload{
		Item: item.Name,
		Kerb: res.Kerb,
	})
	return nil
}

// RestoreFromCatalog rebuilds the reservation table from the persisted
// availability projection, returning how many loans were restored. The
// projection keeps the due date but not the expiry instant, so restored
// loans expire at the end of their due date. Run this before the service
// starts taking requests.
func (s *ReservationService) RestoreFromCatalog(ctx context.Context) (int, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog list failed: %w", err)
	}

	restored := 0
	for _, it := range items {
		if it.Available {
			continue
		}
		if it.LastKerb == nil || *it.LastKerb == "" {
			s.logWarn("held item has no recorded holder, skipping restore", "item", it.Name)
			continue
		}
		due := s.now()
		if it.LastCheckout != nil {
			due = *it.LastCheckout
		}
		s.table.Put(domain.Reservation{
			ID:     uuid.NewString(),
			Item:   it.Name,
			Kerb:   *it.LastKerb,
			Expiry: endOfDay(due),
		})
		restored++
	}
	if restored > 0 {
		s.logInfo("restored loans from catalog", "count", restored)
	}
	return restored, nil
}

// Items returns every catalog record.
func (s *ReservationService) Items(ctx context.Context) ([]domain.Item, error) {
	return s.catalog.List(ctx)
}

// Item returns one catalog record, or ErrItemNotFound.
func (s *ReservationService) Item(ctx context.Context, name string) (*domain.Item, error) {
	item, err := s.catalog.Find(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// Reservations returns a copy of the active loans.
func (s *ReservationService) Reservations() []domain.Reservation {
	return s.table.Snapshot()
}

// lockItem enters the item's critical section and returns the leave func.
// Lock entries are never removed; the map is bounded by the number of
// distinct items ever touched.
func (s *ReservationService) lockItem(name string) func() {
	key := domain.Key(name)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *ReservationService) publish(ctx context.Context, eventType, correlationID string, payload any) {
	if s.events == nil {
		return
	}
	env, err := event.New(eventType, correlationID, payload)
	if err != nil {
		s.logError("event build failed", "type", eventType, "error", err.Error())
		return
	}
	if err := s.events.Publish(ctx, env); err != nil {
		s.logWarn("event publish failed", "type", eventType, "error", err.Error())
	}
}

func (s *ReservationService) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *ReservationService) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *ReservationService) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
