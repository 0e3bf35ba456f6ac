package service

import (
	"context"
	"fmt"
	"time"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

// Sweeper scans the reservation table for loans past expiry and reminds the
// holders through a NotificationSink. It never mutates the table or the
// catalog: overdue loans stay live until someone checks the item in.
type Sweeper struct {
	table *ReservationTable
	sink  port.NotificationSink

	ledger   port.ReminderLedger
	cooldown time.Duration
	events   port.EventPublisher
	logger   port.Logger
	now      func() time.Time
}

type SweeperOption func(*Sweeper)

// WithReminderCooldown suppresses repeat reminders for the same loan inside
// the window. With no ledger, or a zero window, every sweep re-notifies.
func WithReminderCooldown(ledger port.ReminderLedger, window time.Duration) SweeperOption {
	return func(w *Sweeper) {
		w.ledger = ledger
		w.cooldown = window
	}
}

// WithSweeperClock replaces the wall clock, for tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(w *Sweeper) { w.now = now }
}

// WithSweeperLogger attaches a structured logger.
func WithSweeperLogger(l port.Logger) SweeperOption {
	return func(w *Sweeper) { w.logger = l }
}

// WithSweeperEvents attaches the event bus for overdue events.
func WithSweeperEvents(p port.EventPublisher) SweeperOption {
	return func(w *Sweeper) { w.events = p }
}

func NewSweeper(table *ReservationTable, sink port.NotificationSink, opts ...SweeperOption) *Sweeper {
	w := &Sweeper{
		table: table,
		sink:  sink,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sweep returns the loans whose expiry is at or before now. The table is
// snapshotted once; no lock is held while callers process the result.
func (w *Sweeper) Sweep() []domain.Reservation {
	now := w.now()
	var overdue []domain.Reservation
	for _, res := range w.table.Snapshot() {
		if res.Expired(now) {
			overdue = append(overdue, res)
		}
	}
	return overdue
}

// NotifyOverdue sends one reminder per overdue loan and returns the kerbs
// that were reminded, repeats included when one kerb holds several overdue
// items. A failed delivery is logged and skipped; it never stops the rest of
// the batch.
func (w *Sweeper) NotifyOverdue(ctx context.Context) ([]string, error) {
	overdue := w.Sweep()
	notified := make([]string, 0, len(overdue))
	for _, res := range overdue {
		if err := ctx.Err(); err != nil {
			return notified, err
		}
		if w.cooldown > 0 && w.ledger != nil {
			fresh, err := w.ledger.Reserve(ctx, reminderKey(res), w.cooldown)
			if err != nil {
				// A dead ledger must not silence reminders; worst case the
				// holder hears from us twice.
				w.logWarn("reminder ledger unavailable", "item", res.Item, "error", err.Error())
			} else if !fresh {
				continue
			}
		}

		subject, body := reminderMessage(res)
		if err := w.sink.Send(ctx, res.Kerb, subject, body); err != nil {
			w.logWarn("reminder delivery failed", "item", res.Item, "kerb", res.Kerb, "error", err.Error())
			continue
		}
		notified = append(notified, res.Kerb)

		w.publish(ctx, event.TypeItemOverdue, domain.Key(res.Item), event.OverduePayload{
			Item:    res.Item,
			Kerb:    res.Kerb,
			DueDate: res.DueDate().Format(time.DateOnly),
		})
	}
	return notified, nil
}

// Run sweeps on the given interval until ctx is done. Launch it as a
// goroutine from the entrypoint.
func (w *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kerbs, err := w.NotifyOverdue(ctx)
			if err != nil {
				w.logError("overdue sweep failed", "error", err.Error())
				continue
			}
			if len(kerbs) > 0 {
				w.logInfo("overdue reminders sent", "count", len(kerbs))
			}
		}
	}
}

func (w *Sweeper) publish(ctx context.Context, eventType, correlationID string, payload any) {
	if w.events == nil {
		return
	}
	env, err := event.New(eventType, correlationID, payload)
	if err != nil {
		w.logError("event build failed", "type", eventType, "error", err.Error())
		return
	}
	if err := w.events.Publish(ctx, env); err != nil {
		w.logWarn("event publish failed", "type", eventType, "error", err.Error())
	}
}

func (w *Sweeper) logInfo(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Info(msg, args...)
	}
}

func (w *Sweeper) logWarn(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Warn(msg, args...)
	}
}

func (w *Sweeper) logError(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Error(msg, args...)
	}
}

// reminderKey identifies one loan's reminder for cooldown purposes. A new
// holder or a new due date makes a new key, so a fresh loan is never muted
// by the previous one's cooldown.
func reminderKey(res domain.Reservation) string {
	return fmt.Sprintf("reminder:%s:%s:%s", domain.Key(res.Item), res.Kerb, res.DueDate().Format(time.DateOnly))
}

func reminderMessage(res domain.Reservation) (subject, body string) {
	due := res.DueDate().Format("Monday, January 2, 2006")
	subject = fmt.Sprintf("[Baker Belongings] %s is overdue", res.Item)
	body = fmt.Sprintf(
		"Hi %s,\n\nOur records show %s was due back on %s. Please return it to the front desk, or check it out again if you still need it.\n\nBaker House",
		res.Kerb, res.Item, due,
	)
	return subject, body
}
