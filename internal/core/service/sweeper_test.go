package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
)

// Mock NotificationSink
type sinkCall struct {
	kerb    string
	subject string
	body    string
}

type mockSink struct {
	mu       sync.Mutex
	calls    []sinkCall
	failKerb string
}

func (m *mockSink) Send(ctx context.Context, kerb, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sinkCall{kerb: kerb, subject: subject, body: body})
	if kerb == m.failKerb {
		return errors.New("relay refused message")
	}
	return nil
}

func (m *mockSink) sent() []sinkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sinkCall(nil), m.calls...)
}

// Mock ReminderLedger
type mockLedger struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{keys: make(map[string]bool)}
}

func (m *mockLedger) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func countOf(kerbs []string, kerb string) int {
	n := 0
	for _, k := range kerbs {
		if k == kerb {
			n++
		}
	}
	return n
}

func TestSweep_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Keyboard", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart})
	table.Put(domain.Reservation{Item: "Monitor", Kerb: "user2", Expiry: testStart.Add(time.Hour)})

	w := NewSweeper(table, &mockSink{}, WithSweeperClock(clock.Now))

	overdue := w.Sweep()
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue loans, got %d", len(overdue))
	}
	for _, res := range overdue {
		if res.Item == "Monitor" {
			t.Error("loan expiring in the future must not be swept")
		}
	}
}

func TestSweep_EmptyTable(t *testing.T) {
	clock := newFakeClock(testStart)
	w := NewSweeper(NewReservationTable(), &mockSink{}, WithSweeperClock(clock.Now))

	if got := w.Sweep(); len(got) != 0 {
		t.Errorf("expected no overdue loans, got %d", len(got))
	}
}

func TestNotifyOverdue_SingleReminder(t *testing.T) {
	catalog := newMockCatalog(availableItem("Laptop"))
	clock := newFakeClock(testStart)
	svc, table := newTestService(catalog, clock)
	sink := &mockSink{}
	w := NewSweeper(table, sink, WithSweeperClock(clock.Now))

	if err := svc.Checkout(context.Background(), "user1", "Laptop", 7*24*time.Hour); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// Nothing is due yet.
	kerbs, err := w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(kerbs) != 0 {
		t.Fatalf("expected no reminders before expiry, got %v", kerbs)
	}

	clock.Advance(8 * 24 * time.Hour)

	kerbs, err = w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(kerbs) != 1 || kerbs[0] != "user1" {
		t.Fatalf("expected [user1], got %v", kerbs)
	}

	calls := sink.sent()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", len(calls))
	}
	if calls[0].kerb != "user1" {
		t.Errorf("expected reminder to user1, got %s", calls[0].kerb)
	}
	if !strings.Contains(calls[0].subject, "Laptop") {
		t.Errorf("expected subject to name the item, got %q", calls[0].subject)
	}
	wantDue := testStart.Add(7 * 24 * time.Hour).Format("Monday, January 2, 2006")
	if !strings.Contains(calls[0].body, wantDue) {
		t.Errorf("expected body to quote due date %q, got %q", wantDue, calls[0].body)
	}

	// Notification never mutates loan state.
	if table.Len() != 1 {
		t.Error("expected loan still live after reminder")
	}
	if catalog.get(t, "Laptop").Available {
		t.Error("expected catalog row still unavailable")
	}
}

func TestNotifyOverdue_RepeatsWithoutCooldown(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	sink := &mockSink{}
	w := NewSweeper(table, sink, WithSweeperClock(clock.Now))

	for i := 0; i < 2; i++ {
		if _, err := w.NotifyOverdue(context.Background()); err != nil {
			t.Fatalf("notify %d failed: %v", i, err)
		}
	}

	if got := len(sink.sent()); got != 2 {
		t.Errorf("expected a reminder per sweep, got %d", got)
	}
}

func TestNotifyOverdue_MultipleItemsSameHolder(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Keyboard", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-2 * time.Hour)})
	sink := &mockSink{}
	w := NewSweeper(table, sink, WithSweeperClock(clock.Now))

	kerbs, err := w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	// One reminder per loan, so the same kerb appears twice.
	if countOf(kerbs, "user1") != 2 {
		t.Errorf("expected user1 twice, got %v", kerbs)
	}
	if got := len(sink.sent()); got != 2 {
		t.Errorf("expected 2 deliveries, got %d", got)
	}
}

func TestNotifyOverdue_ContinuesPastSinkFailure(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Keyboard", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user2", Expiry: testStart.Add(-time.Hour)})
	sink := &mockSink{failKerb: "user1"}
	w := NewSweeper(table, sink, WithSweeperClock(clock.Now))

	kerbs, err := w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if len(kerbs) != 1 || kerbs[0] != "user2" {
		t.Errorf("expected only user2 notified, got %v", kerbs)
	}
	// Both deliveries were attempted.
	if got := len(sink.sent()); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	// The failed loan stays live for the next sweep.
	if table.Len() != 2 {
		t.Errorf("expected both loans still live, got %d", table.Len())
	}
}

func TestNotifyOverdue_CooldownSuppressesRepeat(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	sink := &mockSink{}
	w := NewSweeper(table, sink,
		WithSweeperClock(clock.Now),
		WithReminderCooldown(newMockLedger(), time.Hour),
	)

	kerbs, err := w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("first notify failed: %v", err)
	}
	if len(kerbs) != 1 {
		t.Fatalf("expected first sweep to notify, got %v", kerbs)
	}

	kerbs, err = w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("second notify failed: %v", err)
	}
	if len(kerbs) != 0 {
		t.Errorf("expected cooldown to suppress repeat, got %v", kerbs)
	}
	if got := len(sink.sent()); got != 1 {
		t.Errorf("expected 1 delivery, got %d", got)
	}
}

func TestNotifyOverdue_LedgerFailureStillNotifies(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	sink := &mockSink{}
	ledger := newMockLedger()
	ledger.err = errors.New("ledger unreachable")
	w := NewSweeper(table, sink,
		WithSweeperClock(clock.Now),
		WithReminderCooldown(ledger, time.Hour),
	)

	kerbs, err := w.NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(kerbs) != 1 {
		t.Errorf("expected reminder despite dead ledger, got %v", kerbs)
	}
}

func TestNotifyOverdue_CancelledContext(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	w := NewSweeper(table, &mockSink{}, WithSweeperClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.NotifyOverdue(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestSweeper_Run(t *testing.T) {
	clock := newFakeClock(testStart)
	table := NewReservationTable()
	table.Put(domain.Reservation{Item: "Laptop", Kerb: "user1", Expiry: testStart.Add(-time.Hour)})
	sink := &mockSink{}
	w := NewSweeper(table, sink, WithSweeperClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	if len(sink.sent()) == 0 {
		t.Error("expected at least one reminder from the run loop")
	}
}
