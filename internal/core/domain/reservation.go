package domain

import "time"

// Reservation records an active loan: who holds an item and when the loan
// expires. At most one reservation exists per item key at any time.
type Reservation struct {
	ID           string
	Item         string // item name as it appears in the catalog
	Kerb         string
	CheckedOutAt time.Time
	Expiry       time.Time
}

// Expired reports whether the loan is due at the given instant. A loan whose
// expiry equals the instant exactly counts as expired.
func (r Reservation) Expired(now time.Time) bool {
	return !r.Expiry.After(now)
}

// DueDate returns the expiry truncated to its date, which is the precision
// the catalog persists and the precision reminders quote.
func (r Reservation) DueDate() time.Time {
	y, m, d := r.Expiry.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.Expiry.Location())
}
