package domain

import (
	"strings"
	"time"
)

// Item is the catalog's record of a physical belonging. The loan core only
// ever writes the availability fields (Available, LastKerb, LastCheckout);
// the descriptive fields belong to whoever maintains the catalog.
type Item struct {
	Name         string
	Description  string
	Category     string
	Available    bool
	LastKerb     *string    // holder of the active loan, nil when available
	LastCheckout *time.Time // due date of the most recent loan, date precision
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key returns the canonical lookup key for an item name. Names are matched
// case-insensitively, so "Keyboard" and "keyboard" address the same item.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
