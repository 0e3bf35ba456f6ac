package port

import (
	"context"
	"time"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/core/domain"
)

// AvailabilityUpdate is the projection of a loan event onto a catalog row.
// Available and LastKerb are always written (a nil LastKerb clears the
// column); a nil LastCheckout leaves the stored due date untouched so it
// survives checkin as loan history.
type AvailabilityUpdate struct {
	Available    bool
	LastKerb     *string
	LastCheckout *time.Time
}

type Catalog interface {
	// Find returns the item whose name matches case-insensitively, or
	// (nil, nil) when the catalog has no such item
	Find(ctx context.Context, name string) (*domain.Item, error)

	// Update applies the availability fields to the item's row; the write
	// must be atomic per call
	Update(ctx context.Context, name string, upd AvailabilityUpdate) error

	// List returns every item in the catalog
	List(ctx context.Context) ([]domain.Item, error)
}
