package availability

import (
	"context"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// Repository is the persistent availability store keyed by normalized name.
type Repository interface {
	Get(ctx context.Context, nameKey string) (domain.AvailabilityRecord, error)
	Put(ctx context.Context, nameKey string, rec domain.AvailabilityRecord) error
	Delete(ctx context.Context, nameKey string) error
	All(ctx context.Context) (map[string]domain.AvailabilityRecord, error)
}

// CacheInvalidator drops the read-side snapshot so the next match request
// observes the write immediately.
type CacheInvalidator interface {
	Invalidate()
}
