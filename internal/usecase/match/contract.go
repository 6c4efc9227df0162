package match

import (
	"context"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/repository/audit"
	"github.com/BigDataForSanDiego/resourcelink/internal/usecase/classify"
)

// Catalog serves normalized resource records filtered by category.
type Catalog interface {
	FilterByCategory(ctx context.Context, category string) ([]domain.ResourceRecord, error)
}

// NeedResolver classifies free-text need statements.
type NeedResolver interface {
	Resolve(ctx context.Context, text string) classify.Resolution
}

// AvailabilityLookup joins live bed counts by normalized resource name.
type AvailabilityLookup interface {
	Lookup(ctx context.Context, nameKey string) (domain.AvailabilityRecord, bool)
}

// Geocoder resolves a ZIP code to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, zip string) (lat, lon float64, err error)
}

// QueryEmbedder vectorizes the need text for hybrid ranking.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (*domain.EmbeddingResult, error)
}

// Auditor records one event per completed match decision.
type Auditor interface {
	Append(ev audit.Event) error
}
