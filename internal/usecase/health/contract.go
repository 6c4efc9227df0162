package health

import "context"

// StorePinger checks availability-store connectivity.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ClassifierChecker checks classification provider availability.
type ClassifierChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogChecker verifies the resource catalog is loadable.
type CatalogChecker interface {
	Load(ctx context.Context) error
}
