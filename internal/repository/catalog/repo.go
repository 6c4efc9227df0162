// Package catalog loads and normalizes the resource catalog from its external
// source. Records are validated into strict domain structs at ingestion;
// malformed entries never reach query time.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/taxonomy"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
)

// Repo serves immutable catalog snapshots, reloading from the source file
// when the current snapshot outlives the reload interval. Reload is lazy and
// single-flight; there is no background worker.
type Repo struct {
	path           string
	reloadInterval time.Duration
	logger         *zap.Logger

	mu       sync.Mutex
	records  []domain.ResourceRecord
	loadedAt time.Time
}

// New creates a catalog repository. The first Snapshot call performs the
// initial load; use Load at startup to fail fast on a broken source.
func New(path string, reloadInterval time.Duration, logger *zap.Logger) *Repo {
	return &Repo{
		path:           path,
		reloadInterval: reloadInterval,
		logger:         logger,
	}
}

// Load forces a reload from the source file.
func (r *Repo) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ctx)
}

// Snapshot returns the current immutable record slice, reloading first when
// the snapshot is older than the reload interval. Callers must not mutate the
// returned slice. A failed reload keeps serving the previous snapshot.
func (r *Repo) Snapshot(ctx context.Context) ([]domain.ResourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records == nil {
		if err := r.loadLocked(ctx); err != nil {
			return nil, err
		}
	} else if time.Since(r.loadedAt) > r.reloadInterval {
		if err := r.loadLocked(ctx); err != nil {
			r.logger.Warn("Catalog reload failed, serving previous snapshot",
				zap.String("path", r.path), zap.Error(err))
			r.loadedAt = time.Now() // back off until the next interval
		}
	}

	return r.records, nil
}

// FilterByCategory returns candidates whose canonical tag set intersects the
// expanded tag set for the category. When the expansion matches nothing the
// candidate set degenerates to the whole catalog; the broadening is counted
// and logged but is not an error.
func (r *Repo) FilterByCategory(ctx context.Context, category string) ([]domain.ResourceRecord, error) {
	records, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	allowed := taxonomy.ExpandedTags(category)
	var matching []domain.ResourceRecord
	for _, rec := range records {
		if rec.HasTag(allowed) {
			matching = append(matching, rec)
		}
	}

	if len(matching) == 0 {
		metrics.CatalogFallbackTotal.Inc()
		r.logger.Warn("Tag expansion matched no resources, falling back to full catalog",
			zap.String("category", category), zap.Int("catalog_size", len(records)))
		return records, nil
	}

	return matching, nil
}

func (r *Repo) loadLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w: %w", r.path, err, domain.ErrCatalogUnavailable)
	}

	records, dropped, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse catalog %s: %w: %w", r.path, err, domain.ErrCatalogUnavailable)
	}

	for _, d := range dropped {
		r.logger.Warn("Dropped malformed catalog entry",
			zap.Int("index", d.Index), zap.String("reason", d.Reason))
	}

	r.records = records
	r.loadedAt = time.Now()
	r.logger.Info("Catalog loaded",
		zap.String("path", r.path),
		zap.Int("records", len(records)),
		zap.Int("dropped", len(dropped)))
	return nil
}
