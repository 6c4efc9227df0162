package availability

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
)

// snapshotSource is what the cache needs from the repository.
type snapshotSource interface {
	All(ctx context.Context) (map[string]domain.AvailabilityRecord, error)
}

// Cached serves whole-map availability snapshots from memory, refreshing from
// the backing store once the snapshot outlives the invalidation window. Reads
// may be served stale up to that window; writes must call Invalidate.
// The backing map is never exposed for mutation.
type Cached struct {
	source snapshotSource
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	snapshot  map[string]domain.AvailabilityRecord
	fetchedAt time.Time
}

// NewCached creates the read cache. ttl is the invalidation window.
func NewCached(source snapshotSource, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{source: source, ttl: ttl, logger: logger}
}

// Lookup returns the availability record for a normalized name from the
// current snapshot. The second return is false when no data exists for the
// name, which is distinct from a record reporting zero beds.
func (c *Cached) Lookup(ctx context.Context, nameKey string) (domain.AvailabilityRecord, bool) {
	snap := c.current(ctx)
	rec, ok := snap[nameKey]
	return rec, ok
}

// Invalidate drops the snapshot so the next read refreshes from the store.
// Called synchronously by the write path.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

// current returns the cached snapshot, refreshing it single-flight when
// missing or expired. A failed refresh serves the previous snapshot; with no
// previous snapshot the join degrades to "no data" for every resource.
func (c *Cached) current(ctx context.Context) map[string]domain.AvailabilityRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && time.Since(c.fetchedAt) <= c.ttl {
		metrics.AvailabilityCacheTotal.WithLabelValues("hit").Inc()
		return c.snapshot
	}

	metrics.AvailabilityCacheTotal.WithLabelValues("miss").Inc()
	snap, err := c.source.All(ctx)
	if err != nil {
		c.logger.Warn("Availability refresh failed", zap.Error(err))
		if c.snapshot != nil {
			return c.snapshot
		}
		return map[string]domain.AvailabilityRecord{}
	}

	c.snapshot = snap
	c.fetchedAt = time.Now()
	return c.snapshot
}
