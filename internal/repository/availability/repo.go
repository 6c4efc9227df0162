// Package availability stores live bed-count reports keyed by normalized
// resource name, with a short-lived read cache in front of the backing store.
package availability

import (
	"context"
	"fmt"
	"strings"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// store is the consumer interface for the availability repository (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo persists availability records as one hash per resource under
// <prefix>avail:<namekey>.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates an availability repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) key(nameKey string) string {
	return r.keyPrefix + "avail:" + nameKey
}

func (r *Repo) nameKeyFromStoreKey(storeKey string) string {
	return strings.TrimPrefix(storeKey, r.keyPrefix+"avail:")
}

// Get returns the record for a normalized name, or ErrResourceNotFound.
func (r *Repo) Get(ctx context.Context, nameKey string) (domain.AvailabilityRecord, error) {
	exists, err := r.store.Exists(ctx, r.key(nameKey))
	if err != nil {
		return domain.AvailabilityRecord{}, fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.AvailabilityRecord{}, domain.ErrResourceNotFound
	}

	m, err := r.store.HGetAll(ctx, r.key(nameKey))
	if err != nil {
		return domain.AvailabilityRecord{}, fmt.Errorf("get availability: %w", err)
	}
	return recordFromHash(m), nil
}

// Put stores the record for a normalized name, replacing any previous entry.
func (r *Repo) Put(ctx context.Context, nameKey string, rec domain.AvailabilityRecord) error {
	if err := r.store.HSet(ctx, r.key(nameKey), recordToHash(rec)); err != nil {
		return fmt.Errorf("put availability: %w", err)
	}
	return nil
}

// Delete removes the record for a normalized name. Deleting a missing record
// returns ErrResourceNotFound so the caller can report it.
func (r *Repo) Delete(ctx context.Context, nameKey string) error {
	exists, err := r.store.Exists(ctx, r.key(nameKey))
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrResourceNotFound
	}
	if err := r.store.Del(ctx, r.key(nameKey)); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// All returns every stored record keyed by normalized name.
func (r *Repo) All(ctx context.Context) (map[string]domain.AvailabilityRecord, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"avail:*")
	if err != nil {
		return nil, fmt.Errorf("scan availability keys: %w", err)
	}
	if len(keys) == 0 {
		return map[string]domain.AvailabilityRecord{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch availability records: %w", err)
	}

	out := make(map[string]domain.AvailabilityRecord, len(keys))
	for i, m := range hashes {
		if len(m) == 0 {
			continue // key expired between SCAN and HGETALL
		}
		out[r.nameKeyFromStoreKey(keys[i])] = recordFromHash(m)
	}
	return out, nil
}
