// Package availability implements the admin write path for live bed counts.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// UpsertInput is one admin availability report.
type UpsertInput struct {
	Name          string
	BedsTotal     int
	BedsAvailable int
	TTLMinutes    int
	Source        string
	SourceURL     string
	Notes         string
}

// Service serializes availability writes. A single writer mutex keeps
// concurrent admin upserts for the same resource from interleaving the
// hash-field writes of the backing store.
type Service struct {
	repo       Repository
	cache      CacheInvalidator
	defaultTTL int
	now        func() time.Time

	mu sync.Mutex
}

// New creates the admin availability service. defaultTTLMinutes is applied
// to upserts that omit ttl_minutes; zero or negative falls back to the
// domain default.
func New(repo Repository, cache CacheInvalidator, defaultTTLMinutes int) *Service {
	if defaultTTLMinutes <= 0 {
		defaultTTLMinutes = domain.DefaultAvailabilityTTLMinutes
	}
	return &Service{repo: repo, cache: cache, defaultTTL: defaultTTLMinutes, now: time.Now}
}

// Upsert validates and stores one report. LastUpdated is always set server
// side in UTC; callers cannot backdate a report to dodge staleness. Returns
// the normalized name key the record was stored under.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (string, error) {
	nameKey := domain.NormalizeName(in.Name)
	if nameKey == "" {
		return "", fmt.Errorf("name is required: %w", domain.ErrInvalidRequest)
	}
	if in.BedsTotal < 0 || in.BedsAvailable < 0 {
		return "", fmt.Errorf("bed counts must be non-negative: %w", domain.ErrInvalidRequest)
	}
	if in.BedsAvailable > in.BedsTotal && in.BedsTotal > 0 {
		return "", fmt.Errorf("beds_available %d exceeds beds_total %d: %w",
			in.BedsAvailable, in.BedsTotal, domain.ErrInvalidRequest)
	}
	ttl := in.TTLMinutes
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	rec := domain.AvailabilityRecord{
		BedsTotal:     in.BedsTotal,
		BedsAvailable: in.BedsAvailable,
		LastUpdated:   s.now().UTC(),
		TTLMinutes:    ttl,
		Source:        in.Source,
		SourceURL:     in.SourceURL,
		Notes:         in.Notes,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Put(ctx, nameKey, rec); err != nil {
		return "", fmt.Errorf("store availability: %w", err)
	}
	s.cache.Invalidate()
	return nameKey, nil
}

// Delete removes a report by resource name.
func (s *Service) Delete(ctx context.Context, name string) error {
	nameKey := domain.NormalizeName(name)
	if nameKey == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, nameKey); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// List returns all stored reports with staleness evaluated at call time.
func (s *Service) List(ctx context.Context) (map[string]domain.AvailabilitySnapshot, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	now := s.now()
	out := make(map[string]domain.AvailabilitySnapshot, len(records))
	for nameKey, rec := range records {
		out[nameKey] = domain.AvailabilitySnapshot{
			BedsTotal:     rec.BedsTotal,
			BedsAvailable: rec.BedsAvailable,
			LastUpdated:   rec.LastUpdated,
			Stale:         rec.Stale(now),
			Notes:         rec.Notes,
		}
	}
	return out, nil
}
