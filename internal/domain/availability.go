package domain

import "time"

// DefaultAvailabilityTTLMinutes is applied when an upsert omits ttl_minutes.
const DefaultAvailabilityTTLMinutes = 120

// AvailabilityRecord is a live bed-count report keyed by normalized resource
// name. Absence of a record means "no data", which is distinct from a record
// reporting zero beds.
type AvailabilityRecord struct {
	BedsTotal     int
	BedsAvailable int
	LastUpdated   time.Time
	TTLMinutes    int
	Source        string
	SourceURL     string
	Notes         string
}

// Stale reports whether the record has outlived its TTL at the given instant.
// A record with no usable last_updated timestamp is always stale.
func (a AvailabilityRecord) Stale(now time.Time) bool {
	if a.LastUpdated.IsZero() {
		return true
	}
	ttl := a.TTLMinutes
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTLMinutes
	}
	return now.Sub(a.LastUpdated) > time.Duration(ttl)*time.Minute
}

// AvailabilitySnapshot is the per-result view of availability joined into a
// match response. Staleness is a flag; stale counts are still returned.
type AvailabilitySnapshot struct {
	BedsTotal     int
	BedsAvailable int
	LastUpdated   time.Time
	Stale         bool
	Notes         string
}
