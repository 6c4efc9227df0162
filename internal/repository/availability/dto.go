package availability

import (
	"strconv"
	"time"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// recordToHash converts an AvailabilityRecord to a map for HSET.
func recordToHash(rec domain.AvailabilityRecord) map[string]string {
	return map[string]string{
		"beds_total":     strconv.Itoa(rec.BedsTotal),
		"beds_available": strconv.Itoa(rec.BedsAvailable),
		"last_updated":   rec.LastUpdated.UTC().Format(time.RFC3339),
		"ttl_minutes":    strconv.Itoa(rec.TTLMinutes),
		"source":         rec.Source,
		"source_url":     rec.SourceURL,
		"notes":          rec.Notes,
	}
}

// recordFromHash hydrates an AvailabilityRecord from an HGETALL result map.
// Unparseable numeric fields default to zero; an unparseable last_updated
// stays zero, which the domain treats as always stale.
func recordFromHash(m map[string]string) domain.AvailabilityRecord {
	rec := domain.AvailabilityRecord{
		Source:    m["source"],
		SourceURL: m["source_url"],
		Notes:     m["notes"],
	}
	if v, err := strconv.Atoi(m["beds_total"]); err == nil {
		rec.BedsTotal = v
	}
	if v, err := strconv.Atoi(m["beds_available"]); err == nil {
		rec.BedsAvailable = v
	}
	if v, err := strconv.Atoi(m["ttl_minutes"]); err == nil && v > 0 {
		rec.TTLMinutes = v
	} else {
		rec.TTLMinutes = domain.DefaultAvailabilityTTLMinutes
	}
	if ts, err := time.Parse(time.RFC3339, m["last_updated"]); err == nil {
		rec.LastUpdated = ts
	}
	return rec
}
