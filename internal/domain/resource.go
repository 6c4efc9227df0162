package domain

import "strings"

// ResourceRecord is a validated catalog entry. Records are immutable once loaded
// for a query cycle; the catalog repository replaces the whole snapshot on reload.
type ResourceRecord struct {
	ID          string
	Name        string
	NameKey     string // normalized join key for availability lookups
	Tags        []string
	Lat         *float64
	Lon         *float64
	Phone       string
	Address     string
	Hours       string
	Eligibility string
	Embedding   []float32 // optional precomputed semantic embedding
}

// HasCoordinates reports whether the record carries valid spatial coordinates.
// Records without them never enter distance computation or spatial results.
func (r ResourceRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// HasTag reports whether any canonical tag of the record is in the given set.
func (r ResourceRecord) HasTag(allowed map[string]struct{}) bool {
	for _, t := range r.Tags {
		if _, ok := allowed[t]; ok {
			return true
		}
	}
	return false
}

// NormalizeName produces the join key used between the catalog and the
// availability store: trimmed, lowercased. Name-based joins are fragile to
// typos; a stable identifier is a known follow-up, the normalize-and-match
// behavior is kept for compatibility with existing availability data.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
