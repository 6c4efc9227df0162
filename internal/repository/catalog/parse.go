package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/geo"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/taxonomy"
)

// rawEntry mirrors the loosely-typed source format. The category field may be
// a string or a list; coordinates may be absent.
type rawEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    json.RawMessage `json:"category"`
	Lat         *float64        `json:"lat"`
	Lon         *float64        `json:"lon"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	Hours       string          `json:"hours"`
	Eligibility string          `json:"eligibility"`
	Embedding   []float32       `json:"embedding"`
}

// Dropped describes a source entry rejected at ingestion.
type Dropped struct {
	Index  int
	Reason string
}

// Parse converts the raw catalog JSON into validated ResourceRecords.
// Entries without a name are dropped; duplicate (name, address) pairs keep the
// first occurrence. Records with absent or out-of-range coordinates are kept
// but permanently excluded from spatial results via nil Lat/Lon.
func Parse(data []byte) ([]domain.ResourceRecord, []Dropped, error) {
	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}

	records := make([]domain.ResourceRecord, 0, len(raw))
	var dropped []Dropped
	seen := make(map[string]struct{}, len(raw))

	for i, e := range raw {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			dropped = append(dropped, Dropped{Index: i, Reason: "missing name"})
			continue
		}

		dedupeKey := strings.ToLower(name) + "|" + strings.ToLower(strings.TrimSpace(e.Address))
		if _, ok := seen[dedupeKey]; ok {
			dropped = append(dropped, Dropped{Index: i, Reason: "duplicate name+address"})
			continue
		}
		seen[dedupeKey] = struct{}{}

		tags, err := parseTags(e.Category)
		if err != nil {
			dropped = append(dropped, Dropped{Index: i, Reason: "bad category: " + err.Error()})
			continue
		}

		rec := domain.ResourceRecord{
			ID:          strings.TrimSpace(e.ID),
			Name:        name,
			NameKey:     domain.NormalizeName(name),
			Tags:        tags,
			Phone:       strings.TrimSpace(e.Phone),
			Address:     strings.TrimSpace(e.Address),
			Hours:       strings.TrimSpace(e.Hours),
			Eligibility: strings.TrimSpace(e.Eligibility),
			Embedding:   e.Embedding,
		}
		if rec.ID == "" {
			rec.ID = rec.NameKey
		}

		if e.Lat != nil && e.Lon != nil && geo.ValidateCoordinates(*e.Lat, *e.Lon) {
			rec.Lat, rec.Lon = e.Lat, e.Lon
		}

		records = append(records, rec)
	}

	return records, dropped, nil
}

// parseTags accepts a JSON string or list of strings and returns the
// canonicalized, deduplicated tag set in source order.
func parseTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("category is neither string nor list")
		}
		list = []string{single}
	}

	seen := make(map[string]struct{}, len(list))
	tags := make([]string, 0, len(list))
	for _, t := range list {
		canon := taxonomy.CanonicalTag(t)
		if canon == "" {
			continue
		}
		if _, ok := seen[canon]; ok {
			continue
		}
		seen[canon] = struct{}{}
		tags = append(tags, canon)
	}
	return tags, nil
}
