// Package rank orders annotated catalog records for a response. Both
// strategies are deterministic: equal keys always resolve on the stable
// NameKey so repeated identical requests return identical orderings.
package rank

import (
	"math"
	"sort"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// bedCount extracts the tie-break bed count. Resources with no availability
// record rank worst, below an explicit zero.
func bedCount(r *domain.RankedResource) int {
	if r.Availability == nil {
		return -1
	}
	return r.Availability.BedsAvailable
}

// DistanceFirst sorts ascending by distance. Ties break on descending beds
// available, then ascending NameKey.
func DistanceFirst(items []domain.RankedResource) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		if ba, bb := bedCount(a), bedCount(b); ba != bb {
			return ba > bb
		}
		return a.NameKey < b.NameKey
	})
}

// Hybrid drops records beyond maxRadiusMiles, scores the rest, and sorts
// descending by combined score. The radius filter is a hard gate applied
// before scoring; a high-similarity record outside it never appears.
//
//	distance_score = 1 - distance/maxRadius
//	combined       = weight*similarity + (1-weight)*distance_score
//
// Records without an embedding score zero similarity rather than being
// excluded.
func Hybrid(items []domain.RankedResource, query []float32, maxRadiusMiles, weight float64) []domain.RankedResource {
	kept := items[:0]
	for i := range items {
		if items[i].DistanceMiles > maxRadiusMiles {
			continue
		}
		r := items[i]
		sim := 0.0
		if len(r.Embedding) > 0 && len(query) > 0 {
			sim = Cosine(query, r.Embedding)
		}
		dist := 1 - r.DistanceMiles/maxRadiusMiles
		combined := weight*sim + (1-weight)*dist

		r.SimilarityScore = &sim
		r.DistanceScore = &dist
		r.CombinedScore = &combined
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := &kept[i], &kept[j]
		if *a.CombinedScore != *b.CombinedScore {
			return *a.CombinedScore > *b.CombinedScore
		}
		return a.NameKey < b.NameKey
	})
	return kept
}

// Truncate caps a fully ranked list at k. Ranking always runs over the whole
// candidate set first so truncation never changes relative order.
func Truncate(items []domain.RankedResource, k int) []domain.RankedResource {
	if k > 0 && len(items) > k {
		return items[:k]
	}
	return items
}

// Cosine returns the cosine similarity of two vectors, or 0 when dimensions
// differ or either vector has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
