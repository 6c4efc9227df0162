package domain

// RankMode selects the ranking strategy for a match request.
type RankMode string

const (
	// RankDistance sorts ascending by distance with bed-count tie-breaks.
	RankDistance RankMode = "distance"
	// RankHybrid blends normalized distance with semantic similarity.
	RankHybrid RankMode = "hybrid"
)

// DefaultK is the result count when the caller does not request one.
const DefaultK = 5

// MaxK caps the caller-requested result count.
const MaxK = 50

// NeedQuery is a single match request. Transient, one per call.
type NeedQuery struct {
	Need      string
	Lat       *float64
	Lon       *float64
	Zip       string
	K         int
	SessionID string
	Mode      RankMode // empty means the deployment default
}

// Origin is a resolved request origin.
type Origin struct {
	Lat float64
	Lon float64
}

// RankedResource is a catalog record annotated for a response: distance from
// the origin, availability snapshot, and hybrid scores when applicable.
type RankedResource struct {
	ResourceRecord
	DistanceMiles float64 // full precision; rounded only at the transport boundary
	Availability  *AvailabilitySnapshot

	// Hybrid mode only.
	SimilarityScore *float64
	DistanceScore   *float64
	CombinedScore   *float64
}

// MatchResult is the outcome of a match request: either a resolved category
// with ranked results, or a needs-confirmation outcome carrying suggestions.
// The two are mutually exclusive.
type MatchResult struct {
	Category            string
	Results             []RankedResource
	NeedsConfirmation   bool
	SuggestedCategories []string
	SessionID           string
	RequestedK          int
	Origin              Origin
}
