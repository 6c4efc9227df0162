package chi

import (
	"time"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/geo"
)

// Error codes returned in the error response body.
const (
	codeBadRequest            = "bad_request"
	codeInvalidLocation       = "invalid_location"
	codeValidationFailed      = "validation_failed"
	codeUnauthorized          = "unauthorized"
	codeNotFound              = "not_found"
	codeGeocodeFailed         = "geocode_failed"
	codeCatalogUnavailable    = "catalog_unavailable"
	codeClassifierUnavailable = "classifier_unavailable"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type matchRequest struct {
	Need      string   `json:"need"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	K         int      `json:"k,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Mode      string   `json:"mode,omitempty"`
}

type availabilityView struct {
	BedsTotal     int        `json:"beds_total"`
	BedsAvailable int        `json:"beds_available"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	Stale         bool       `json:"stale"`
	Notes         string     `json:"notes,omitempty"`
}

type resultItem struct {
	Name          string            `json:"name"`
	Tags          []string          `json:"category_tags,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Address       string            `json:"address,omitempty"`
	Hours         string            `json:"hours,omitempty"`
	Eligibility   string            `json:"eligibility,omitempty"`
	DistanceMiles float64           `json:"distance_miles"`
	Availability  *availabilityView `json:"availability,omitempty"`

	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	CombinedScore   *float64 `json:"combined_score,omitempty"`
}

type originView struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// matchResponse serves both outcomes: a resolved match carries category,
// results, and origin; the ambiguous outcome carries needs_confirmation and
// suggestions with no results key at all.
type matchResponse struct {
	Category            string        `json:"category,omitempty"`
	Results             *[]resultItem `json:"results,omitempty"`
	NeedsConfirmation   bool          `json:"needs_confirmation,omitempty"`
	SuggestedCategories []string      `json:"suggested_categories,omitempty"`
	SessionID           string        `json:"session_id"`
	RequestedK          int           `json:"requested_k"`
	Origin              *originView   `json:"origin,omitempty"`
}

type zipResponse struct {
	Zip string  `json:"zip"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type distanceResponse struct {
	DistanceMiles float64 `json:"distance_miles"`
}

type availabilityUpsertRequest struct {
	Name          string `json:"name"`
	BedsTotal     int    `json:"beds_total"`
	BedsAvailable int    `json:"beds_available"`
	TTLMinutes    int    `json:"ttl_minutes,omitempty"`
	Source        string `json:"source,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type availabilityUpsertResponse struct {
	Name string `json:"name"`
}

type availabilityItem struct {
	Name string `json:"name"`
	availabilityView
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func availabilityViewFrom(snap *domain.AvailabilitySnapshot) *availabilityView {
	if snap == nil {
		return nil
	}
	view := &availabilityView{
		BedsTotal:     snap.BedsTotal,
		BedsAvailable: snap.BedsAvailable,
		Stale:         snap.Stale,
		Notes:         snap.Notes,
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated
		view.LastUpdated = &t
	}
	return view
}

// resultItemFrom converts one ranked record. Distance is rounded to one
// decimal here and nowhere earlier; ranking runs on full precision.
func resultItemFrom(r domain.RankedResource) resultItem {
	return resultItem{
		Name:            r.Name,
		Tags:            r.Tags,
		Phone:           r.Phone,
		Address:         r.Address,
		Hours:           r.Hours,
		Eligibility:     r.Eligibility,
		DistanceMiles:   geo.RoundMiles(r.DistanceMiles),
		Availability:    availabilityViewFrom(r.Availability),
		SimilarityScore: r.SimilarityScore,
		CombinedScore:   r.CombinedScore,
	}
}

func matchResponseFrom(result *domain.MatchResult) matchResponse {
	resp := matchResponse{
		Category:            result.Category,
		NeedsConfirmation:   result.NeedsConfirmation,
		SuggestedCategories: result.SuggestedCategories,
		SessionID:           result.SessionID,
		RequestedK:          result.RequestedK,
	}
	if result.NeedsConfirmation {
		return resp
	}
	items := make([]resultItem, len(result.Results))
	for i, r := range result.Results {
		items[i] = resultItemFrom(r)
	}
	resp.Results = &items
	resp.Origin = &originView{Lat: result.Origin.Lat, Lon: result.Origin.Lon}
	return resp
}
