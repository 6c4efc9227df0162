// Package match orchestrates a need-to-resource match: origin resolution,
// classification, catalog filtering, availability joins, ranking, and the
// audit trail.
package match

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/geo"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
	"github.com/BigDataForSanDiego/resourcelink/internal/repository/audit"
	"github.com/BigDataForSanDiego/resourcelink/internal/usecase/rank"
)

// Options are the deployment-level ranking knobs.
type Options struct {
	DefaultMode    domain.RankMode
	MaxRadiusMiles float64
	HybridWeight   float64
}

// Service executes match requests.
type Service struct {
	catalog  Catalog
	resolver NeedResolver
	avail    AvailabilityLookup
	geocoder Geocoder
	embedder QueryEmbedder
	auditor  Auditor
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a match service. embedder may be nil when hybrid mode is not
// deployed; auditor may be nil only in tests.
func New(
	catalog Catalog, resolver NeedResolver, avail AvailabilityLookup,
	geocoder Geocoder, embedder QueryEmbedder, auditor Auditor,
	opts Options, logger *zap.Logger,
) *Service {
	if opts.DefaultMode == "" {
		opts.DefaultMode = domain.RankDistance
	}
	if opts.MaxRadiusMiles <= 0 {
		opts.MaxRadiusMiles = 30
	}
	return &Service{
		catalog:  catalog,
		resolver: resolver,
		avail:    avail,
		geocoder: geocoder,
		embedder: embedder,
		auditor:  auditor,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Match runs the full pipeline for one request. Exactly one audit event is
// written per completed decision, needs-confirmation outcomes included;
// validation failures write none.
func (s *Service) Match(ctx context.Context, q domain.NeedQuery) (*domain.MatchResult, error) {
	// Empty need text is not an error: classification resolves it to the
	// needs-confirmation outcome with default suggestions.
	k := q.K
	if k <= 0 {
		k = domain.DefaultK
	}
	if k > domain.MaxK {
		k = domain.MaxK
	}

	origin, err := s.resolveOrigin(ctx, q)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	sessionID := q.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resolution := s.resolver.Resolve(ctx, q.Need)
	if resolution.Category == "" {
		result := &domain.MatchResult{
			NeedsConfirmation:   true,
			SuggestedCategories: resolution.Suggestions,
			SessionID:           sessionID,
			RequestedK:          k,
			Origin:              origin,
		}
		s.audit(sessionID, origin, q.Need, "", nil)
		metrics.MatchRequestsTotal.WithLabelValues("needs_confirmation").Inc()
		return result, nil
	}

	records, err := s.catalog.FilterByCategory(ctx, resolution.Category)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("filter catalog: %w", err)
	}

	candidates := s.annotate(ctx, records, origin)

	mode := q.Mode
	if mode == "" {
		mode = s.opts.DefaultMode
	}
	switch mode {
	case domain.RankHybrid:
		candidates = rank.Hybrid(candidates, s.queryVector(ctx, q.Need), s.opts.MaxRadiusMiles, s.opts.HybridWeight)
	default:
		rank.DistanceFirst(candidates)
	}
	results := rank.Truncate(candidates, k)

	s.audit(sessionID, origin, q.Need, resolution.Category, results)
	metrics.MatchRequestsTotal.WithLabelValues("ok").Inc()

	return &domain.MatchResult{
		Category:   resolution.Category,
		Results:    results,
		SessionID:  sessionID,
		RequestedK: k,
		Origin:     origin,
	}, nil
}

func (s *Service) resolveOrigin(ctx context.Context, q domain.NeedQuery) (domain.Origin, error) {
	switch {
	case q.Lat != nil && q.Lon != nil:
		if !geo.ValidateCoordinates(*q.Lat, *q.Lon) {
			return domain.Origin{}, fmt.Errorf("coordinates (%f, %f) out of range: %w",
				*q.Lat, *q.Lon, domain.ErrInvalidLocation)
		}
		return domain.Origin{Lat: *q.Lat, Lon: *q.Lon}, nil
	case q.Zip != "":
		lat, lon, err := s.geocoder.Resolve(ctx, q.Zip)
		if err != nil {
			// The caller supplied a zip that cannot be resolved; a terminal
			// client error, never a gateway failure.
			return domain.Origin{}, fmt.Errorf("resolve zip %q: %v: %w", q.Zip, err, domain.ErrInvalidLocation)
		}
		return domain.Origin{Lat: lat, Lon: lon}, nil
	default:
		return domain.Origin{}, fmt.Errorf("either coordinates or zip is required: %w", domain.ErrInvalidLocation)
	}
}

// annotate computes distances and joins availability. Records without usable
// coordinates cannot be ranked spatially and are dropped here.
func (s *Service) annotate(ctx context.Context, records []domain.ResourceRecord, origin domain.Origin) []domain.RankedResource {
	now := s.now()
	out := make([]domain.RankedResource, 0, len(records))
	for _, rec := range records {
		if !rec.HasCoordinates() {
			continue
		}
		ranked := domain.RankedResource{
			ResourceRecord: rec,
			DistanceMiles:  geo.Haversine(origin.Lat, origin.Lon, *rec.Lat, *rec.Lon),
		}
		if avail, ok := s.avail.Lookup(ctx, rec.NameKey); ok {
			ranked.Availability = &domain.AvailabilitySnapshot{
				BedsTotal:     avail.BedsTotal,
				BedsAvailable: avail.BedsAvailable,
				LastUpdated:   avail.LastUpdated,
				Stale:         avail.Stale(now),
				Notes:         avail.Notes,
			}
		}
		out = append(out, ranked)
	}
	return out
}

// queryVector embeds the need text for hybrid scoring. On any failure hybrid
// degrades to pure distance scoring instead of failing the request.
func (s *Service) queryVector(ctx context.Context, need string) []float32 {
	if s.embedder == nil {
		return nil
	}
	result, err := s.embedder.Embed(ctx, need)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		if s.logger != nil {
			s.logger.Warn("query embedding failed, hybrid degrades to distance", zap.Error(err))
		}
		return nil
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues("ok").Inc()
	return result.Embedding
}

// auditResult is the compact per-result line recorded in the audit trail.
type auditResult struct {
	Name          string  `json:"name"`
	DistanceMiles float64 `json:"distance_miles"`
}

// audit writes one event. Origin is rounded to 5 decimals (about 1 meter) and
// the need text truncated to 120 runes; the trail is for operational review,
// not precise location history.
func (s *Service) audit(sessionID string, origin domain.Origin, need, category string, results []domain.RankedResource) {
	if s.auditor == nil {
		return
	}

	lines := make([]auditResult, len(results))
	for i, r := range results {
		lines[i] = auditResult{Name: r.NameKey, DistanceMiles: geo.RoundMiles(r.DistanceMiles)}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		raw = []byte("[]")
	}

	ev := audit.Event{
		Timestamp: s.now().UTC(),
		SessionID: sessionID,
		Lat:       roundCoord(origin.Lat),
		Lon:       roundCoord(origin.Lon),
		NeedRaw:   truncateRunes(need, 120),
		Category:  category,
		Returned:  len(results),
		Results:   raw,
	}
	if err := s.auditor.Append(ev); err != nil && s.logger != nil {
		s.logger.Warn("audit append failed", zap.Error(err))
	}
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
