package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
	"github.com/BigDataForSanDiego/resourcelink/internal/domain/geo"
	availuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/availability"
	healthuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/health"
	matchuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/match"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Geocoder resolves a ZIP code to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, zip string) (lat, lon float64, err error)
}

// Server exposes the matching engine over HTTP.
type Server struct {
	match         *matchuc.Service
	availability  *availuc.Service
	health        *healthuc.Service
	geocoder      Geocoder
	adminToken    string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. adminToken guards the availability
// write endpoints; an empty token disables them entirely rather than opening
// them up.
func NewServer(
	match *matchuc.Service,
	availability *availuc.Service,
	health *healthuc.Service,
	geocoder Geocoder,
	adminToken string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		match:        match,
		availability: availability,
		health:       health,
		geocoder:     geocoder,
		adminToken:   adminToken,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidLocation, http.StatusBadRequest, codeInvalidLocation),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrResourceNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrGeocodeFailed, http.StatusBadGateway, codeGeocodeFailed),
		sentinelHandler(domain.ErrClassifierUnavailable, http.StatusBadGateway, codeClassifierUnavailable),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, codeCatalogUnavailable),
	}
	return s
}

// Routes mounts all endpoints on a router.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Post("/match", s.Match)
	r.Get("/zip/{zip}", s.ResolveZip)
	r.Get("/distance", s.Distance)
	r.Get("/availability", s.ListAvailability)

	r.Group(func(admin chirouter.Router) {
		admin.Use(BearerAuthMiddleware(s.adminToken))
		admin.Post("/availability", s.UpsertAvailability)
		admin.Delete("/availability/{name}", s.DeleteAvailability)
	})
}

// Match handles POST /match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Mode != "" && req.Mode != string(domain.RankDistance) && req.Mode != string(domain.RankHybrid) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "mode must be \"distance\" or \"hybrid\"")
		return
	}

	result, err := s.match.Match(r.Context(), domain.NeedQuery{
		Need:      req.Need,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Zip:       req.Zip,
		K:         req.K,
		SessionID: req.SessionID,
		Mode:      domain.RankMode(req.Mode),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchResponseFrom(result))
}

// ResolveZip handles GET /zip/{zip}.
func (s *Server) ResolveZip(w http.ResponseWriter, r *http.Request) {
	zip := chirouter.URLParam(r, "zip")
	lat, lon, err := s.geocoder.Resolve(r.Context(), zip)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zipResponse{Zip: zip, Lat: lat, Lon: lon})
}

// Distance handles GET /distance.
func (s *Server) Distance(w http.ResponseWriter, r *http.Request) {
	coords := make([]float64, 4)
	for i, name := range []string{"lat1", "lon1", "lat2", "lon2"} {
		v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, name+" must be a number")
			return
		}
		coords[i] = v
	}
	if !geo.ValidateCoordinates(coords[0], coords[1]) || !geo.ValidateCoordinates(coords[2], coords[3]) {
		writeError(w, http.StatusBadRequest, codeInvalidLocation, "coordinates out of range")
		return
	}

	miles := geo.Haversine(coords[0], coords[1], coords[2], coords[3])
	writeJSON(w, http.StatusOK, distanceResponse{DistanceMiles: geo.RoundMiles(miles)})
}

// ListAvailability handles GET /availability.
func (s *Server) ListAvailability(w http.ResponseWriter, r *http.Request) {
	records, err := s.availability.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]availabilityItem, 0, len(records))
	for name, snap := range records {
		items = append(items, availabilityItem{
			Name:             name,
			availabilityView: *availabilityViewFrom(&snap),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	writeJSON(w, http.StatusOK, items)
}

// UpsertAvailability handles POST /availability.
func (s *Server) UpsertAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	nameKey, err := s.availability.Upsert(r.Context(), availuc.UpsertInput{
		Name:          req.Name,
		BedsTotal:     req.BedsTotal,
		BedsAvailable: req.BedsAvailable,
		TTLMinutes:    req.TTLMinutes,
		Source:        req.Source,
		SourceURL:     req.SourceURL,
		Notes:         req.Notes,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, availabilityUpsertResponse{Name: nameKey})
}

// DeleteAvailability handles DELETE /availability/{name}.
func (s *Server) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	name := chirouter.URLParam(r, "name")
	// Resource names carry spaces; the route param arrives escaped.
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if err := s.availability.Delete(r.Context(), name); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidLocation,
		domain.ErrUnauthorized,
		domain.ErrResourceNotFound,
		domain.ErrGeocodeFailed,
		domain.ErrClassifierUnavailable,
		domain.ErrCatalogUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
