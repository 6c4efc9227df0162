// Package zippo resolves US ZIP codes to coordinates via a Zippopotam-style
// HTTP API, with a static San Diego fallback table for offline operation.
package zippo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

const defaultBaseURL = "https://api.zippopotam.us/us"

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Client geocodes ZIP codes. Remote lookups are bounded by the configured
// timeout; on any remote failure the static table is consulted before the
// lookup is reported as failed.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds geocoder settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a ZIP geocoder client.
func New(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

// zippoResponse mirrors the Zippopotam API place payload.
type zippoResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
		State     string `json:"state"`
	} `json:"places"`
}

// Resolve returns coordinates for a 5-digit ZIP. Malformed input fails fast
// without a network call. Remote errors fall back to the static table; only
// when both sources miss does the call return domain.ErrGeocodeFailed.
func (c *Client) Resolve(ctx context.Context, zip string) (lat, lon float64, err error) {
	if !zipPattern.MatchString(zip) {
		return 0, 0, fmt.Errorf("zip %q: %w", zip, domain.ErrInvalidLocation)
	}

	lat, lon, remoteErr := c.resolveRemote(ctx, zip)
	if remoteErr == nil {
		return lat, lon, nil
	}

	if lat, lon, ok := staticLookup(zip); ok {
		if c.logger != nil {
			c.logger.Warn("zip geocode fell back to static table",
				zap.String("zip", zip),
				zap.Error(remoteErr))
		}
		return lat, lon, nil
	}
	return 0, 0, fmt.Errorf("zip %q: %w: %w", zip, remoteErr, domain.ErrGeocodeFailed)
}

func (c *Client) resolveRemote(ctx context.Context, zip string) (float64, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+zip, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, 0, fmt.Errorf("zip not found upstream")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var payload zippoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(payload.Places) == 0 {
		return 0, 0, fmt.Errorf("geocoder response has no places")
	}

	lat, err := strconv.ParseFloat(payload.Places[0].Latitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude %q: %w", payload.Places[0].Latitude, err)
	}
	lon, err := strconv.ParseFloat(payload.Places[0].Longitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude %q: %w", payload.Places[0].Longitude, err)
	}
	return lat, lon, nil
}
