// Package geocode resolves venue names to coordinates through the
// Google Maps Geocoding API, constrained to the target city.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jonathan/event-scout/internal/types"
)

// DefaultBaseURL is the geocoding oracle endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// DefaultTimeout bounds a single geocoding request.
const DefaultTimeout = 10 * time.Second

// callInterval spaces consecutive geocoding calls.
const callInterval = 200 * time.Millisecond

// CityBounds is the San Francisco bounding box used both as a
// geocoding hint and as the validity check for resolved coordinates.
var CityBounds = types.BoundingBox{
	MinLat: 37.7,
	MaxLat: 37.85,
	MinLng: -122.55,
	MaxLng: -122.35,
}

// citySuffix is appended to every venue query.
const citySuffix = "San Francisco CA"

// Request identifies a venue to resolve.
type Request struct {
	VenueName string
	Address   string
}

// Result is a resolved coordinate pair.
type Result struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
}

// Client queries the geocoding oracle. A nil result with nil error
// means the venue could not be resolved; the pipeline treats that as a
// soft failure.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Options configures the geocoding client.
type Options struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a geocoding client. A missing API key is tolerated;
// every lookup then returns nil after a one-time configuration warning.
func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not configured, geocoding disabled")
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Every(callInterval), 1),
		log:     log,
	}
}

// mapsResponse is the subset of the oracle response we consume.
type mapsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Venue resolves a venue to coordinates, or nil when resolution fails.
// One attempt per call, no retries.
func (c *Client) Venue(ctx context.Context, req Request) (*Result, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("address", buildQuery(req))
	params.Set("key", c.apiKey)
	params.Set("bounds", fmt.Sprintf("%g,%g|%g,%g", CityBounds.MinLat, CityBounds.MinLng, CityBounds.MaxLat, CityBounds.MaxLng))
	params.Set("components", "locality:san francisco|administrative_area:CA|country:US")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("venue", req.VenueName).Msg("geocoding request failed")
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("venue", req.VenueName).Msg("geocoding API error")
		return nil, nil
	}

	var parsed mapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Warn().Err(err).Str("venue", req.VenueName).Msg("failed to decode geocoding response")
		return nil, nil
	}

	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		c.log.Warn().Str("status", parsed.Status).Str("venue", req.VenueName).Msg("geocoding returned no result")
		return nil, nil
	}

	best := parsed.Results[0]
	return &Result{
		Lat:              best.Geometry.Location.Lat,
		Lng:              best.Geometry.Location.Lng,
		FormattedAddress: best.FormattedAddress,
	}, nil
}

// InBounds reports whether a resolved coordinate falls inside the
// target city's bounding box. Out-of-bounds results should not be
// treated as confident resolutions.
func InBounds(lat, lng float64) bool {
	return CityBounds.Contains(lat, lng)
}

// buildQuery concatenates venue name, optional address, and the fixed
// city suffix.
func buildQuery(req Request) string {
	parts := []string{req.VenueName}
	if req.Address != "" {
		parts = append(parts, req.Address)
	}
	parts = append(parts, citySuffix)
	return strings.Join(parts, " ")
}
