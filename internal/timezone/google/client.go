// Package google resolves time zones through the Google Maps Time Zone API.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/tripweather/tripweather/internal/provider/resilience"
	"github.com/tripweather/tripweather/internal/timezone"
)

// ProviderName identifies this zone provider.
const ProviderName = "google-timezone"

// ErrNotConfigured is returned by NewClient without an API key.
var ErrNotConfigured = errors.New("GOOGLE_MAPS_API_KEY is not set")

// ClientConfig holds configuration for the Google Time Zone client.
type ClientConfig struct {
	// APIKey is the Google Maps platform key (required).
	APIKey string

	// BaseURL overrides the Maps API host (tests).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, requests go through a resilient client.
	HTTPClient *http.Client

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger

	// Now supplies the timestamp sent with each lookup. Defaults to time.Now.
	Now func() time.Time
}

// Client looks up zones with the Google Maps SDK.
type Client struct {
	maps   *maps.Client
	logger zerolog.Logger
	now    func() time.Time
}

var _ timezone.Provider = (*Client)(nil)

// NewClient creates a Google Time Zone client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ProviderConfig(ProviderName, cfg.Registry, cfg.Logger)).StandardClient()
	}

	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}

	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{maps: mc, logger: cfg.Logger, now: now}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// LookupZone returns the IANA zone id Google reports for the coordinate.
func (c *Client) LookupZone(ctx context.Context, lat, lon float64) (string, error) {
	result, err := c.maps.Timezone(ctx, &maps.TimezoneRequest{
		Location:  &maps.LatLng{Lat: lat, Lng: lon},
		Timestamp: c.now(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return "", fmt.Errorf("%w: %.4f,%.4f", timezone.ErrNoZone, lat, lon)
		}
		return "", fmt.Errorf("google time zone lookup: %w", err)
	}
	if result.TimeZoneID == "" {
		return "", fmt.Errorf("%w: %.4f,%.4f", timezone.ErrNoZone, lat, lon)
	}

	c.logger.Debug().
		Str("zone", result.TimeZoneID).
		Int("raw_offset", result.RawOffset).
		Int("dst_offset", result.DstOffset).
		Msg("resolved zone from google")

	return result.TimeZoneID, nil
}
