// Package geoapify provides a client for the Geoapify geocoding API.
package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/geocoding"
	"github.com/tripweather/tripweather/internal/provider/resilience"
	tz "github.com/tripweather/tripweather/internal/timezone"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "geoapify"

	// DefaultBaseURL is the Geoapify API base URL.
	DefaultBaseURL = "https://api.geoapify.com/v1"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Geoapify client.
type ClientConfig struct {
	// APIKey is the Geoapify API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Geoapify API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

var (
	_ geocoding.Provider = (*Client)(nil)
	_ tz.Provider        = (*Client)(nil)
)

// NewClient creates a new Geoapify client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ProviderConfig(ProviderName, cfg.Registry, cfg.Logger))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Reverse returns the place nearest to the coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*geocoding.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	fc, err := c.get(ctx, "/geocode/reverse", q)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w at %.4f,%.4f", geocoding.ErrNotFound, lat, lon)
	}

	place := c.toPlace(&fc.Features[0].Properties)
	return &place, nil
}

// Search returns up to limit places matching text.
func (c *Client) Search(ctx context.Context, text string, limit int) ([]geocoding.Place, error) {
	q := url.Values{}
	q.Set("text", text)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	fc, err := c.get(ctx, "/geocode/search", q)
	if err != nil {
		return nil, err
	}

	places := make([]geocoding.Place, 0, len(fc.Features))
	for i := range fc.Features {
		places = append(places, c.toPlace(&fc.Features[i].Properties))
	}
	return places, nil
}

// LookupZone reports the zone Geoapify attaches to the nearest place.
func (c *Client) LookupZone(ctx context.Context, lat, lon float64) (string, error) {
	place, err := c.Reverse(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	if place.Timezone == nil || place.Timezone.Name == "" {
		return "", fmt.Errorf("%w: %.4f,%.4f", tz.ErrNoZone, lat, lon)
	}
	return place.Timezone.Name, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*featureCollection, error) {
	if c.apiKey == "" {
		return nil, geocoding.ErrNotConfigured
	}
	q.Set("format", "geojson")
	q.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", geocoding.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("message", apiErr.Message).
			Msg("geoapify request failed")
		return nil, fmt.Errorf("%w: status %d", geocoding.ErrProviderUnavailable, resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &fc, nil
}

func (c *Client) toPlace(p *properties) geocoding.Place {
	place := geocoding.Place{
		Name:        p.Formatted,
		Latitude:    p.Lat,
		Longitude:   p.Lon,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		CountryCode: p.CountryCode,
		Postcode:    p.Postcode,
		ResultType:  p.ResultType,
		FetchedAt:   c.now(),
	}
	if tz := p.Timezone; tz != nil {
		place.Timezone = &geocoding.ZoneInfo{
			Name:             tz.Name,
			OffsetStd:        tz.OffsetSTD,
			OffsetStdSeconds: tz.OffsetSTDSeconds,
			OffsetDst:        tz.OffsetDST,
			OffsetDstSeconds: tz.OffsetDSTSeconds,
			AbbreviationStd:  tz.AbbreviationSTD,
			AbbreviationDst:  tz.AbbreviationDST,
		}
	}
	return place
}
