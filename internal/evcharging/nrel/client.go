// Package nrel provides a client for the NREL Alternative Fuel Stations API.
package nrel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/evcharging"
	"github.com/tripweather/tripweather/internal/provider/resilience"
)

const (
	ProviderName    = "nrel"
	DefaultBaseURL  = "https://developer.nrel.gov"
	nearbyRoutePath = "/api/alt-fuel-stations/v1/nearby-route.geojson"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ evcharging.Provider = (*Client)(nil)

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
	}
}

func (c *Client) Name() string { return ProviderName }

// StationsNearRoute posts the route and filter parameters to the
// nearby-route endpoint.
func (c *Client) StationsNearRoute(ctx context.Context, wkt string, params map[string]any) (*evcharging.FeatureCollection, error) {
	if c.apiKey == "" {
		return nil, evcharging.ErrNotConfigured
	}

	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["route"] = wkt

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + nearbyRoutePath + "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", evcharging.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", evcharging.ErrProviderUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var fc evcharging.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().Int("features", len(fc.Features)).Msg("received stations from NREL")
	return &fc, nil
}
