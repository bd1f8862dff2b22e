// Package nws provides a client for the US National Weather Service API
// (api.weather.gov). Forecasts take two calls: the points endpoint maps a
// coordinate to a forecast grid URL, which is then fetched.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tripweather/tripweather/internal/provider/resilience"
	"github.com/tripweather/tripweather/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "nws"

	// DefaultBaseURL is the NWS API base URL.
	DefaultBaseURL = "https://api.weather.gov"

	// DefaultUserAgent identifies us to NWS, which rejects anonymous clients.
	DefaultUserAgent = "TripWeather/1.0 (tripweather.app)"

	// DefaultRequestsPerSecond keeps bursts from a long route under the
	// NWS abuse threshold.
	DefaultRequestsPerSecond = 5
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the NWS client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to api.weather.gov).
	BaseURL string

	// UserAgent is sent with every request (optional).
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// RequestsPerSecond paces the default client. Zero means
	// DefaultRequestsPerSecond.
	RequestsPerSecond float64

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a National Weather Service API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new NWS client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.ProviderConfig(ProviderName, cfg.Registry, cfg.Logger)
		clientCfg.UserAgent = userAgent
		rps := cfg.RequestsPerSecond
		if rps <= 0 {
			rps = DefaultRequestsPerSecond
		}
		clientCfg.Limiter = rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps)))
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetForecast fetches the period forecast for a location.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	var points pointsResponse
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := c.getJSON(ctx, pointsURL, &points); err != nil {
		return nil, fmt.Errorf("resolving forecast grid: %w", err)
	}
	if points.Properties.Forecast == "" {
		return nil, weather.ErrNoDataForLocation
	}

	var forecast forecastResponse
	if err := c.getJSON(ctx, points.Properties.Forecast, &forecast); err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}

	c.logger.Debug().
		Str("grid", fmt.Sprintf("%s/%d,%d", points.Properties.GridID, points.Properties.GridX, points.Properties.GridY)).
		Int("periods", len(forecast.Properties.Periods)).
		Msg("received forecast from NWS")

	return c.toForecast(lat, lon, &forecast), nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Points outside NWS coverage answer 404.
		return weather.ErrNoDataForLocation
	case resp.StatusCode != http.StatusOK:
		var problem problemResponse
		_ = json.NewDecoder(resp.Body).Decode(&problem)
		return fmt.Errorf("%w: status %d: %s", weather.ErrProviderUnavailable, resp.StatusCode, problem.Detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) toForecast(lat, lon float64, resp *forecastResponse) *weather.Forecast {
	f := &weather.Forecast{
		Lat:       lat,
		Lon:       lon,
		Periods:   make([]weather.Period, 0, len(resp.Properties.Periods)),
		FetchedAt: c.now(),
	}
	if t, err := time.Parse(time.RFC3339, resp.Properties.GeneratedAt); err == nil {
		f.GeneratedAt = t
	}

	for _, p := range resp.Properties.Periods {
		start, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			c.logger.Warn().Str("start", p.StartTime).Msg("skipping forecast period with bad start time")
			continue
		}
		end, err := time.Parse(time.RFC3339, p.EndTime)
		if err != nil {
			c.logger.Warn().Str("end", p.EndTime).Msg("skipping forecast period with bad end time")
			continue
		}

		period := weather.Period{
			Number:           p.Number,
			Name:             p.Name,
			StartTime:        start,
			EndTime:          end,
			IsDaytime:        p.IsDaytime,
			Temperature:      p.Temperature,
			TemperatureUnit:  p.TemperatureUnit,
			WindSpeed:        p.WindSpeed,
			WindDirection:    p.WindDirection,
			ShortForecast:    p.ShortForecast,
			DetailedForecast: p.DetailedForecast,
		}
		if p.ProbabilityOfPrecipitation != nil && p.ProbabilityOfPrecipitation.Value != nil {
			v := int(*p.ProbabilityOfPrecipitation.Value)
			period.PrecipitationChance = &v
		}
		f.Periods = append(f.Periods, period)
	}

	return f
}

// NWS API response structures.

type pointsResponse struct {
	Properties struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
		GridID         string `json:"gridId"`
		GridX          int    `json:"gridX"`
		GridY          int    `json:"gridY"`
		TimeZone       string `json:"timeZone"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		GeneratedAt string           `json:"generatedAt"`
		Periods     []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

type forecastPeriod struct {
	Number                     int            `json:"number"`
	Name                       string         `json:"name"`
	StartTime                  string         `json:"startTime"`
	EndTime                    string         `json:"endTime"`
	IsDaytime                  bool           `json:"isDaytime"`
	Temperature                *int           `json:"temperature"`
	TemperatureUnit            string         `json:"temperatureUnit"`
	ProbabilityOfPrecipitation *quantityValue `json:"probabilityOfPrecipitation"`
	WindSpeed                  string         `json:"windSpeed"`
	WindDirection              string         `json:"windDirection"`
	ShortForecast              string         `json:"shortForecast"`
	DetailedForecast           string         `json:"detailedForecast"`
}

type quantityValue struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

type problemResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}
