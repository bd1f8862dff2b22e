// Package openrouteservice implements routing.Provider on the
// OpenRouteService v2 directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/provider/resilience"
	"github.com/tripweather/tripweather/internal/routing"
	"github.com/tripweather/tripweather/pkg/polyline"
)

const (
	ProviderName   = "openrouteservice"
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 10 * time.Second

	// maxWaypoints is the public directions endpoint limit.
	maxWaypoints = 50

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	// APIKey is sent as the Authorization header. Without it every call
	// fails with routing.ErrNotConfigured and nothing is sent.
	APIKey string

	BaseURL string

	// HTTPClient replaces the resilient default. Registry is only used
	// by the default.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry

	Timeout time.Duration
	Logger  zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
		now:        time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		rc := resilience.ProviderConfig(ProviderName, cfg.Registry, cfg.Logger)
		rc.Timeout = DefaultTimeout
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		c.httpClient = resilience.NewClient(rc)
	}
	return c
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) SupportedProfiles() []routing.RouteProfile {
	return []routing.RouteProfile{routing.ProfileCar, routing.ProfileHGV, routing.ProfileBike, routing.ProfileWalk}
}

// GetDirections computes one route through req.Waypoints in order. Every
// failure is a *routing.Error wrapping one of the routing sentinels.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if c.apiKey == "" {
		return nil, fail("NOT_CONFIGURED", "ORS_API_KEY is not set", routing.ErrNotConfigured)
	}
	body, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	profile := req.Profile
	if profile == "" {
		profile = routing.ProfileCar
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/directions/"+string(profile), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	log := c.logger.With().Str("profile", string(profile)).Int("waypoints", len(req.Waypoints)).Logger()
	log.Debug().Bool("elevation", req.Elevation).Msg("requesting directions")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fail("REQUEST_FAILED", "failed to reach routing provider", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := statusError(resp.StatusCode, raw)
		log.Warn().Int("status", resp.StatusCode).Str("code", rerr.Code).Msg("directions request rejected")
		return nil, rerr
	}

	var decoded orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fail("DECODE", "unreadable routing response", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	if len(decoded.Routes) == 0 {
		return nil, fail("NO_ROUTE", "provider returned no routes", routing.ErrNoRouteFound)
	}

	route := decoded.Routes[0].toRoute(req.Elevation)
	log.Debug().
		Float64("distance_m", route.DistanceMeters).
		Float64("duration_s", route.DurationSeconds).
		Int("points", len(route.Geometry)).
		Msg("directions received")

	return &routing.DirectionsResponse{Route: route, Provider: ProviderName, FetchedAt: c.now()}, nil
}

// encodeRequest validates the waypoints and builds the JSON body. ORS
// expects GeoJSON [lon, lat] order.
func encodeRequest(req routing.DirectionsRequest) ([]byte, error) {
	if n := len(req.Waypoints); n < 2 || n > maxWaypoints {
		return nil, fail("WAYPOINT_COUNT",
			fmt.Sprintf("route needs between 2 and %d waypoints, got %d", maxWaypoints, n),
			routing.ErrTooFewWaypoints)
	}
	coords := make([][]float64, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		if err := routing.ValidateCoordinate(wp); err != nil {
			return nil, fail("INVALID_WAYPOINT", fmt.Sprintf("invalid coordinates for waypoint %d", i), err)
		}
		coords[i] = []float64{wp.Lon, wp.Lat}
	}
	body, err := json.Marshal(orsRequest{
		Coordinates: coords,
		Elevation:   req.Elevation,
		Geometry:    true,
		Units:       "m",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return body, nil
}

// statusError maps a non-200 response onto a routing error. ORS reports
// unroutable points as 400 or 404 with its own error code.
func statusError(status int, raw []byte) *routing.Error {
	var body orsErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return fail(fmt.Sprintf("HTTP_%d", status), fmt.Sprintf("routing provider returned status %d", status), routing.ErrProviderUnavailable)
	}
	msg := body.Error.Message

	switch {
	case status == http.StatusTooManyRequests:
		return fail("RATE_LIMIT", "API rate limit exceeded, please try again later", routing.ErrRateLimitExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fail("FORBIDDEN", "API access denied, check ORS_API_KEY", routing.ErrProviderUnavailable)
	case status == http.StatusNotFound, body.Error.Code.unroutable():
		if msg == "" {
			msg = routing.ErrNoRouteFound.Error()
		}
		return fail("NO_ROUTE", msg, routing.ErrNoRouteFound)
	case status == http.StatusBadRequest:
		return fail("BAD_REQUEST", msg, routing.ErrInvalidCoordinates)
	case status >= http.StatusInternalServerError:
		return fail(fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return fail(fmt.Sprintf("HTTP_%d", status), msg, routing.ErrProviderUnavailable)
	}
}

func fail(code, msg string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Code: code, Message: msg, Err: err}
}

func (r *orsRoute) toRoute(elevation bool) routing.Route {
	decode := polyline.Decode
	if elevation {
		decode = polyline.DecodeElevation
	}

	route := routing.Route{
		Geometry:        polyline.LonLat(decode(r.Geometry), elevation),
		DistanceMeters:  r.Summary.Distance,
		DurationSeconds: r.Summary.Duration,
		Segments:        make([]routing.Segment, len(r.Segments)),
		BoundingBox:     r.BBox.box(),
	}
	for i, seg := range r.Segments {
		route.Segments[i] = routing.Segment{DistanceMeters: seg.Distance, DurationSeconds: seg.Duration}
	}
	return route
}
