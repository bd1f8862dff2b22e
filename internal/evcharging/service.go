package evcharging

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/pkg/polyline"
)

// DefaultMaxPoints bounds the linestring sent upstream.
const DefaultMaxPoints = 400

// reservedParams are set by the service and never taken from callers.
var reservedParams = map[string]bool{"route": true, "api_key": true}

// ServiceConfig holds configuration for the charging station service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// MaxPoints is the most route points sent upstream (default: 400).
	// Longer geometries are resampled at even spacing.
	MaxPoints int
}

// Service finds charging stations along routes.
type Service struct {
	provider  Provider
	logger    zerolog.Logger
	maxPoints int
}

// NewService creates a new charging station service.
func NewService(cfg ServiceConfig) *Service {
	maxPoints := cfg.MaxPoints
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}
	return &Service{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		maxPoints: maxPoints,
	}
}

// StationsAlongRoute returns the stations near route, a list of [lon, lat]
// points. Malformed routes fail with ErrInvalidRoute; upstream failures are
// logged and answered with an empty collection.
func (s *Service) StationsAlongRoute(ctx context.Context, route [][]float64, params map[string]any) (*FeatureCollection, error) {
	if len(route) < 2 {
		return nil, fmt.Errorf("%w: need at least two points, got %d", ErrInvalidRoute, len(route))
	}
	for i, p := range route {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: point %d has %d values", ErrInvalidRoute, i, len(p))
		}
	}

	wkt, err := ToWKT(s.thin(route))
	if err != nil {
		return nil, err
	}

	forwarded := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil || reservedParams[k] {
			continue
		}
		forwarded[k] = v
	}

	fc, err := s.provider.StationsNearRoute(ctx, wkt, forwarded)
	if err != nil {
		ev := s.logger.Error()
		if errors.Is(err, ErrNotConfigured) {
			ev = s.logger.Warn()
		}
		ev.Err(err).Str("provider", s.provider.Name()).Int("points", len(route)).Msg("charging station lookup failed")
		return EmptyCollection(), nil
	}
	if fc.Type == "" {
		fc.Type = "FeatureCollection"
	}
	if fc.Features == nil {
		fc.Features = []Feature{}
	}

	s.logger.Debug().Int("stations", len(fc.Features)).Msg("found charging stations along route")
	return fc, nil
}

// thin resamples route down to at most maxPoints points. A route with no
// measurable length collapses to its endpoints.
func (s *Service) thin(route [][]float64) [][]float64 {
	if len(route) <= s.maxPoints {
		return route
	}
	coords := polyline.FromLonLat(route)
	length := polyline.Length(coords)
	if !(length > 0) || math.IsInf(length, 0) {
		return [][]float64{route[0], route[len(route)-1]}
	}
	interval := length / float64(s.maxPoints-2)
	sampled := polyline.Sample(coords, interval)
	for len(sampled) > s.maxPoints {
		interval *= 1.1
		sampled = polyline.Sample(coords, interval)
	}
	return polyline.LonLat(sampled, false)
}
