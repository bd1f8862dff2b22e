package routing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/cache"
)

// Cache defaults. A grid of 0.0001 degrees is about 11m, so re-sent
// routes whose points were nudged by GPS noise still hit.
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultStaleIfError  = 15 * time.Minute
	DefaultCacheGridSize = 0.0001
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	CacheTTL        time.Duration
	StaleIfErrorTTL time.Duration
	CacheGridSize   float64

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service validates route requests and caches provider responses.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	grid     float64
	cache    *cache.Cache[*DirectionsResponse]
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	grid := cfg.CacheGridSize
	if grid <= 0 {
		grid = DefaultCacheGridSize
	}
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		grid:     grid,
		cache: cache.New[*DirectionsResponse](
			cache.Config{TTL: cfg.CacheTTL, StaleFor: cfg.StaleIfErrorTTL, Now: cfg.Now},
			cache.Config{TTL: DefaultCacheTTL, StaleFor: DefaultStaleIfError, SweepEvery: 5 * time.Minute},
		),
	}
}

// GetDirections returns a route through req.Waypoints. A cached route
// younger than the stale window stands in when the provider has a
// transient failure.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	resp, outcome, err := s.cache.Get(ctx, key, func(ctx context.Context) (*DirectionsResponse, error) {
		s.logger.Debug().
			Int("waypoints", len(req.Waypoints)).
			Str("profile", string(req.Profile)).
			Str("provider", s.provider.Name()).
			Msg("fetching directions from provider")
		return s.provider.GetDirections(ctx, req)
	}, Transient)

	switch {
	case err != nil:
		s.logger.Error().Err(err).
			Int("waypoints", len(req.Waypoints)).
			Str("profile", string(req.Profile)).
			Msg("failed to fetch directions")
		return nil, err
	case outcome == cache.StaleHit:
		s.logger.Warn().Str("cache_key", key).Msg("serving stale directions after provider error")
	}
	return resp, nil
}

func (s *Service) validate(req *DirectionsRequest) error {
	if len(req.Waypoints) < 2 {
		return &Error{
			Provider: s.provider.Name(),
			Code:     "TOO_FEW_WAYPOINTS",
			Message:  "route needs an origin and a destination",
			Err:      ErrTooFewWaypoints,
		}
	}
	for i, wp := range req.Waypoints {
		if err := ValidateCoordinate(wp); err != nil {
			return &Error{
				Provider: s.provider.Name(),
				Code:     "INVALID_WAYPOINT",
				Message:  fmt.Sprintf("invalid coordinates for waypoint %d", i),
				Err:      err,
			}
		}
	}
	if req.Profile == "" {
		req.Profile = ProfileCar
	}
	if !slices.Contains(s.provider.SupportedProfiles(), req.Profile) {
		return &Error{
			Provider: s.provider.Name(),
			Code:     "UNSUPPORTED_PROFILE",
			Message:  fmt.Sprintf("profile %q is not supported", req.Profile),
			Err:      ErrUnsupportedProfile,
		}
	}
	return nil
}

// cacheKey is {profile}[+ele]:{lat},{lon}|{lat},{lon}|... with every
// waypoint snapped to the cache grid.
func (s *Service) cacheKey(req DirectionsRequest) string {
	var b strings.Builder
	b.WriteString(string(req.Profile))
	if req.Elevation {
		b.WriteString("+ele")
	}
	b.WriteByte(':')
	for i, wp := range req.Waypoints {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(cache.GridKey(wp.Lat, wp.Lon, s.grid, 4))
	}
	return b.String()
}

// CacheStats reports the route cache.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
