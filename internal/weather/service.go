// Package weather answers "what will the weather be here at that time"
// from upstream forecast providers, with caching.
package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/cache"
)

// Provider fetches period forecasts. *nws.Client implements it.
type Provider interface {
	GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error)
	Name() string
}

// Cache defaults. Upstream forecast grids are about 2.5km, so points in
// one 0.025 degree cell share a forecast.
const (
	DefaultCacheTTL      = 30 * time.Minute
	DefaultStaleIfError  = 3 * time.Hour
	DefaultCacheGridSize = 0.025
)

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	CacheTTL        time.Duration
	StaleIfErrorTTL time.Duration
	CacheGridSize   float64

	// Now is the clock for cache expiry and untimed stops.
	Now func() time.Time
}

// Service provides weather forecasts with caching.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	grid     float64
	now      func() time.Time
	cache    *cache.Cache[*Forecast]
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	grid := cfg.CacheGridSize
	if grid <= 0 {
		grid = DefaultCacheGridSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		grid:     grid,
		now:      now,
		cache: cache.New[*Forecast](
			cache.Config{TTL: cfg.CacheTTL, StaleFor: cfg.StaleIfErrorTTL, Now: now},
			cache.Config{TTL: DefaultCacheTTL, StaleFor: DefaultStaleIfError, SweepEvery: 10 * time.Minute},
		),
	}
}

// GetForecast returns the forecast for the grid cell containing lat, lon.
// Locations the provider does not cover fail with ErrNoDataForLocation;
// other provider failures fall back to a stale forecast or fail with
// ErrProviderUnavailable.
func (s *Service) GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := cache.GridKey(lat, lon, s.grid, 3)
	f, outcome, err := s.cache.Get(ctx, key, func(ctx context.Context) (*Forecast, error) {
		s.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Msg("fetching forecast from provider")
		return s.provider.GetForecast(ctx, lat, lon)
	}, func(err error) bool {
		return !errors.Is(err, ErrNoDataForLocation)
	})

	switch {
	case errors.Is(err, ErrNoDataForLocation):
		return nil, err
	case err != nil:
		s.logger.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("failed to fetch forecast")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	case outcome == cache.StaleHit:
		s.logger.Warn().Str("cell", key).Msg("serving stale forecast after provider error")
	}
	return f, nil
}

// ReportAt returns the weather for a location at instant at.
func (s *Service) ReportAt(ctx context.Context, lat, lon float64, at time.Time) (Report, error) {
	forecast, err := s.GetForecast(ctx, lat, lon)
	if err != nil {
		return Report{}, err
	}
	period := forecast.PeriodAt(at)
	if period == nil {
		return Report{}, ErrNoPeriod
	}
	return NewReport(period), nil
}

// Stop is a place along a route. At is nil when the route is untimed.
type Stop struct {
	Lat float64
	Lon float64
	At  *time.Time
}

// ReportsAlong returns one report per stop. Failed stops get an error report
// instead of failing the whole call. Untimed stops use the current time.
func (s *Service) ReportsAlong(ctx context.Context, stops []Stop) []Report {
	reports := make([]Report, len(stops))

	for i, stop := range stops {
		at := s.now()
		if stop.At != nil {
			at = *stop.At
		}

		report, err := s.ReportAt(ctx, stop.Lat, stop.Lon, at)
		if err != nil {
			s.logger.Warn().
				Int("stop", i).
				Float64("lat", stop.Lat).
				Float64("lon", stop.Lon).
				Err(err).
				Msg("failed to get weather for stop")
			reports[i] = ErrorReport(Describe(err))
			continue
		}
		reports[i] = report
	}

	return reports
}

// Describe turns a service error into the message shown to users.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrNoDataForLocation):
		return "Unable to get forecast URL for location"
	case errors.Is(err, ErrNoPeriod):
		return "No forecast available for selected date/time"
	case errors.Is(err, ErrInvalidCoordinates):
		return "Invalid coordinates"
	default:
		return "Error fetching weather: " + err.Error()
	}
}

// CacheStats reports the forecast cache.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
