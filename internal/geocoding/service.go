package geocoding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 10

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the geocoding provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long reverse lookups are cached (default: 24 hours).
	CacheTTL time.Duration

	// CacheGridSize is the cache cell size in degrees (default: 0.001, ~110m).
	CacheGridSize float64

	// Now is the clock used for cache expiry. Defaults to time.Now.
	Now func() time.Time
}

// Service provides geocoding with a reverse-lookup cache.
type Service struct {
	provider      Provider
	logger        zerolog.Logger
	cacheTTL      time.Duration
	cacheGridSize float64
	now           func() time.Time

	mu    sync.RWMutex
	cache map[string]*cachedPlace
}

type cachedPlace struct {
	place     *Place
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	grid := cfg.CacheGridSize
	if grid == 0 {
		grid = 0.001
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:      cfg.Provider,
		logger:        cfg.Logger,
		cacheTTL:      cacheTTL,
		cacheGridSize: grid,
		now:           now,
		cache:         make(map[string]*cachedPlace),
	}
}

// Reverse returns the place nearest to the coordinate.
func (s *Service) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.place, nil
	}
	s.mu.RUnlock()

	place, err := s.provider.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = &cachedPlace{place: place, expiresAt: s.now().Add(s.cacheTTL)}
	s.mu.Unlock()

	return place, nil
}

// Summary reverse-geocodes the coordinate into a Summary. Failures are
// logged and answered with placeholders.
func (s *Service) Summary(ctx context.Context, lat, lon float64) Summary {
	place, err := s.Reverse(ctx, lat, lon)
	if err != nil {
		ev := s.logger.Error()
		if errors.Is(err, ErrNotFound) {
			ev = s.logger.Warn()
		}
		ev.Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocode failed")
		return Summarize(nil)
	}
	return Summarize(place)
}

// Search returns places matching text.
func (s *Service) Search(ctx context.Context, text string, limit int) ([]Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidQuery
	}
	if limit <= 0 || limit > 50 {
		limit = DefaultSearchLimit
	}

	places, err := s.provider.Search(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", text, err)
	}
	return places, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.4f:%.4f", gridLat, gridLon)
}
