// Package timezone resolves the IANA zone of a coordinate.
//
// Lookups go through an in-process cache, then an optional persistent
// store, then each configured provider in order. When every provider fails
// the longitude approximation answers, and "UTC" is the last resort.
package timezone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/clock"
)

// Fallback is returned when nothing better is known.
const Fallback = "UTC"

// ErrNoZone is returned by providers that have no answer for a location.
var ErrNoZone = errors.New("no time zone for location")

// Provider looks up the zone for a coordinate from an upstream source.
type Provider interface {
	LookupZone(ctx context.Context, lat, lon float64) (string, error)
	Name() string
}

// Store persists resolved zones across restarts.
type Store interface {
	// Get returns the zone for key and whether one was stored.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put records zone under key.
	Put(ctx context.Context, key, zone string) error
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// Providers are tried in order until one answers with a valid zone.
	Providers []Provider

	// Store is an optional write-through persistent cache.
	Store Store

	// Logger for resolver operations.
	Logger zerolog.Logger

	// Now is the clock used by Describe. Defaults to time.Now.
	Now clock.NowFunc
}

// Resolver is a concurrency-safe, cached zone lookup.
type Resolver struct {
	providers []Provider
	store     Store
	logger    zerolog.Logger
	now       clock.NowFunc

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		providers: cfg.Providers,
		store:     cfg.Store,
		logger:    cfg.Logger,
		now:       now,
		cache:     make(map[string]string),
	}
}

// CacheKey is the "lat,lon" key shared by the in-process cache and the store.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// LookupZone returns the zone for the coordinate. It never fails: provider
// errors fall through to the longitude approximation and then to UTC.
func (r *Resolver) LookupZone(ctx context.Context, lat, lon float64) string {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		r.logger.Warn().Float64("lat", lat).Float64("lon", lon).Msg("coordinates out of range, using UTC")
		return Fallback
	}

	key := CacheKey(lat, lon)

	r.mu.RLock()
	zone, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return zone
	}

	if r.store != nil {
		stored, found, err := r.store.Get(ctx, key)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Str("key", key).Msg("zone store read failed")
		case found && clock.IsValidZone(stored):
			r.remember(key, stored)
			return stored
		}
	}

	for _, p := range r.providers {
		zone, err := p.LookupZone(ctx, lat, lon)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("provider", p.Name()).
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("zone lookup failed")
			continue
		}
		if !clock.IsValidZone(zone) {
			r.logger.Warn().Str("provider", p.Name()).Str("zone", zone).Msg("provider returned unknown zone")
			continue
		}

		r.remember(key, zone)
		if r.store != nil {
			if err := r.store.Put(ctx, key, zone); err != nil {
				r.logger.Warn().Err(err).Str("key", key).Msg("zone store write failed")
			}
		}
		return zone
	}

	// Approximations are not cached so a recovered provider gets the next call.
	zone = Approximate(lon)
	if !clock.IsValidZone(zone) {
		zone = Fallback
	}
	if len(r.providers) > 0 {
		r.logger.Warn().Str("zone", zone).Str("key", key).Msg("all zone providers failed, using approximation")
	}
	return zone
}

func (r *Resolver) remember(key, zone string) {
	r.mu.Lock()
	r.cache[key] = zone
	r.mu.Unlock()
}

// CacheSize returns the number of cached coordinates.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Info is a resolved zone with the abbreviation in effect at some instant.
type Info struct {
	Zone         string
	Abbreviation string
}

// Describe resolves the zone for the coordinate and its abbreviation at
// dateTime (Layout, local to that zone). An empty dateTime means now.
func (r *Resolver) Describe(ctx context.Context, lat, lon float64, dateTime string) Info {
	zone := r.LookupZone(ctx, lat, lon)
	return Info{
		Zone:         zone,
		Abbreviation: clock.Abbreviation(zone, dateTime, r.now),
	}
}
