package timezone

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name  string
	zone  string
	err   error
	calls atomic.Int32
}

func (p *stubProvider) LookupZone(context.Context, float64, float64) (string, error) {
	p.calls.Add(1)
	return p.zone, p.err
}

func (p *stubProvider) Name() string { return p.name }

type mapStore struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func newMapStore() *mapStore { return &mapStore{entries: map[string]string{}} }

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	z, ok := s.entries[key]
	return z, ok, nil
}

func (s *mapStore) Put(_ context.Context, key, zone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = zone
	return nil
}

func TestResolver_UsesFirstSuccessfulProviderAndCaches(t *testing.T) {
	failing := &stubProvider{name: "down", err: errors.New("boom")}
	google := &stubProvider{name: "google", zone: "America/Denver"}
	store := newMapStore()

	r := NewResolver(ResolverConfig{
		Providers: []Provider{failing, google},
		Store:     store,
		Logger:    zerolog.Nop(),
	})
	ctx := context.Background()

	assert.Equal(t, "America/Denver", r.LookupZone(ctx, 39.7392, -104.9903))
	assert.Equal(t, "America/Denver", r.LookupZone(ctx, 39.7392, -104.9903))

	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, int32(1), google.calls.Load())
	assert.Equal(t, 1, r.CacheSize())
	assert.Equal(t, "America/Denver", store.entries["39.7392,-104.9903"])
}

func TestResolver_StoreHitSkipsProviders(t *testing.T) {
	provider := &stubProvider{name: "google", zone: "America/Chicago"}
	store := newMapStore()
	store.entries[CacheKey(40.7608, -111.891)] = "America/Denver"

	r := NewResolver(ResolverConfig{Providers: []Provider{provider}, Store: store})

	assert.Equal(t, "America/Denver", r.LookupZone(context.Background(), 40.7608, -111.891))
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestResolver_StoreErrorFallsThrough(t *testing.T) {
	provider := &stubProvider{name: "google", zone: "America/Chicago"}
	store := newMapStore()
	store.getErr = errors.New("connection refused")

	r := NewResolver(ResolverConfig{Providers: []Provider{provider}, Store: store})

	assert.Equal(t, "America/Chicago", r.LookupZone(context.Background(), 41.2565, -95.9345))
}

func TestResolver_InvalidProviderZoneIsSkipped(t *testing.T) {
	bogus := &stubProvider{name: "bogus", zone: "Mars/Olympus_Mons"}
	good := &stubProvider{name: "good", zone: "Europe/Lisbon"}

	r := NewResolver(ResolverConfig{Providers: []Provider{bogus, good}})

	assert.Equal(t, "Europe/Lisbon", r.LookupZone(context.Background(), 38.7223, -9.1393))
}

func TestResolver_FallsBackToApproximationWithoutCaching(t *testing.T) {
	provider := &stubProvider{name: "google", err: ErrNoZone}
	r := NewResolver(ResolverConfig{Providers: []Provider{provider}})
	ctx := context.Background()

	assert.Equal(t, "America/Denver", r.LookupZone(ctx, 40.7608, -111.891))
	assert.Equal(t, 0, r.CacheSize())

	provider.err = nil
	provider.zone = "America/Boise"
	assert.Equal(t, "America/Boise", r.LookupZone(ctx, 40.7608, -111.891))
}

func TestResolver_OutOfRangeIsUTC(t *testing.T) {
	provider := &stubProvider{name: "google", zone: "America/Denver"}
	r := NewResolver(ResolverConfig{Providers: []Provider{provider}})

	assert.Equal(t, Fallback, r.LookupZone(context.Background(), 95, 0))
	assert.Equal(t, Fallback, r.LookupZone(context.Background(), 0, 200))
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestResolver_ConcurrentLookups(t *testing.T) {
	provider := &stubProvider{name: "google", zone: "America/New_York"}
	r := NewResolver(ResolverConfig{Providers: []Provider{provider}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lat := 40.0 + float64(i%4)
			assert.Equal(t, "America/New_York", r.LookupZone(context.Background(), lat, -74.0))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, r.CacheSize())
}

func TestResolver_Describe(t *testing.T) {
	provider := &stubProvider{name: "google", zone: "America/Denver"}
	r := NewResolver(ResolverConfig{
		Providers: []Provider{provider},
		Now:       func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) },
	})
	ctx := context.Background()

	assert.Equal(t, Info{Zone: "America/Denver", Abbreviation: "MDT"},
		r.Describe(ctx, 39.7392, -104.9903, "2024-07-04 12:00"))
	assert.Equal(t, Info{Zone: "America/Denver", Abbreviation: "MST"},
		r.Describe(ctx, 39.7392, -104.9903, ""))
}

func TestApproximate(t *testing.T) {
	tests := []struct {
		lon  float64
		want string
	}{
		{-122.4194, "America/Los_Angeles"},
		{-125, "America/Los_Angeles"},
		{-115, "America/Denver"},
		{-104.9903, "America/Chicago"},
		{-105.0001, "America/Denver"},
		{-87.6298, "America/New_York"},
		{-74.006, "America/Halifax"},
		{-65, "Etc/GMT+4"},
		{-157.8583, "Etc/GMT+11"},
		{-7.5, "UTC"},
		{-9.1393, "Etc/GMT+1"},
		{0, "UTC"},
		{13.405, "Etc/GMT-1"},
		{139.6917, "Etc/GMT-9"},
		{180, "Etc/GMT-12"},
		{-180, "Etc/GMT+12"},
	}

	for _, tt := range tests {
		if got := Approximate(tt.lon); got != tt.want {
			t.Errorf("Approximate(%v) = %q, want %q", tt.lon, got, tt.want)
		}
	}
}
