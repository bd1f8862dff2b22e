package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/trip"
	"github.com/tripweather/tripweather/internal/weather"
	"github.com/tripweather/tripweather/internal/worker"
)

type fakeRoutes struct {
	mu     sync.Mutex
	filled map[uuid.UUID]int
	errs   map[uuid.UUID]error
	calls  []uuid.UUID
}

func (f *fakeRoutes) FillZones(_ context.Context, id uuid.UUID, zones trip.ZoneLookup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return 0, err
	}
	_ = zones.LookupZone(context.Background(), 0, 0)
	return f.filled[id], nil
}

type fakeZones struct{ zone string }

func (z fakeZones) LookupZone(context.Context, float64, float64) string { return z.zone }

type fakeForecaster struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeForecaster) ReportAt(context.Context, float64, float64, time.Time) (weather.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return weather.Report{Condition: "Sunny"}, f.err
}

func TestDefaultConfig(t *testing.T) {
	cfg := worker.DefaultConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.ProbeWeather)
	assert.Equal(t, 15*time.Minute, cfg.ProbeInterval)
	assert.Equal(t, 10, cfg.MaxOutstandingMessages)
	require.Len(t, cfg.Probes, 7)
	for _, p := range cfg.Probes {
		assert.NotEmpty(t, p.Zone, p.Name)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "8")
	assert.Equal(t, 8, worker.ConfigFromEnv().Concurrency)

	t.Setenv("WORKER_PROBE_INTERVAL", "90s")
	t.Setenv("WORKER_PROBE_WEATHER", "false")
	cfg := worker.ConfigFromEnv()
	assert.Equal(t, 90*time.Second, cfg.ProbeInterval)
	assert.False(t, cfg.ProbeWeather)

	t.Setenv("WORKER_CONCURRENCY", "zero")
	t.Setenv("WORKER_PROBE_INTERVAL", "-1m")
	cfg = worker.ConfigFromEnv()
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 15*time.Minute, cfg.ProbeInterval)
}

func TestJobs_WarmupRoutes(t *testing.T) {
	ok1, ok2, gone, broken := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	routes := &fakeRoutes{
		filled: map[uuid.UUID]int{ok1: 2, ok2: 1},
		errs: map[uuid.UUID]error{
			gone:   trip.ErrRouteNotFound,
			broken: errors.New("db down"),
		},
	}
	jobs := worker.NewJobs(worker.JobsConfig{
		Config: worker.Config{Concurrency: 2, Timeout: time.Second},
		Logger: zerolog.Nop(),
		Routes: routes,
		Zones:  fakeZones{zone: "America/Denver"},
	})

	result := jobs.WarmupRoutes(context.Background(), []uuid.UUID{ok1, ok2, gone, broken})

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 3, result.Filled)
	assert.Len(t, routes.calls, 4)

	retryable := map[string]bool{}
	for _, e := range result.Errors {
		retryable[e.Target] = e.Retryable
	}
	assert.False(t, retryable[gone.String()])
	assert.True(t, retryable[broken.String()])

	m := jobs.GetMetrics()
	assert.Equal(t, int64(1), m.WarmupRuns)
	assert.Equal(t, int64(2), m.RoutesWarmed)
	assert.Equal(t, int64(2), m.RoutesFailed)
	assert.Equal(t, int64(3), m.WaypointsFilled)
	assert.False(t, m.LastRunAt.IsZero())
}

func TestJobs_WarmupRoutesCancelled(t *testing.T) {
	routes := &fakeRoutes{}
	jobs := worker.NewJobs(worker.JobsConfig{
		Config: worker.Config{Concurrency: 1, Timeout: time.Second},
		Logger: zerolog.Nop(),
		Routes: routes,
		Zones:  fakeZones{zone: "UTC"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := jobs.WarmupRoutes(ctx, []uuid.UUID{uuid.New(), uuid.New()})

	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, routes.calls)
}

func TestJobs_Probe(t *testing.T) {
	cfg := worker.Config{
		Concurrency:  2,
		Timeout:      time.Second,
		ProbeWeather: true,
		Probes: []worker.Probe{
			{Name: "Denver", Lat: 39.7, Lon: -105},
			{Name: "New York", Lat: 40.7, Lon: -74},
		},
	}

	t.Run("healthy", func(t *testing.T) {
		forecaster := &fakeForecaster{}
		jobs := worker.NewJobs(worker.JobsConfig{Config: cfg, Logger: zerolog.Nop(), Zones: fakeZones{zone: "UTC"}, Weather: forecaster})

		result := jobs.Probe(context.Background())

		assert.Equal(t, 2, result.Successful)
		assert.Zero(t, result.Failed)
		assert.Equal(t, 2, forecaster.calls)
	})

	t.Run("weather down", func(t *testing.T) {
		forecaster := &fakeForecaster{err: weather.ErrProviderUnavailable}
		jobs := worker.NewJobs(worker.JobsConfig{Config: cfg, Logger: zerolog.Nop(), Zones: fakeZones{zone: "UTC"}, Weather: forecaster})

		result := jobs.Probe(context.Background())

		assert.Equal(t, 2, result.Failed)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0].Error, "weather")
		assert.Equal(t, int64(2), jobs.GetMetrics().ProbeFailures)
	})

	t.Run("no zone", func(t *testing.T) {
		jobs := worker.NewJobs(worker.JobsConfig{Config: cfg, Logger: zerolog.Nop(), Zones: fakeZones{}})

		result := jobs.Probe(context.Background())

		assert.Equal(t, 2, result.Failed)
	})

	t.Run("approximated zone", func(t *testing.T) {
		pinned := cfg
		pinned.ProbeWeather = false
		pinned.Probes = []worker.Probe{
			{Name: "Denver", Lat: 39.7, Lon: -105, Zone: "America/Denver"},
			{Name: "Anywhere", Lat: 40.7, Lon: -74},
		}
		jobs := worker.NewJobs(worker.JobsConfig{Config: pinned, Logger: zerolog.Nop(), Zones: fakeZones{zone: "Etc/GMT+7"}})

		result := jobs.Probe(context.Background())

		assert.Equal(t, 1, result.Successful)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "Denver", result.Errors[0].Target)
		assert.Contains(t, result.Errors[0].Error, "America/Denver")
	})
}

func TestJobs_MetricsSnapshot(t *testing.T) {
	jobs := worker.NewJobs(worker.JobsConfig{Logger: zerolog.Nop(), Routes: &fakeRoutes{}, Zones: fakeZones{zone: "UTC"}})

	jobs.WarmupRoutes(context.Background(), []uuid.UUID{uuid.New()})
	snapshot := jobs.MetricsSnapshot()

	assert.Equal(t, int64(1), snapshot["warmup_runs"])
	assert.Equal(t, int64(1), snapshot["routes_warmed"])
	assert.Contains(t, snapshot, "last_run_duration")
}
