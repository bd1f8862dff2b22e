package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tripweather/tripweather/internal/trip"
	"github.com/tripweather/tripweather/internal/weather"
)

// RouteZones fills missing waypoint zones of saved routes.
// *trip.Service implements it.
type RouteZones interface {
	FillZones(ctx context.Context, id uuid.UUID, zones trip.ZoneLookup) (int, error)
}

// Forecaster answers a forecast for a place and instant.
// *weather.Service implements it.
type Forecaster interface {
	ReportAt(ctx context.Context, lat, lon float64, at time.Time) (weather.Report, error)
}

var (
	errNoZone       = errors.New("no zone resolved")
	errZoneMismatch = errors.New("unexpected zone")
)

// Jobs runs the worker's jobs.
type Jobs struct {
	config  Config
	logger  zerolog.Logger
	routes  RouteZones
	zones   trip.ZoneLookup
	weather Forecaster
	now     func() time.Time

	metrics *Metrics
}

// Metrics tracks job statistics.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	WarmupRuns      int64
	RoutesWarmed    int64
	RoutesFailed    int64
	WaypointsFilled int64
	ProbeRuns       int64
	ProbeFailures   int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// JobsConfig holds configuration for creating Jobs.
type JobsConfig struct {
	Config Config
	Logger zerolog.Logger
	Routes RouteZones
	Zones  trip.ZoneLookup

	// Weather is optional; without it probes only check zone lookup.
	Weather Forecaster
}

// NewJobs creates a job runner.
func NewJobs(cfg JobsConfig) *Jobs {
	config := cfg.Config
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if len(config.Probes) == 0 {
		config.Probes = DefaultProbes()
	}

	return &Jobs{
		config:  config,
		logger:  cfg.Logger,
		routes:  cfg.Routes,
		zones:   cfg.Zones,
		weather: cfg.Weather,
		now:     time.Now,
		metrics: &Metrics{},
	}
}

// Result contains the outcome of one job run.
type Result struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Filled     int
	Errors     []JobError
}

// JobError is a failure on one route or probe.
type JobError struct {
	Target string
	Error  string

	// Retryable is false when another attempt cannot succeed, such as a
	// route deleted before the job ran.
	Retryable bool
}

// outcome is what a worker reports for one item.
type outcome struct {
	target string
	filled int
	err    error
}

// WarmupRoutes resolves the missing waypoint zones of each route.
func (j *Jobs) WarmupRoutes(ctx context.Context, ids []uuid.UUID) *Result {
	j.logger.Info().
		Int("routes", len(ids)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting zone warm-up")

	start := j.now()
	outcomes := fanOut(ctx, j.config.Concurrency, j.config.Timeout, ids, func(ctx context.Context, id uuid.UUID) outcome {
		filled, err := j.routes.FillZones(ctx, id, j.zones)
		return outcome{target: id.String(), filled: filled, err: err}
	})
	result := j.summarize(start, outcomes)

	j.metrics.mu.Lock()
	j.metrics.WarmupRuns++
	j.metrics.RoutesWarmed += int64(result.Successful)
	j.metrics.RoutesFailed += int64(result.Failed)
	j.metrics.WaypointsFilled += int64(result.Filled)
	j.record(result)
	j.metrics.mu.Unlock()

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("waypoints_filled", result.Filled).
		Msg("zone warm-up completed")

	return result
}

// Probe looks up the zone, and the forecast when configured, at each probe.
// Zone lookup never fails, so an empty or unexpected zone counts as a
// failure.
func (j *Jobs) Probe(ctx context.Context) *Result {
	start := j.now()
	outcomes := fanOut(ctx, j.config.Concurrency, j.config.Timeout, j.config.Probes, func(ctx context.Context, p Probe) outcome {
		target := p.Name
		if target == "" {
			target = fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
		}
		zone := j.zones.LookupZone(ctx, p.Lat, p.Lon)
		switch {
		case zone == "":
			return outcome{target: target, err: errNoZone}
		case p.Zone != "" && zone != p.Zone:
			return outcome{target: target, err: fmt.Errorf("%w: got %s, want %s", errZoneMismatch, zone, p.Zone)}
		}
		if j.config.ProbeWeather && j.weather != nil {
			if _, err := j.weather.ReportAt(ctx, p.Lat, p.Lon, j.now()); err != nil {
				return outcome{target: target, err: fmt.Errorf("weather: %w", err)}
			}
		}
		return outcome{target: target}
	})
	result := j.summarize(start, outcomes)

	j.metrics.mu.Lock()
	j.metrics.ProbeRuns++
	j.metrics.ProbeFailures += int64(result.Failed)
	j.record(result)
	j.metrics.mu.Unlock()

	return result
}

// fanOut runs fn over items with at most concurrency calls in flight and
// returns one outcome per item in item order. Each call gets its own
// timeout; items not started before ctx ends fail with ctx's error.
func fanOut[T any](ctx context.Context, concurrency int, timeout time.Duration, items []T, fn func(context.Context, T) outcome) []outcome {
	outcomes := make([]outcome, len(items))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			itemCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			outcomes[i] = fn(itemCtx, item)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (j *Jobs) summarize(start time.Time, outcomes []outcome) *Result {
	result := &Result{StartTime: start, Total: len(outcomes)}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, JobError{
				Target:    o.target,
				Error:     o.err.Error(),
				Retryable: !errors.Is(o.err, trip.ErrRouteNotFound),
			})
			continue
		}
		result.Successful++
		result.Filled += o.filled
	}
	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(start)
	return result
}

// record updates timings; the caller holds the metrics lock.
func (j *Jobs) record(result *Result) {
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *Jobs) GetMetrics() Metrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return Metrics{
		WarmupRuns:      j.metrics.WarmupRuns,
		RoutesWarmed:    j.metrics.RoutesWarmed,
		RoutesFailed:    j.metrics.RoutesFailed,
		WaypointsFilled: j.metrics.WaypointsFilled,
		ProbeRuns:       j.metrics.ProbeRuns,
		ProbeFailures:   j.metrics.ProbeFailures,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *Jobs) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"warmup_runs":       m.WarmupRuns,
		"routes_warmed":     m.RoutesWarmed,
		"routes_failed":     m.RoutesFailed,
		"waypoints_filled":  m.WaypointsFilled,
		"probe_runs":        m.ProbeRuns,
		"probe_failures":    m.ProbeFailures,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
