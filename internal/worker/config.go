// Package worker runs TripWeather's background jobs: filling waypoint
// zones of saved routes and probing the zone and weather providers.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Probe is a place checked by the health check job. When Zone is set the
// resolved zone must match it, so a provider outage that degrades lookups
// to the longitude approximation shows up as a failure.
type Probe struct {
	Name string
	Lat  float64
	Lon  float64
	Zone string
}

type Config struct {
	// Concurrency is the number of routes or probes handled at once.
	Concurrency int

	// Timeout bounds the work on a single route or probe.
	Timeout time.Duration

	Probes []Probe

	// ProbeWeather adds a forecast lookup to each probe.
	ProbeWeather bool

	// ProbeInterval paces health checks when Pub/Sub is not configured.
	ProbeInterval time.Duration

	// MaxOutstandingMessages caps unacked Pub/Sub messages held at once.
	MaxOutstandingMessages int
}

func DefaultConfig() Config {
	return Config{
		Concurrency:            3,
		Timeout:                30 * time.Second,
		Probes:                 DefaultProbes(),
		ProbeWeather:           true,
		ProbeInterval:          15 * time.Minute,
		MaxOutstandingMessages: 10,
	}
}

// ConfigFromEnv returns DefaultConfig adjusted by WORKER_CONCURRENCY,
// WORKER_PROBE_INTERVAL, WORKER_PROBE_WEATHER and
// WORKER_MAX_OUTSTANDING. Invalid values keep the default.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_PROBE_INTERVAL")); err == nil && d > 0 {
		cfg.ProbeInterval = d
	}
	if b, err := strconv.ParseBool(os.Getenv("WORKER_PROBE_WEATHER")); err == nil {
		cfg.ProbeWeather = b
	}
	if v, err := strconv.Atoi(os.Getenv("WORKER_MAX_OUTSTANDING")); err == nil && v > 0 {
		cfg.MaxOutstandingMessages = v
	}
	return cfg
}

// DefaultProbes covers each US zone band, including Phoenix which skips
// daylight saving.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "San Francisco", Lat: 37.7749, Lon: -122.4194, Zone: "America/Los_Angeles"},
		{Name: "Denver", Lat: 39.7392, Lon: -104.9903, Zone: "America/Denver"},
		{Name: "Phoenix", Lat: 33.4484, Lon: -112.0740, Zone: "America/Phoenix"},
		{Name: "Chicago", Lat: 41.8781, Lon: -87.6298, Zone: "America/Chicago"},
		{Name: "New York", Lat: 40.7128, Lon: -74.0060, Zone: "America/New_York"},
		{Name: "Anchorage", Lat: 61.2181, Lon: -149.9003, Zone: "America/Anchorage"},
		{Name: "Honolulu", Lat: 21.3069, Lon: -157.8583, Zone: "Pacific/Honolulu"},
	}
}
