// Package resilience wraps calls to upstream map, weather and charging
// station APIs with timeouts, retries and circuit breakers.
package resilience

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker guarding one provider.
type BreakerConfig struct {
	// HalfOpenProbes is how many calls may pass while half-open.
	HalfOpenProbes uint32

	// OpenFor is how long the breaker rejects calls before probing again.
	OpenFor time.Duration

	// ResetEvery clears the closed-state counts periodically. Zero never clears.
	ResetEvery time.Duration

	// Trip decides when the closed breaker opens. Nil means FailureRatio(5, 0.5).
	Trip func(counts gobreaker.Counts) bool

	// OnStateChange is told about every transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig opens after half of at least five calls fail and
// probes again after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		HalfOpenProbes: 1,
		OpenFor:        time.Minute,
		Trip:           FailureRatio(5, 0.5),
	}
}

// FailureRatio trips once minRequests have been seen and the share of
// failures reaches ratio.
func FailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests < minRequests || c.Requests == 0 {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	trip := cfg.Trip
	if trip == nil {
		trip = FailureRatio(5, 0.5)
	}
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.HalfOpenProbes,
		Interval:      cfg.ResetEvery,
		Timeout:       cfg.OpenFor,
		ReadyToTrip:   trip,
		OnStateChange: cfg.OnStateChange,
	})
}

// logTransitions logs breaker transitions, at warn level unless the
// breaker closed again.
func logTransitions(logger zerolog.Logger) func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		event := logger.Warn()
		if to == gobreaker.StateClosed {
			event = logger.Info()
		}
		event.
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// ProviderConfig returns DefaultClientConfig for name with state changes
// logged and the client registered in registry.
func ProviderConfig(name string, registry *Registry, logger zerolog.Logger) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.Breaker.OnStateChange = logTransitions(logger)
	cfg.Registry = registry
	return cfg
}
