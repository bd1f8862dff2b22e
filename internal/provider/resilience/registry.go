package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Status summarises a provider's breaker state.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// ProviderHealth is a point-in-time view of one upstream provider
// (routing, geocoding, time zone, weather, charging stations).
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	// Calls and Failures count logical calls since start, retries folded in.
	Calls    uint64
	Failures uint64

	// LastLatency is the duration of the most recent call, retries included.
	LastLatency time.Duration

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Status maps the breaker state: closed is up, half-open is degraded and
// open is down.
func (h ProviderHealth) Status() Status {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		return StatusUp
	case gobreaker.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusDown
	}
}

// RequestRecorder receives the outcome of every provider call, retries
// included in the duration.
type RequestRecorder interface {
	RecordRequest(provider string, duration time.Duration, err error)
}

// Registry tracks upstream provider clients for the ops status endpoint
// and forwards call outcomes to an optional RequestRecorder.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*providerEntry
	recorder  RequestRecorder
	now       func() time.Time
}

type providerEntry struct {
	client *Client
	health ProviderHealth
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*providerEntry),
		now:       time.Now,
	}
}

// Register adds client under name, replacing any earlier client and its
// history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &providerEntry{client: client, health: ProviderHealth{Name: name}}
}

// SetRecorder installs rec for all registered clients.
func (r *Registry) SetRecorder(rec RequestRecorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
}

// Record notes the outcome of one call to name. Unknown names still reach
// the recorder but keep no history.
func (r *Registry) Record(name string, d time.Duration, err error) {
	r.mu.Lock()
	rec := r.recorder
	if e, ok := r.providers[name]; ok {
		now := r.now()
		e.health.Calls++
		e.health.LastLatency = d
		if err != nil {
			e.health.Failures++
			e.health.LastFailureAt = &now
			e.health.LastError = err.Error()
		} else {
			e.health.LastSuccessAt = &now
		}
	}
	r.mu.Unlock()

	if rec != nil {
		rec.RecordRequest(name, d, err)
	}
}

// Health returns the health of name, or false if it was never registered.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.snapshot(), true
}

// All returns the health of every registered provider ordered by name.
func (r *Registry) All() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.providers))
	for _, e := range r.providers {
		out = append(out, e.snapshot())
	}
	slices.SortFunc(out, func(a, b ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

func (e *providerEntry) snapshot() ProviderHealth {
	h := e.health
	h.CircuitState = e.client.CircuitBreakerState()
	h.Counts = e.client.CircuitBreakerCounts()
	return h
}
