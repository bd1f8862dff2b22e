// Package handler provides HTTP handlers for the TripWeather API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/cache"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/provider/resilience"
)

// Pinger checks a backing store. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheReporter exposes upstream response cache counts. The routing and
// weather services implement it.
type CacheReporter interface {
	CacheStats() cache.Stats
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	providers *resilience.Registry
	caches    map[string]CacheReporter
}

// NewOpsHandler creates a new OpsHandler. db and providers may be nil when
// the service runs without a database or without upstream providers.
func NewOpsHandler(version, buildTime string, db Pinger, providers *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		providers: providers,
	}
}

// ReportCaches adds caches to the status endpoint, keyed by name.
func (h *OpsHandler) ReportCaches(caches map[string]CacheReporter) *OpsHandler {
	h.caches = caches
	return h
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	db := h.databaseStatus(r.Context())
	if db.Status == models.HealthStatusFail {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]any{"database": db.Detail},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Providers:  []models.ProviderStatus{},
	}

	if h.providers != nil {
		for _, ph := range h.providers.All() {
			status.Providers = append(status.Providers, toProviderStatus(ph))
		}
	}

	if len(h.caches) > 0 {
		status.Caches = make(map[string]cache.Stats, len(h.caches))
		for name, c := range h.caches {
			status.Caches[name] = c.CacheStats()
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		// An open circuit on one provider degrades the service; it does not fail it.
		if p.Status != models.HealthStatusOK {
			status.Status = worst(status.Status, models.HealthStatusDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	if h.db == nil {
		detail := "in-memory storage"
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK, Detail: &detail}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		detail := err.Error()
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusFail, Detail: &detail}
	}
	return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
}

func toProviderStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       providerHealth[ph.Status()],
		CircuitState: ph.CircuitState.String(),
		Calls:        ph.Calls,
		Failures:     ph.Failures,
		LatencyMs:    ph.LastLatency.Milliseconds(),
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

var providerHealth = map[resilience.Status]models.HealthStatus{
	resilience.StatusUp:       models.HealthStatusOK,
	resilience.StatusDegraded: models.HealthStatusDegraded,
	resilience.StatusDown:     models.HealthStatusFail,
}

var healthRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	if healthRank[b] > healthRank[a] {
		return b
	}
	return a
}
