package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/cache"
	"github.com/tripweather/tripweather/internal/provider/resilience"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := NewOpsHandler("1.2.3", "2024-01-01T00:00:00Z", nil, nil)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
}

func TestOpsHandler_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
	}{
		{"in-memory", nil, http.StatusOK},
		{"database up", stubPinger{}, http.StatusOK},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOpsHandler("test", "", tt.db, nil)

			rec := httptest.NewRecorder()
			h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "openrouteservice", Registry: registry})
	resilience.NewClient(resilience.ClientConfig{Name: "nws", Registry: registry})
	registry.Record("openrouteservice", 120*time.Millisecond, nil)
	registry.Record("nws", 2*time.Second, errors.New("status 503"))

	h := NewOpsHandler("test", "", stubPinger{}, registry)

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "database", status.Subsystems[0].Name)

	require.Len(t, status.Providers, 2)
	assert.Equal(t, "nws", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, "status 503", *status.Providers[0].Message)
	assert.NotNil(t, status.Providers[0].LastFailureAt)
	assert.Equal(t, uint64(1), status.Providers[0].Failures)
	assert.Equal(t, int64(2000), status.Providers[0].LatencyMs)
	assert.Equal(t, uint64(1), status.Providers[1].Calls)
	assert.NotNil(t, status.Providers[1].LastSuccessAt)
}

type stubCache cache.Stats

func (c stubCache) CacheStats() cache.Stats { return cache.Stats(c) }

func TestOpsHandler_SystemStatusCaches(t *testing.T) {
	h := NewOpsHandler("test", "", nil, nil).ReportCaches(map[string]CacheReporter{
		"routing": stubCache{Entries: 3, Fresh: 2, Stale: 1},
	})

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))

	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, map[string]cache.Stats{"routing": {Entries: 3, Fresh: 2, Stale: 1}}, status.Caches)
}

func TestOpsHandler_SystemStatusDatabaseDown(t *testing.T) {
	h := NewOpsHandler("test", "", stubPinger{err: errors.New("timeout")}, nil)

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))

	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.Empty(t, status.Providers)
}

func TestWorst(t *testing.T) {
	assert.Equal(t, models.HealthStatusDegraded, worst(models.HealthStatusOK, models.HealthStatusDegraded))
	assert.Equal(t, models.HealthStatusFail, worst(models.HealthStatusFail, models.HealthStatusDegraded))
	assert.Equal(t, models.HealthStatusOK, worst(models.HealthStatusOK, models.HealthStatusOK))
}
