package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/api/models"
)

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"unauthorized", models.NewUnauthorized("req_1", "invalid access token"), models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized},
		{"forbidden", models.NewForbidden("req_1", "route belongs to another user"), models.ProblemTypeForbidden, "Forbidden", http.StatusForbidden},
		{"not found", models.NewNotFound("req_1", "route not found"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"too many", models.NewTooManyRequests("req_1", "slow down"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_1", "boom"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"bad gateway", models.NewBadGateway("req_1", "geoapify failed"), models.ProblemTypeUpstream, "Upstream provider error", http.StatusBadGateway},
		{"unavailable", models.NewServiceUnavailable("req_1", "no publisher"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "req_1", tt.problem.TraceID)
			assert.NotEmpty(t, tt.problem.Detail)
			assert.Nil(t, tt.problem.Errors)
		})
	}
}

func TestNewBadRequest(t *testing.T) {
	fields := []models.FieldError{{Field: "waypoints", Message: "at least two waypoints are required", Code: "MIN_ITEMS"}}
	p := models.NewBadRequest("req_2", "invalid route request", fields)

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "invalid route request", p.Detail)
	assert.Equal(t, fields, p.Errors)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewNotFound("req_3", "route not found")
	p.Instance = "/v1/trips/7d5c"

	rec := httptest.NewRecorder()
	p.Write(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_3", rec.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ProblemTypeNotFound, body["type"])
	assert.Equal(t, "/v1/trips/7d5c", body["instance"])
	assert.Equal(t, "req_3", body["traceId"])
	assert.NotContains(t, body, "errors")
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	rec := httptest.NewRecorder()
	models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, "").Write(rec)

	if got := rec.Header().Get("X-Request-Id"); got != "" {
		t.Errorf("X-Request-Id = %q, want unset", got)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
