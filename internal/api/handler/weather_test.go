package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/weather"
)

type fixedZone string

func (z fixedZone) LookupZone(context.Context, float64, float64) string { return string(z) }

func newWeatherHandler(w WeatherReporter) *WeatherHandler {
	h := NewWeatherHandler(w, fixedZone("America/Denver"), zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestWeatherHandler_Forecast(t *testing.T) {
	temp := 64
	rep := &stubWeather{report: weather.Report{
		Condition:       "Partly Cloudy",
		Category:        weather.ConditionClear,
		Temperature:     &temp,
		TemperatureUnit: "F",
		StartTime:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC),
	}}
	h := newWeatherHandler(rep)

	tests := []struct {
		name  string
		query string
		want  time.Time
	}{
		{"now", "", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"dateTime in location zone", "&dateTime=2024-06-02+08:00", time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC)},
		{"date and time", "&date=2024-06-02&time=08:00", time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC)},
		{"explicit zone", "&dateTime=2024-06-02+08:00&timezone=UTC", time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)},
		{"unknown zone falls back", "&dateTime=2024-06-02+08:00&timezone=Nowhere/Else", time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Forecast(rec, httptest.NewRequest(http.MethodGet, "/v1/weather?latitude=39.74&longitude=-104.99"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			require.NotEmpty(t, rep.atCalls)
			assert.True(t, tt.want.Equal(rep.atCalls[len(rep.atCalls)-1]), "got %s", rep.atCalls[len(rep.atCalls)-1])

			var body models.WeatherResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "Partly Cloudy", body.Condition)
			assert.Equal(t, "CLEAR", body.Category)
			assert.NotNil(t, body.PeriodStart)
		})
	}
}

func TestWeatherHandler_ForecastErrors(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		err       error
		status    int
		errorText string
	}{
		{"bad coordinates", "latitude=x&longitude=1", nil, http.StatusBadRequest, ""},
		{"bad date-time", "latitude=1&longitude=1&dateTime=tomorrow", nil, http.StatusBadRequest, ""},
		{"no grid", "latitude=1&longitude=1", weather.ErrNoDataForLocation, http.StatusOK, "Unable to get forecast URL for location"},
		{"no period", "latitude=1&longitude=1", fmt.Errorf("lookup: %w", weather.ErrNoPeriod), http.StatusOK, "No forecast available for selected date/time"},
		{"provider down", "latitude=1&longitude=1", errors.Join(weather.ErrProviderUnavailable, errors.New("503")), http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newWeatherHandler(&stubWeather{err: tt.err})

			rec := httptest.NewRecorder()
			h.Forecast(rec, httptest.NewRequest(http.MethodGet, "/v1/weather?"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.errorText != "" {
				var body models.WeatherResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.errorText, body.Error)
				assert.Empty(t, body.Condition)
			}
		})
	}
}
