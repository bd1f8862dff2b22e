package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	callCount int
	forecast  *weather.Forecast
	err       error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GetForecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	f := *m.forecast
	f.Lat, f.Lon = lat, lon
	return &f, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func intPtr(v int) *int { return &v }

var mdt = time.FixedZone("MDT", -6*3600)

func denverForecast() *weather.Forecast {
	return &weather.Forecast{
		Periods: []weather.Period{
			{
				Name:            "Today",
				StartTime:       time.Date(2024, 6, 1, 6, 0, 0, 0, mdt),
				EndTime:         time.Date(2024, 6, 1, 18, 0, 0, 0, mdt),
				Temperature:     intPtr(84),
				TemperatureUnit: "F",
				WindSpeed:       "5 to 10 mph",
				WindDirection:   "SE",
				ShortForecast:   "Mostly Sunny",
			},
			{
				Name:          "Tonight",
				StartTime:     time.Date(2024, 6, 1, 18, 0, 0, 0, mdt),
				EndTime:       time.Date(2024, 6, 2, 6, 0, 0, 0, mdt),
				Temperature:   intPtr(55),
				ShortForecast: "Chance Showers And Thunderstorms",
			},
		},
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestService_ReportAt(t *testing.T) {
	svc := weather.NewService(weather.ServiceConfig{
		Provider: &mockProvider{forecast: denverForecast()},
		Logger:   zerolog.Nop(),
	})
	ctx := context.Background()

	tests := []struct {
		name      string
		at        time.Time
		condition string
		temp      int
		unit      string
	}{
		{"inside first period", time.Date(2024, 6, 1, 9, 0, 0, 0, mdt), "Mostly Sunny", 84, "F"},
		{"period start is inclusive", time.Date(2024, 6, 1, 18, 0, 0, 0, mdt), "Chance Showers And Thunderstorms", 55, "F"},
		{"before all periods uses first", time.Date(2024, 5, 30, 9, 0, 0, 0, mdt), "Mostly Sunny", 84, "F"},
		{"after all periods uses first", time.Date(2024, 6, 9, 9, 0, 0, 0, mdt), "Mostly Sunny", 84, "F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := svc.ReportAt(ctx, 39.7392, -104.9903, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.condition, r.Condition)
			require.NotNil(t, r.Temperature)
			assert.Equal(t, tt.temp, *r.Temperature)
			assert.Equal(t, tt.unit, r.TemperatureUnit)
		})
	}
}

func TestService_ReportAt_FillsGaps(t *testing.T) {
	svc := weather.NewService(weather.ServiceConfig{Provider: &mockProvider{forecast: denverForecast()}})

	r, err := svc.ReportAt(context.Background(), 39.7392, -104.9903, time.Date(2024, 6, 1, 22, 0, 0, 0, mdt))
	require.NoError(t, err)

	assert.Equal(t, "F", r.TemperatureUnit)
	assert.Equal(t, "Unknown", r.WindSpeed)
	assert.Equal(t, "Unknown", r.WindDirection)
	assert.Equal(t, weather.ConditionThunderstorm, r.Category)
}

func TestService_ReportAt_EmptyForecast(t *testing.T) {
	svc := weather.NewService(weather.ServiceConfig{Provider: &mockProvider{forecast: &weather.Forecast{}}})

	_, err := svc.ReportAt(context.Background(), 39.7392, -104.9903, time.Now())
	assert.ErrorIs(t, err, weather.ErrNoPeriod)
}

func TestService_CachingAndStaleIfError(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	provider := &mockProvider{forecast: denverForecast()}
	svc := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		CacheTTL:        30 * time.Minute,
		StaleIfErrorTTL: 2 * time.Hour,
		Now:             clk.Now,
	})
	ctx := context.Background()

	_, err := svc.GetForecast(ctx, 39.7392, -104.9903)
	require.NoError(t, err)
	_, err = svc.GetForecast(ctx, 39.7401, -104.9899)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls(), "same grid cell should hit cache")

	clk.Advance(time.Hour)
	provider.fail(errors.New("connection reset"))

	f, err := svc.GetForecast(ctx, 39.7392, -104.9903)
	require.NoError(t, err, "stale forecast should be served")
	assert.Len(t, f.Periods, 2)

	clk.Advance(2 * time.Hour)
	_, err = svc.GetForecast(ctx, 39.7392, -104.9903)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)

	stats := svc.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Zero(t, stats.Fresh)
	assert.Zero(t, stats.Stale)
}

func TestService_NoDataIsNotMasked(t *testing.T) {
	provider := &mockProvider{err: weather.ErrNoDataForLocation}
	svc := weather.NewService(weather.ServiceConfig{Provider: provider})

	_, err := svc.GetForecast(context.Background(), 51.5, -0.12)
	assert.ErrorIs(t, err, weather.ErrNoDataForLocation)
	assert.NotErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_InvalidCoordinates(t *testing.T) {
	provider := &mockProvider{forecast: denverForecast()}
	svc := weather.NewService(weather.ServiceConfig{Provider: provider})

	_, err := svc.GetForecast(context.Background(), 91, 0)
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
	assert.Equal(t, 0, provider.calls())
}

func TestService_ReportsAlong(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)}
	svc := weather.NewService(weather.ServiceConfig{
		Provider: &mockProvider{forecast: denverForecast()},
		Now:      clk.Now,
	})

	evening := time.Date(2024, 6, 1, 20, 0, 0, 0, mdt)
	reports := svc.ReportsAlong(context.Background(), []weather.Stop{
		{Lat: 39.7392, Lon: -104.9903},
		{Lat: 40.5853, Lon: -105.0844, At: &evening},
		{Lat: 123, Lon: 0},
	})

	require.Len(t, reports, 3)
	assert.Equal(t, "Mostly Sunny", reports[0].Condition)
	assert.Equal(t, "Chance Showers And Thunderstorms", reports[1].Condition)
	assert.Equal(t, "Invalid coordinates", reports[2].Error)
}

func TestClassifyCondition(t *testing.T) {
	tests := map[string]weather.Condition{
		"Mostly Sunny":                     weather.ConditionClear,
		"Chance Showers And Thunderstorms": weather.ConditionThunderstorm,
		"Slight Chance Light Rain":         weather.ConditionRain,
		"Patchy Fog":                       weather.ConditionFog,
		"Partly Cloudy":                    weather.ConditionClouds,
		"Snow Likely":                      weather.ConditionSnow,
		"Areas Of Smoke":                   weather.ConditionHaze,
		"":                                 weather.ConditionUnknown,
	}
	for text, want := range tests {
		if got := weather.ClassifyCondition(text); got != want {
			t.Errorf("ClassifyCondition(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Unable to get forecast URL for location", weather.Describe(weather.ErrNoDataForLocation))
	assert.Equal(t, "No forecast available for selected date/time", weather.Describe(weather.ErrNoPeriod))
	assert.Equal(t, "Error fetching weather: boom", weather.Describe(errors.New("boom")))
}
