package itinerary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/clock"
)

func testRoute() *Route {
	return &Route{
		Geometry:        [][]float64{{-104.9903, 39.7392, 1609.3}, {-105.0844, 40.5853, 1525.0}},
		DistanceMeters:  105000,
		DurationSeconds: 3600,
		Segments:        []Segment{{DistanceMeters: 105000, DurationSeconds: 3600}},
	}
}

func TestAssemble_Timed(t *testing.T) {
	a := NewAssembler(NewBuilder(fixedNow))
	dep := mustParse(t, "2024-06-01 08:00", "America/Denver")

	res := a.Assemble(testRoute(), denverPair(30), &dep)

	assert.False(t, res.Failed())
	assert.Nil(t, res.Err)
	assert.NoError(t, res.ScheduleErr)
	assert.True(t, res.Timed)
	assert.Equal(t, 105000.0, res.DistanceMeters)
	assert.Equal(t, 3600.0, res.DurationSeconds)
	require.Len(t, res.Waypoints, 2)
	assert.Equal(t, "2024-06-01 09:30", res.Waypoints[1].Departure.String())
	assert.Equal(t, -104.9903, res.Waypoints[0].Longitude)
	assert.Equal(t, 39.7392, res.Waypoints[0].Latitude)
}

func TestAssemble_NoDepartureIsUntimed(t *testing.T) {
	a := NewAssembler(NewBuilder(fixedNow))

	res := a.Assemble(testRoute(), denverPair(30), nil)

	assert.False(t, res.Failed())
	assert.False(t, res.Timed)
	assert.NoError(t, res.ScheduleErr)
	require.Len(t, res.Waypoints, 2)
	for _, wp := range res.Waypoints {
		assert.Nil(t, wp.Arrival)
		assert.Nil(t, wp.Departure)
	}
	assert.Equal(t, 30, res.Waypoints[1].DwellMinutes)
}

func TestAssemble_SchedulingFailureFallsBackToUntimed(t *testing.T) {
	a := NewAssembler(NewBuilder(fixedNow))
	dep := mustParse(t, "2024-06-01 08:00", "America/Denver")
	waypoints := denverPair(0)
	waypoints[1].Zone = "Invalid/Zone"

	res := a.Assemble(testRoute(), waypoints, &dep)

	assert.False(t, res.Failed())
	assert.False(t, res.Timed)
	assert.ErrorIs(t, res.ScheduleErr, TemporalParseFailure)
	for _, wp := range res.Waypoints {
		assert.Nil(t, wp.Arrival, "no partial schedule")
	}
	assert.Equal(t, "Invalid/Zone", res.Waypoints[1].Zone)
}

func TestAssemble_SingleWaypointIsErrorResult(t *testing.T) {
	a := NewAssembler(nil)
	dep := mustParse(t, "2024-06-01 08:00", "America/Denver")

	res := a.Assemble(testRoute(), denverPair(0)[:1], &dep)

	assert.True(t, res.Failed())
	assert.Empty(t, res.Geometry)
	assert.NotNil(t, res.Geometry)
	assert.Zero(t, res.DistanceMeters)
	assert.Zero(t, res.DurationSeconds)
	assert.True(t, errors.Is(res.Err, InsufficientInput))
}

func TestAssemble_UnusableGeometry(t *testing.T) {
	a := NewAssembler(nil)

	tests := []struct {
		name  string
		route *Route
	}{
		{"nil route", nil},
		{"empty geometry", &Route{DistanceMeters: 10}},
		{"short point", &Route{Geometry: [][]float64{{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Assemble(tt.route, denverPair(0), nil)
			assert.True(t, res.Failed())
			assert.Zero(t, res.DistanceMeters)
			assert.ErrorIs(t, res.Err, UpstreamUnavailable)
			assert.NotEmpty(t, res.Message())
		})
	}
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult(NewError(ConfigurationMissing, "ORS_API_KEY is not set", nil))

	assert.True(t, res.Failed())
	assert.Equal(t, "ORS_API_KEY is not set", res.Message())
	assert.ErrorIs(t, res.Err, ConfigurationMissing)
	assert.NotErrorIs(t, res.Err, UpstreamUnavailable)
}

func TestError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(UpstreamUnavailable, "routing request failed", cause)

	assert.Equal(t, "routing request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, UpstreamUnavailable)
	assert.Equal(t, "upstream unavailable", NewError(UpstreamUnavailable, "", nil).Error())
}

func TestAssemble_DepartureRenderedInFirstZone(t *testing.T) {
	a := NewAssembler(NewBuilder(fixedNow))
	dep, err := clock.ToZoned("2024-06-01", "08:00", "UTC")
	require.NoError(t, err)

	res := a.Assemble(testRoute(), denverPair(0), &dep)

	require.True(t, res.Timed)
	assert.Equal(t, "2024-06-01 02:00", res.Waypoints[0].Arrival.String())
	assert.Equal(t, "America/Denver", res.Waypoints[0].Arrival.Zone())
}
