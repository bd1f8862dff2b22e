package itinerary

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/clock"
)

// fixedNow is well before every departure used below, so no clamping occurs.
func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func mustParse(t *testing.T, dateTime, zone string) clock.LocalDateTime {
	t.Helper()
	ldt, err := clock.Parse(dateTime, zone)
	require.NoError(t, err)
	return ldt
}

func denverPair(dwellB int) []Waypoint {
	return []Waypoint{
		{Latitude: 39.7392, Longitude: -104.9903, Name: "A", Zone: "America/Denver"},
		{Latitude: 40.5853, Longitude: -105.0844, Name: "B", Zone: "America/Denver", DwellMinutes: dwellB},
	}
}

func TestBuild_DenverScenario(t *testing.T) {
	b := NewBuilder(fixedNow)

	it, err := b.Build(denverPair(30), mustParse(t, "2024-06-01 08:00", "America/Denver"),
		[]Segment{{DistanceMeters: 105000, DurationSeconds: 3600}})
	require.NoError(t, err)
	require.Len(t, it.Waypoints, 2)
	assert.True(t, it.Timed)

	a, bb := it.Waypoints[0], it.Waypoints[1]
	assert.Equal(t, "2024-06-01 08:00", a.Arrival.String())
	assert.Equal(t, "2024-06-01 08:00", a.Departure.String())
	assert.Equal(t, "2024-06-01 09:00", bb.Arrival.String())
	assert.Equal(t, "2024-06-01 09:30", bb.Departure.String())
	assert.Equal(t, 30, bb.DwellMinutes)
}

func TestBuild_TruncatesTravelSeconds(t *testing.T) {
	b := NewBuilder(fixedNow)

	it, err := b.Build(denverPair(30), mustParse(t, "2024-06-01 08:00", "America/Denver"),
		[]Segment{{DurationSeconds: 90}})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01 08:01", it.Waypoints[1].Arrival.String())
	assert.Equal(t, "2024-06-01 08:31", it.Waypoints[1].Departure.String())
}

func TestBuild_ClampsPastDeparture(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 6, 1, 16, 20, 45, 0, time.UTC) } // 10:20 MDT
	b := NewBuilder(now)

	it, err := b.Build(denverPair(0), mustParse(t, "2024-06-01 08:00", "America/Denver"),
		[]Segment{{DurationSeconds: 600}})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01 10:20", it.Waypoints[0].Arrival.String())
	assert.Equal(t, "2024-06-01 10:30", it.Waypoints[1].Arrival.String())
}

func TestBuild_CrossesZones(t *testing.T) {
	b := NewBuilder(fixedNow)
	waypoints := []Waypoint{
		{Name: "Las Vegas", Zone: "America/Los_Angeles", DwellMinutes: 15},
		{Name: "Salt Lake City", Zone: "America/Denver", DwellMinutes: 45},
		{Name: "Omaha", Zone: "America/Chicago"},
	}
	segments := []Segment{
		{DurationSeconds: 4*3600 + 59}, // 240 minutes
		{DurationSeconds: 5 * 3600},
	}

	it, err := b.Build(waypoints, mustParse(t, "2024-06-01 09:00", "America/Los_Angeles"), segments)
	require.NoError(t, err)

	expected := []struct{ arrival, departure string }{
		{"2024-06-01 09:00", "2024-06-01 09:15"},
		{"2024-06-01 14:15", "2024-06-01 15:00"},
		{"2024-06-01 21:00", "2024-06-01 21:00"},
	}
	for i, want := range expected {
		got := it.Waypoints[i]
		if got.Arrival.String() != want.arrival || got.Departure.String() != want.departure {
			t.Errorf("waypoint %d: got %s/%s, want %s/%s", i,
				got.Arrival, got.Departure, want.arrival, want.departure)
		}
		assert.Equal(t, waypoints[i].Zone, got.Arrival.Zone())
	}
}

func TestBuild_DepartureInOtherZone(t *testing.T) {
	b := NewBuilder(fixedNow)

	it, err := b.Build(denverPair(0), mustParse(t, "2024-06-01 10:00", "America/New_York"), nil)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01 08:00", it.Waypoints[0].Arrival.String())
}

func TestBuild_DepartureInSpringForwardGap(t *testing.T) {
	b := NewBuilder(fixedNow)

	it, err := b.Build(denverPair(15), mustParse(t, "2024-03-10 02:30", "America/Denver"),
		[]Segment{{DurationSeconds: 3600}})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-10 03:30", it.Waypoints[0].Arrival.String())
	assert.Equal(t, "2024-03-10 04:30", it.Waypoints[1].Arrival.String())
	assert.Equal(t, "2024-03-10 04:45", it.Waypoints[1].Departure.String())
}

func TestBuild_MissingSegmentsCountAsZero(t *testing.T) {
	b := NewBuilder(fixedNow)
	waypoints := []Waypoint{
		{Zone: "UTC"}, {Zone: "UTC", DwellMinutes: 10}, {Zone: "UTC"},
	}

	it, err := b.Build(waypoints, mustParse(t, "2024-06-01 08:00", "UTC"), []Segment{{DurationSeconds: 1200}})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01 08:20", it.Waypoints[1].Arrival.String())
	assert.Equal(t, "2024-06-01 08:30", it.Waypoints[2].Arrival.String())
}

func TestBuild_NegativeDwellIsZero(t *testing.T) {
	b := NewBuilder(fixedNow)

	it, err := b.Build(denverPair(-20), mustParse(t, "2024-06-01 08:00", "America/Denver"), nil)
	require.NoError(t, err)

	last := it.Waypoints[1]
	assert.Equal(t, 0, last.DwellMinutes)
	assert.Equal(t, last.Arrival.String(), last.Departure.String())
}

func TestBuild_UnknownZoneAbandonsWholeSchedule(t *testing.T) {
	b := NewBuilder(fixedNow)
	waypoints := []Waypoint{
		{Zone: "America/Denver"}, {Zone: "America/Denver"}, {Zone: "Atlantis/Capital"},
	}

	it, err := b.Build(waypoints, mustParse(t, "2024-06-01 08:00", "America/Denver"), nil)
	require.Error(t, err)
	assert.Empty(t, it.Waypoints)
	assert.False(t, it.Timed)

	var se *ScheduleError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Waypoint)
	assert.ErrorIs(t, err, TemporalParseFailure)
	assert.ErrorIs(t, err, clock.ErrUnknownZone)
}

func TestBuild_RejectsTooFewWaypointsAndZeroDeparture(t *testing.T) {
	b := NewBuilder(fixedNow)

	_, err := b.Build(denverPair(0)[:1], mustParse(t, "2024-06-01 08:00", "America/Denver"), nil)
	assert.ErrorIs(t, err, InsufficientInput)
	assert.NotErrorIs(t, err, TemporalParseFailure)

	_, err = b.Build(denverPair(0), clock.LocalDateTime{}, nil)
	assert.ErrorIs(t, err, TemporalParseFailure)
}

func TestScheduleError_ClassifiesOnlyTemporalCauses(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		temporal bool
	}{
		{"bad format", clock.ErrInvalidFormat, true},
		{"unknown zone", clock.ErrUnknownZone, true},
		{"wrapped zone error", fmt.Errorf("waypoint zone: %w", clock.ErrUnknownZone), true},
		{"too few waypoints", InsufficientInput, false},
		{"unrelated", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := error(&ScheduleError{Waypoint: -1, Err: tt.cause})
			assert.Equal(t, tt.temporal, errors.Is(err, TemporalParseFailure))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestBuild_Properties(t *testing.T) {
	b := NewBuilder(fixedNow)
	waypoints := []Waypoint{
		{Zone: "Europe/Lisbon", DwellMinutes: 5},
		{Zone: "Europe/Lisbon", DwellMinutes: 90},
		{Zone: "Europe/Lisbon", DwellMinutes: 0},
		{Zone: "Europe/Lisbon", DwellMinutes: 1440},
		{Zone: "Europe/Lisbon", DwellMinutes: 7},
	}
	segments := []Segment{{DurationSeconds: 59}, {DurationSeconds: 7261.9}, {DurationSeconds: 0}, {DurationSeconds: 86400}}
	departure := mustParse(t, "2024-10-26 23:10", "Europe/Lisbon") // spans the October DST change

	first, err := b.Build(waypoints, departure, segments)
	require.NoError(t, err)
	second, err := b.Build(waypoints, departure, segments)
	require.NoError(t, err)

	require.Len(t, first.Waypoints, len(waypoints))
	for i, wp := range first.Waypoints {
		assert.Equal(t, second.Waypoints[i].Arrival.String(), wp.Arrival.String(), "idempotent arrival %d", i)
		assert.Equal(t, second.Waypoints[i].Departure.String(), wp.Departure.String(), "idempotent departure %d", i)

		back := clock.AddMinutes(wp.Departure.String(), wp.Zone, -wp.DwellMinutes)
		assert.Equal(t, wp.Arrival.String(), back, "dwell round trip %d", i)

		if i < len(first.Waypoints)-1 {
			next := first.Waypoints[i+1]
			assert.False(t, next.Arrival.Before(*wp.Departure), "non-decreasing at %d", i)
		}
	}
}

func TestUntimed(t *testing.T) {
	it := Untimed(denverPair(-5))

	require.Len(t, it.Waypoints, 2)
	assert.False(t, it.Timed)
	for _, wp := range it.Waypoints {
		assert.Nil(t, wp.Arrival)
		assert.Nil(t, wp.Departure)
		assert.Equal(t, "America/Denver", wp.Zone)
	}
	assert.Equal(t, 0, it.Waypoints[1].DwellMinutes)
}

func TestTravelMinutes(t *testing.T) {
	segments := []Segment{{DurationSeconds: 59}, {DurationSeconds: 60}, {DurationSeconds: 119.99}, {DurationSeconds: -90}}

	assert.Equal(t, 0, TravelMinutes(segments, 0))
	assert.Equal(t, 1, TravelMinutes(segments, 1))
	assert.Equal(t, 1, TravelMinutes(segments, 2))
	assert.Equal(t, -1, TravelMinutes(segments, 3))
	assert.Equal(t, 0, TravelMinutes(segments, 4))
	assert.Equal(t, 0, TravelMinutes(nil, 0))
}
