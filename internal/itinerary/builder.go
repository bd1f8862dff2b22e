package itinerary

import (
	"fmt"
	"math"
	"time"

	"github.com/tripweather/tripweather/internal/clock"
)

// Builder computes timed itineraries.
type Builder struct {
	now clock.NowFunc
}

// NewBuilder creates a Builder. A nil now uses time.Now; it is read once per
// Build to clamp a departure that lies in the past.
func NewBuilder(now clock.NowFunc) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build propagates departure through waypoints. Travel time for leg i is
// segments[i].DurationSeconds truncated to whole minutes; a missing segment
// counts as zero.
//
// Scheduling is all-or-nothing: on any failure Build returns a zero
// Itinerary and a *ScheduleError, never a partially timed result.
func (b *Builder) Build(waypoints []Waypoint, departure clock.LocalDateTime, segments []Segment) (Itinerary, error) {
	if len(waypoints) < 2 {
		return Itinerary{}, &ScheduleError{Waypoint: -1, Err: InsufficientInput}
	}
	if departure.IsZero() {
		return Itinerary{}, &ScheduleError{Waypoint: -1, Err: fmt.Errorf("%w: departure not set", clock.ErrInvalidFormat)}
	}

	current, err := departure.In(waypoints[0].Zone)
	if err != nil {
		return Itinerary{}, &ScheduleError{Waypoint: 0, Err: err}
	}
	now, err := clock.NowIn(waypoints[0].Zone, b.now)
	if err != nil {
		return Itinerary{}, &ScheduleError{Waypoint: 0, Err: err}
	}
	if current.Before(now) {
		current = now
	}

	out := make([]ScheduledWaypoint, len(waypoints))
	for i, wp := range waypoints {
		arrival := current
		if i > 0 {
			if arrival, err = current.In(wp.Zone); err != nil {
				return Itinerary{}, &ScheduleError{Waypoint: i, Err: err}
			}
		}

		dwell := normalizeDwell(wp.DwellMinutes)
		leave := arrival.AddMinutes(dwell)

		if i < len(waypoints)-1 {
			current = leave.AddMinutes(TravelMinutes(segments, i))
		}

		out[i] = ScheduledWaypoint{
			Longitude:    wp.Longitude,
			Latitude:     wp.Latitude,
			Name:         wp.Name,
			Zone:         wp.Zone,
			Arrival:      &arrival,
			Departure:    &leave,
			DwellMinutes: dwell,
		}
	}

	return Itinerary{Waypoints: out, Timed: true}, nil
}

// Untimed returns the itinerary without arrival or departure times.
func Untimed(waypoints []Waypoint) Itinerary {
	out := make([]ScheduledWaypoint, len(waypoints))
	for i, wp := range waypoints {
		out[i] = ScheduledWaypoint{
			Longitude:    wp.Longitude,
			Latitude:     wp.Latitude,
			Name:         wp.Name,
			Zone:         wp.Zone,
			DwellMinutes: normalizeDwell(wp.DwellMinutes),
		}
	}
	return Itinerary{Waypoints: out}
}

// TravelMinutes returns the whole minutes of segment i, truncated toward
// zero. Missing or non-finite durations count as zero.
func TravelMinutes(segments []Segment, i int) int {
	if i < 0 || i >= len(segments) {
		return 0
	}
	d := segments[i].DurationSeconds
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return int(d) / 60
}
