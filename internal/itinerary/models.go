// Package itinerary computes arrival and departure times along a multi-stop
// route and assembles them with routing output into a single result.
//
// Everything in this package is pure: no I/O, no shared state, no locking.
// Zones must be resolved by the caller before scheduling.
package itinerary

import (
	"github.com/tripweather/tripweather/internal/clock"
)

// Waypoint is a stop as supplied by the caller.
type Waypoint struct {
	Latitude     float64
	Longitude    float64
	Name         string
	Zone         string // IANA identifier, resolved before scheduling
	DwellMinutes int
}

// Segment is the routing leg between waypoint i and waypoint i+1.
type Segment struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// ScheduledWaypoint is a waypoint with its computed times.
// Arrival and Departure are nil when the itinerary is untimed.
type ScheduledWaypoint struct {
	Longitude    float64
	Latitude     float64
	Name         string
	Zone         string
	Arrival      *clock.LocalDateTime
	Departure    *clock.LocalDateTime
	DwellMinutes int
}

// Itinerary is the ordered schedule, one entry per input waypoint.
type Itinerary struct {
	Waypoints []ScheduledWaypoint
	Timed     bool
}

// Route is the routing provider output the assembler consumes.
type Route struct {
	// Geometry holds [lon, lat] or [lon, lat, elevation] points.
	Geometry        [][]float64
	DistanceMeters  float64
	DurationSeconds float64
	Segments        []Segment
}

// Result is the assembled response. A failed request yields the canonical
// error result: empty geometry, zero distance and duration, Err set.
type Result struct {
	Geometry        [][]float64
	DistanceMeters  float64
	DurationSeconds float64
	Segments        []Segment
	Waypoints       []ScheduledWaypoint
	Timed           bool

	// Err is set only on the error result.
	Err *Error
	// ScheduleErr records why a requested timed schedule fell back to untimed.
	ScheduleErr error
}

// Failed reports whether r is the error result.
func (r Result) Failed() bool {
	return len(r.Geometry) == 0
}

// Message returns the error message, or "" for a successful result.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func normalizeDwell(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes
}
