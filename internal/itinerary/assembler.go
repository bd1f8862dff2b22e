package itinerary

import (
	"github.com/tripweather/tripweather/internal/clock"
)

// Assembler merges routing output with a schedule.
type Assembler struct {
	builder *Builder
}

// NewAssembler creates an Assembler around builder.
func NewAssembler(builder *Builder) *Assembler {
	if builder == nil {
		builder = NewBuilder(nil)
	}
	return &Assembler{builder: builder}
}

// Assemble produces the final result for a routed request. A nil departure
// yields an untimed itinerary, as does a scheduling failure, in which case
// Result.ScheduleErr carries the cause. Fewer than two waypoints or a route
// without usable geometry yields the error result.
func (a *Assembler) Assemble(route *Route, waypoints []Waypoint, departure *clock.LocalDateTime) Result {
	if len(waypoints) < 2 {
		return ErrorResult(NewError(InsufficientInput, "at least two waypoints are required", nil))
	}
	if route == nil || !usableGeometry(route.Geometry) {
		return ErrorResult(NewError(UpstreamUnavailable, "routing provider returned no usable geometry", nil))
	}

	result := Result{
		Geometry:        route.Geometry,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Segments:        route.Segments,
	}
	if result.Segments == nil {
		result.Segments = []Segment{}
	}

	if departure == nil {
		result.Waypoints = Untimed(waypoints).Waypoints
		return result
	}

	it, err := a.builder.Build(waypoints, *departure, route.Segments)
	if err != nil {
		result.Waypoints = Untimed(waypoints).Waypoints
		result.ScheduleErr = err
		return result
	}

	result.Waypoints = it.Waypoints
	result.Timed = true
	return result
}

// ErrorResult is the canonical failure: empty geometry, zero distance and
// duration, no waypoints.
func ErrorResult(err *Error) Result {
	return Result{
		Geometry:  [][]float64{},
		Segments:  []Segment{},
		Waypoints: []ScheduledWaypoint{},
		Err:       err,
	}
}

func usableGeometry(points [][]float64) bool {
	if len(points) == 0 {
		return false
	}
	for _, p := range points {
		if len(p) < 2 {
			return false
		}
	}
	return true
}
