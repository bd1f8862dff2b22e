// Package planner prepares route requests for the itinerary engine: it
// resolves waypoint zones, fetches the route and schedules the result.
package planner

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripweather/tripweather/internal/clock"
	"github.com/tripweather/tripweather/internal/itinerary"
	"github.com/tripweather/tripweather/internal/routing"
)

const tracerName = "github.com/tripweather/tripweather/internal/planner"

// ZoneLookup resolves the IANA zone at a location. It never fails; unknown
// locations resolve to a fallback zone.
type ZoneLookup interface {
	LookupZone(ctx context.Context, lat, lon float64) string
}

// Router computes a route through ordered waypoints.
type Router interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// Departure is the requested start of the trip as wall-clock fields.
// An empty Zone means the zone of the first waypoint.
type Departure struct {
	Date string
	Time string
	Zone string
}

// Request is a trip to plan.
type Request struct {
	Waypoints []itinerary.Waypoint
	// Departure is nil for an untimed itinerary.
	Departure *Departure
	Profile   routing.RouteProfile
	Elevation bool
}

// Config holds planner dependencies.
type Config struct {
	Router Router
	Zones  ZoneLookup
	Logger zerolog.Logger

	// DefaultZone is used for waypoints without a zone when Zones is nil.
	DefaultZone string

	// Now is the clock used to clamp past departures.
	Now clock.NowFunc
}

// Planner turns trip requests into assembled results.
type Planner struct {
	router      Router
	zones       ZoneLookup
	logger      zerolog.Logger
	defaultZone string
	assembler   *itinerary.Assembler
	tracer      trace.Tracer
}

// New creates a Planner.
func New(cfg Config) *Planner {
	defaultZone := cfg.DefaultZone
	if defaultZone == "" {
		defaultZone = clock.DefaultZone
	}
	return &Planner{
		router:      cfg.Router,
		zones:       cfg.Zones,
		logger:      cfg.Logger,
		defaultZone: defaultZone,
		assembler:   itinerary.NewAssembler(itinerary.NewBuilder(cfg.Now)),
		tracer:      otel.Tracer(tracerName),
	}
}

// Plan resolves, routes and schedules req. Failures are reported in the
// returned Result, never as a Go error.
func (p *Planner) Plan(ctx context.Context, req Request) itinerary.Result {
	ctx, span := p.tracer.Start(ctx, "planner.Plan", trace.WithAttributes(
		attribute.Int("itinerary.waypoints", len(req.Waypoints)),
		attribute.Bool("itinerary.departure", req.Departure != nil),
	))
	defer span.End()

	result := p.plan(ctx, req)

	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Error())
		span.SetAttributes(attribute.String("itinerary.error_kind", string(result.Err.Kind)))
	}
	span.SetAttributes(
		attribute.Bool("itinerary.timed", result.Timed),
		attribute.Float64("route.distance_m", result.DistanceMeters),
	)
	return result
}

func (p *Planner) plan(ctx context.Context, req Request) itinerary.Result {
	if len(req.Waypoints) < 2 {
		return itinerary.ErrorResult(itinerary.NewError(itinerary.InsufficientInput, "at least two waypoints are required", nil))
	}

	waypoints := p.ResolveZones(ctx, req.Waypoints)

	coords := make([]routing.Coordinate, len(waypoints))
	for i, wp := range waypoints {
		coords[i] = routing.Coordinate{Lat: wp.Latitude, Lon: wp.Longitude}
	}

	resp, err := p.router.GetDirections(ctx, routing.DirectionsRequest{
		Waypoints: coords,
		Profile:   req.Profile,
		Elevation: req.Elevation,
	})
	if err != nil {
		ierr := classify(err)
		p.logger.Warn().Err(err).Str("kind", string(ierr.Kind)).Int("waypoints", len(waypoints)).Msg("route calculation failed")
		return itinerary.ErrorResult(ierr)
	}

	departure, err := p.departure(req.Departure, waypoints[0].Zone)
	if err != nil {
		result := p.assembler.Assemble(toRoute(resp.Route), waypoints, nil)
		if !result.Failed() {
			result.ScheduleErr = &itinerary.ScheduleError{Waypoint: -1, Err: err}
			p.logger.Warn().Err(err).Msg("departure could not be parsed, returning untimed itinerary")
		}
		return result
	}

	result := p.assembler.Assemble(toRoute(resp.Route), waypoints, departure)
	if result.ScheduleErr != nil {
		p.logger.Warn().Err(result.ScheduleErr).Msg("scheduling failed, returning untimed itinerary")
	}
	if result.Err != nil {
		p.logger.Warn().Err(result.Err).Str("provider", resp.Provider).Msg("route has no usable geometry")
	}
	return result
}

// ResolveZones returns a copy of waypoints with every missing or invalid
// zone filled from the zone lookup.
func (p *Planner) ResolveZones(ctx context.Context, waypoints []itinerary.Waypoint) []itinerary.Waypoint {
	out := make([]itinerary.Waypoint, len(waypoints))
	for i, wp := range waypoints {
		wp.Zone = strings.TrimSpace(wp.Zone)
		if wp.Zone == "" || !clock.IsValidZone(wp.Zone) {
			if wp.Zone != "" {
				p.logger.Debug().Str("zone", wp.Zone).Int("waypoint", i).Msg("ignoring unknown zone")
			}
			wp.Zone = p.lookup(ctx, wp.Latitude, wp.Longitude)
		}
		out[i] = wp
	}
	return out
}

func (p *Planner) lookup(ctx context.Context, lat, lon float64) string {
	if p.zones == nil {
		return p.defaultZone
	}
	return p.zones.LookupZone(ctx, lat, lon)
}

// departure parses d in its zone, or in firstZone when d has none.
func (p *Planner) departure(d *Departure, firstZone string) (*clock.LocalDateTime, error) {
	if d == nil {
		return nil, nil
	}
	zone := strings.TrimSpace(d.Zone)
	if zone == "" {
		zone = firstZone
	}
	t, err := clock.ToZoned(strings.TrimSpace(d.Date), strings.TrimSpace(d.Time), zone)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// classify maps routing errors onto itinerary failure kinds.
func classify(err error) *itinerary.Error {
	switch {
	case errors.Is(err, routing.ErrNotConfigured):
		return itinerary.NewError(itinerary.ConfigurationMissing, "routing provider API key is not configured", err)
	case errors.Is(err, routing.ErrTooFewWaypoints):
		return itinerary.NewError(itinerary.InsufficientInput, "at least two waypoints are required", err)
	case errors.Is(err, routing.ErrInvalidCoordinates):
		return itinerary.NewError(itinerary.InsufficientInput, "waypoint coordinates are out of range", err)
	case errors.Is(err, routing.ErrUnsupportedProfile):
		return itinerary.NewError(itinerary.InsufficientInput, "unsupported route profile", err)
	case errors.Is(err, routing.ErrNoRouteFound):
		return itinerary.NewError(itinerary.UpstreamUnavailable, "no route found between the waypoints", err)
	default:
		return itinerary.NewError(itinerary.UpstreamUnavailable, "routing provider unavailable", err)
	}
}

func toRoute(r routing.Route) *itinerary.Route {
	segments := make([]itinerary.Segment, len(r.Segments))
	for i, s := range r.Segments {
		segments[i] = itinerary.Segment{DistanceMeters: s.DistanceMeters, DurationSeconds: s.DurationSeconds}
	}
	return &itinerary.Route{
		Geometry:        r.Geometry,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Segments:        segments,
	}
}
