// Package routing computes multi-stop driving routes through an upstream
// directions provider.
package routing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProviderUnavailable covers upstream outages, 5xx responses and
	// open circuit breakers.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	ErrNoRouteFound        = errors.New("no route found through the given points")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrTooFewWaypoints     = errors.New("at least two waypoints are required")
	ErrUnsupportedProfile  = errors.New("unsupported route profile")
	// ErrNotConfigured means the provider has no API key.
	ErrNotConfigured = errors.New("routing provider is not configured")
)

// Provider computes routes. *openrouteservice.Client implements it.
type Provider interface {
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	Name() string
	SupportedProfiles() []RouteProfile
}

// RouteProfile is a mode of transport in openrouteservice naming.
type RouteProfile string

const (
	ProfileCar  RouteProfile = "driving-car"
	ProfileHGV  RouteProfile = "driving-hgv"
	ProfileBike RouteProfile = "cycling-regular"
	ProfileWalk RouteProfile = "foot-walking"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

// DirectionsRequest asks for one route visiting Waypoints in order. An
// empty Profile means ProfileCar.
type DirectionsRequest struct {
	Waypoints []Coordinate
	Profile   RouteProfile
	// Elevation requests a third [lon, lat, elevation] value per geometry point.
	Elevation bool
}

type DirectionsResponse struct {
	Route     Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single route through all requested waypoints. Segments[i] is
// the leg from waypoint i to waypoint i+1.
type Route struct {
	// Geometry holds [lon, lat] or [lon, lat, elevation] points.
	Geometry        [][]float64
	DistanceMeters  float64
	DurationSeconds float64
	Segments        []Segment
	BoundingBox     *BoundingBox
}

type Segment struct {
	DistanceMeters  float64
	DurationSeconds float64
}

type BoundingBox struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Error carries the provider's error code alongside one of the sentinel
// errors above.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether err may go away on its own: outages, quota
// exhaustion and transport failures. Bad input, missing routes and
// missing credentials are permanent.
func Transient(err error) bool {
	switch {
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrRateLimitExceeded):
		return true
	case errors.Is(err, ErrNoRouteFound), errors.Is(err, ErrInvalidCoordinates),
		errors.Is(err, ErrTooFewWaypoints), errors.Is(err, ErrUnsupportedProfile),
		errors.Is(err, ErrNotConfigured):
		return false
	default:
		return !errors.Is(err, context.Canceled)
	}
}

// ValidateCoordinate checks that c is within valid ranges.
func ValidateCoordinate(c Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
