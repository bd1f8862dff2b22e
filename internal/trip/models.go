// Package trip persists user-built routes and their waypoints.
package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxNameLength bounds route names.
const MaxNameLength = 255

// Errors.
var (
	ErrRouteNotFound = errors.New("route not found")
	ErrNotAuthorized = errors.New("not authorized to modify this route")
	ErrInvalidRoute  = errors.New("invalid route")
)

// Route is a saved trip.
type Route struct {
	ID        uuid.UUID
	Name      string
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Waypoints []Waypoint
}

// Summary is a route without its waypoints, used in listings.
type Summary struct {
	ID            uuid.UUID
	Name          string
	UserID        uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	WaypointCount int
}

// Waypoint is a stop on a saved route. Sequence starts at 1.
type Waypoint struct {
	ID              uuid.UUID
	Sequence        int
	Date            string
	Time            string
	Timezone        string
	DurationMinutes int
	LocationName    string
	Latitude        float64
	Longitude       float64
	Elevation       *float64
}

// WaypointInput is a waypoint as submitted by a client.
type WaypointInput struct {
	Date            string
	Time            string
	Timezone        string
	DurationMinutes *int
	LocationName    string
	Latitude        float64
	Longitude       float64
	Elevation       *float64
}

// SaveInput is a create-or-update request. A nil ID creates a new route.
type SaveInput struct {
	ID        *uuid.UUID
	Name      string
	Waypoints []WaypointInput
}

// Validate checks the input before anything is stored.
func (in SaveInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoute)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRoute, MaxNameLength)
	}
	for i, wp := range in.Waypoints {
		if wp.Latitude < -90 || wp.Latitude > 90 || wp.Longitude < -180 || wp.Longitude > 180 {
			return fmt.Errorf("%w: waypoint %d has invalid coordinates", ErrInvalidRoute, i+1)
		}
	}
	return nil
}

// NewWaypoints builds stored waypoints from input, numbering them from 1.
// A missing duration becomes 0.
func NewWaypoints(in []WaypointInput) []Waypoint {
	out := make([]Waypoint, len(in))
	for i, wp := range in {
		duration := 0
		if wp.DurationMinutes != nil && *wp.DurationMinutes > 0 {
			duration = *wp.DurationMinutes
		}
		out[i] = Waypoint{
			ID:              uuid.New(),
			Sequence:        i + 1,
			Date:            strings.TrimSpace(wp.Date),
			Time:            strings.TrimSpace(wp.Time),
			Timezone:        strings.TrimSpace(wp.Timezone),
			DurationMinutes: duration,
			LocationName:    wp.LocationName,
			Latitude:        wp.Latitude,
			Longitude:       wp.Longitude,
			Elevation:       wp.Elevation,
		}
	}
	return out
}

// NewRoute builds a route owned by userID.
func NewRoute(id uuid.UUID, name string, userID uuid.UUID, createdAt, updatedAt time.Time, waypoints []Waypoint) Route {
	return Route{
		ID:        id,
		Name:      strings.TrimSpace(name),
		UserID:    userID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Waypoints: waypoints,
	}
}

// Summarize drops the waypoints from r.
func (r Route) Summarize() Summary {
	return Summary{
		ID:            r.ID,
		Name:          r.Name,
		UserID:        r.UserID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		WaypointCount: len(r.Waypoints),
	}
}

func copyRoute(r *Route) *Route {
	cpy := *r
	cpy.Waypoints = append([]Waypoint(nil), r.Waypoints...)
	return &cpy
}
