package models

// SavedWaypoint is a waypoint of a stored route.
type SavedWaypoint struct {
	ID              string   `json:"id,omitempty"`
	Sequence        int      `json:"sequence"`
	Date            string   `json:"date,omitempty"`
	Time            string   `json:"time,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
	LocationName    string   `json:"locationName"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Elevation       *float64 `json:"elevation,omitempty"`
}

// SaveRouteRequest is the body of POST /v1/trips. ID is set to update an
// existing route.
type SaveRouteRequest struct {
	ID        *string         `json:"id,omitempty"`
	Name      string          `json:"name"`
	Waypoints []SavedWaypoint `json:"waypoints"`
}

// SavedRoute is a stored route with its waypoints.
type SavedRoute struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UserID    string          `json:"userId"`
	CreatedAt Timestamp       `json:"createdAt"`
	UpdatedAt Timestamp       `json:"updatedAt"`
	Waypoints []SavedWaypoint `json:"waypoints"`
}

// RouteSummary is a stored route without waypoints.
type RouteSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	UserID        string    `json:"userId"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
	WaypointCount int       `json:"waypointCount"`
}

// RouteSummaryList is a list of stored routes.
type RouteSummaryList struct {
	Items []RouteSummary    `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
