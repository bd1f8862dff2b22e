package models

// RouteWaypoint is one stop of a route calculation request.
type RouteWaypoint struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Name            string  `json:"name"`
	TimezoneName    string  `json:"timezoneName,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
}

// Departure is the requested start of a trip, as local wall-clock fields.
// Zone defaults to the first waypoint's zone.
type Departure struct {
	Date string `json:"date"`
	Time string `json:"time"`
	Zone string `json:"zone,omitempty"`
}

// RouteRequest is the body of POST /v1/route.
type RouteRequest struct {
	Waypoints []RouteWaypoint `json:"waypoints"`
	Departure *Departure      `json:"departure,omitempty"`
	Profile   string          `json:"profile,omitempty"`
}

// RouteSegment is the leg between two consecutive waypoints.
type RouteSegment struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// ScheduledWaypoint is a waypoint in a route result. The times are local to
// Timezone and omitted for untimed itineraries.
type ScheduledWaypoint struct {
	Location      []float64 `json:"location"`
	Name          string    `json:"name"`
	Timezone      string    `json:"timezone"`
	ArrivalTime   *string   `json:"arrivalTime,omitempty"`
	DepartureTime *string   `json:"departureTime,omitempty"`
	Duration      int       `json:"duration"`
}

// RouteResponse is the result of a route calculation. A failed calculation
// keeps this shape with empty geometry, zero totals and Message set.
type RouteResponse struct {
	Geometry  [][]float64         `json:"geometry"`
	Distance  float64             `json:"distance"`
	Duration  float64             `json:"duration"`
	Segments  []RouteSegment      `json:"segments"`
	Waypoints []ScheduledWaypoint `json:"waypoints"`
	Message   string              `json:"message,omitempty"`
}

// WaypointWeather is the forecast at one waypoint of a planned route.
type WaypointWeather struct {
	Name        string          `json:"name"`
	Location    []float64       `json:"location"`
	Timezone    string          `json:"timezone"`
	ArrivalTime *string         `json:"arrivalTime,omitempty"`
	Weather     WeatherResponse `json:"weather"`
}

// RouteWeatherResponse is the body of POST /v1/route/weather.
type RouteWeatherResponse struct {
	Route   RouteResponse     `json:"route"`
	Weather []WaypointWeather `json:"weather"`
}
