package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/itinerary"
	"github.com/tripweather/tripweather/internal/planner"
	"github.com/tripweather/tripweather/internal/routing"
	"github.com/tripweather/tripweather/internal/weather"
)

// Planner plans trips. *planner.Planner implements it.
type Planner interface {
	Plan(ctx context.Context, req planner.Request) itinerary.Result
}

// WeatherReporter answers forecasts for places and instants.
// *weather.Service implements it.
type WeatherReporter interface {
	ReportAt(ctx context.Context, lat, lon float64, at time.Time) (weather.Report, error)
	ReportsAlong(ctx context.Context, stops []weather.Stop) []weather.Report
}

var knownProfiles = map[routing.RouteProfile]bool{
	routing.ProfileCar:  true,
	routing.ProfileHGV:  true,
	routing.ProfileBike: true,
	routing.ProfileWalk: true,
}

// RouteHandler handles route calculation endpoints. These always answer in
// result shape, failures included.
type RouteHandler struct {
	planner Planner
	weather WeatherReporter
}

// NewRouteHandler creates a new RouteHandler. weather may be nil, which
// disables the route weather endpoint.
func NewRouteHandler(p Planner, w WeatherReporter) *RouteHandler {
	return &RouteHandler{planner: p, weather: w}
}

// Calculate handles POST /v1/route.
func (h *RouteHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	result, ok := h.plan(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, resultStatus(result), toRouteResponse(result))
}

// Weather handles POST /v1/route/weather: it plans the route and reports the
// forecast at each waypoint at its arrival time, or now for untimed routes.
func (h *RouteHandler) Weather(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		response.ServiceUnavailable(w, r, "weather is not configured")
		return
	}

	result, ok := h.plan(w, r)
	if !ok {
		return
	}

	body := models.RouteWeatherResponse{
		Route:   toRouteResponse(result),
		Weather: []models.WaypointWeather{},
	}
	if result.Failed() {
		response.JSON(w, r, resultStatus(result), body)
		return
	}

	stops := make([]weather.Stop, len(result.Waypoints))
	for i, wp := range result.Waypoints {
		stops[i] = weather.Stop{Lat: wp.Latitude, Lon: wp.Longitude}
		if wp.Arrival != nil {
			at := wp.Arrival.Time()
			stops[i].At = &at
		}
	}

	reports := h.weather.ReportsAlong(r.Context(), stops)
	for i, wp := range body.Route.Waypoints {
		body.Weather = append(body.Weather, models.WaypointWeather{
			Name:        wp.Name,
			Location:    wp.Location,
			Timezone:    wp.Timezone,
			ArrivalTime: wp.ArrivalTime,
			Weather:     toWeatherResponse(reports[i]),
		})
	}

	response.JSON(w, r, http.StatusOK, body)
}

// plan decodes and validates the request, then plans it. On a bad request
// it writes the error result and returns false.
func (h *RouteHandler) plan(w http.ResponseWriter, r *http.Request) (itinerary.Result, bool) {
	var input models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInputError(w, r, "invalid JSON body", err)
		return itinerary.Result{}, false
	}

	req, err := toPlannerRequest(input)
	if err != nil {
		writeInputError(w, r, err.Error(), nil)
		return itinerary.Result{}, false
	}

	return h.planner.Plan(r.Context(), req), true
}

func writeInputError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	result := itinerary.ErrorResult(itinerary.NewError(itinerary.InsufficientInput, msg, err))
	response.JSON(w, r, http.StatusBadRequest, toRouteResponse(result))
}

func toPlannerRequest(in models.RouteRequest) (planner.Request, error) {
	if len(in.Waypoints) < 2 {
		return planner.Request{}, errors.New("at least two waypoints are required")
	}

	profile := routing.RouteProfile(strings.TrimSpace(in.Profile))
	if profile != "" && !knownProfiles[profile] {
		return planner.Request{}, fmt.Errorf("unknown profile %q", in.Profile)
	}

	waypoints := make([]itinerary.Waypoint, len(in.Waypoints))
	for i, wp := range in.Waypoints {
		c := models.Coordinates{Latitude: wp.Latitude, Longitude: wp.Longitude}
		if !c.Valid() {
			return planner.Request{}, fmt.Errorf("waypoint %d has invalid coordinates", i)
		}
		dwell := 0
		if wp.DurationMinutes != nil {
			dwell = *wp.DurationMinutes
		}
		waypoints[i] = itinerary.Waypoint{
			Latitude:     wp.Latitude,
			Longitude:    wp.Longitude,
			Name:         wp.Name,
			Zone:         wp.TimezoneName,
			DwellMinutes: dwell,
		}
	}

	req := planner.Request{
		Waypoints: waypoints,
		Profile:   profile,
		Elevation: true,
	}
	if in.Departure != nil {
		req.Departure = &planner.Departure{
			Date: in.Departure.Date,
			Time: in.Departure.Time,
			Zone: in.Departure.Zone,
		}
	}
	return req, nil
}

// resultStatus maps a result onto an HTTP status.
func resultStatus(res itinerary.Result) int {
	if !res.Failed() {
		return http.StatusOK
	}
	switch {
	case res.Err == nil:
		return http.StatusBadGateway
	case errors.Is(res.Err, itinerary.InsufficientInput):
		return http.StatusBadRequest
	case errors.Is(res.Err, itinerary.ConfigurationMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func toRouteResponse(res itinerary.Result) models.RouteResponse {
	out := models.RouteResponse{
		Geometry:  res.Geometry,
		Distance:  res.DistanceMeters,
		Duration:  res.DurationSeconds,
		Segments:  make([]models.RouteSegment, len(res.Segments)),
		Waypoints: make([]models.ScheduledWaypoint, len(res.Waypoints)),
		Message:   res.Message(),
	}
	if out.Geometry == nil {
		out.Geometry = [][]float64{}
	}
	for i, s := range res.Segments {
		out.Segments[i] = models.RouteSegment{Distance: s.DistanceMeters, Duration: s.DurationSeconds}
	}
	for i, wp := range res.Waypoints {
		sw := models.ScheduledWaypoint{
			Location: []float64{wp.Longitude, wp.Latitude},
			Name:     wp.Name,
			Timezone: wp.Zone,
			Duration: wp.DwellMinutes,
		}
		if wp.Arrival != nil {
			s := wp.Arrival.String()
			sw.ArrivalTime = &s
		}
		if wp.Departure != nil {
			s := wp.Departure.String()
			sw.DepartureTime = &s
		}
		out.Waypoints[i] = sw
	}
	return out
}
