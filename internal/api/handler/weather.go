package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/clock"
	"github.com/tripweather/tripweather/internal/planner"
	"github.com/tripweather/tripweather/internal/weather"
)

// WeatherHandler handles GET /v1/weather.
type WeatherHandler struct {
	weather WeatherReporter
	zones   planner.ZoneLookup
	now     clock.NowFunc
	logger  zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(w WeatherReporter, zones planner.ZoneLookup, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{weather: w, zones: zones, now: time.Now, logger: logger}
}

// Forecast returns the forecast period covering the requested local time.
// The time is given as dateTime, or as separate date and time, and read in
// timezone; without a valid timezone the zone at the location is used.
// Without any time the current forecast is returned.
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		response.ServiceUnavailable(w, r, "weather is not configured")
		return
	}

	coords, errs := coordinatesQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", errs)
		return
	}

	q := r.URL.Query()
	dateTime := strings.TrimSpace(q.Get("dateTime"))
	if dateTime == "" && q.Get("date") != "" {
		dateTime = strings.TrimSpace(q.Get("date")) + " " + strings.TrimSpace(q.Get("time"))
	}

	at := h.now()
	if dateTime != "" {
		zone := strings.TrimSpace(q.Get("timezone"))
		if !clock.IsValidZone(zone) {
			zone = h.zones.LookupZone(r.Context(), coords.Latitude, coords.Longitude)
		}
		local, err := clock.Parse(dateTime, zone)
		if err != nil {
			response.BadRequest(w, r, "invalid date-time", []models.FieldError{
				{Field: "dateTime", Message: "must match yyyy-MM-dd HH:mm", Code: "INVALID_FORMAT"},
			})
			return
		}
		at = local.Time()
	}

	report, err := h.weather.ReportAt(r.Context(), coords.Latitude, coords.Longitude, at)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, toWeatherResponse(report))
	case errors.Is(err, weather.ErrInvalidCoordinates):
		response.BadRequest(w, r, "invalid coordinates", nil)
	case errors.Is(err, weather.ErrNoDataForLocation), errors.Is(err, weather.ErrNoPeriod):
		response.JSON(w, r, http.StatusOK, toWeatherResponse(weather.ErrorReport(weather.Describe(err))))
	default:
		h.logger.Error().Err(err).
			Float64("lat", coords.Latitude).
			Float64("lon", coords.Longitude).
			Msg("weather lookup failed")
		response.BadGateway(w, r, "weather provider unavailable")
	}
}

func toWeatherResponse(rep weather.Report) models.WeatherResponse {
	if rep.Error != "" {
		return models.WeatherResponse{Error: rep.Error}
	}
	out := models.WeatherResponse{
		Condition:       rep.Condition,
		Category:        string(rep.Category),
		Temperature:     rep.Temperature,
		TemperatureUnit: rep.TemperatureUnit,
		WindSpeed:       rep.WindSpeed,
		WindDirection:   rep.WindDirection,
		Precipitation:   rep.Precipitation,
	}
	if !rep.StartTime.IsZero() {
		start := models.Timestamp(rep.StartTime)
		out.PeriodStart = &start
	}
	if !rep.EndTime.IsZero() {
		end := models.Timestamp(rep.EndTime)
		out.PeriodEnd = &end
	}
	return out
}
