package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tripweather/tripweather/internal/api/models"
)

// coordinatesQuery reads latitude and longitude query parameters.
func coordinatesQuery(r *http.Request) (models.Coordinates, []models.FieldError) {
	var (
		c    models.Coordinates
		errs []models.FieldError
	)
	lat, err := floatQuery(r, "latitude")
	if err != nil {
		errs = append(errs, *err)
	}
	lon, err := floatQuery(r, "longitude")
	if err != nil {
		errs = append(errs, *err)
	}
	if len(errs) > 0 {
		return c, errs
	}

	c = models.Coordinates{Latitude: lat, Longitude: lon}
	if c.Latitude < -90 || c.Latitude > 90 {
		errs = append(errs, models.FieldError{Field: "latitude", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		errs = append(errs, models.FieldError{Field: "longitude", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return c, errs
}

func floatQuery(r *http.Request, name string) (float64, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, &models.FieldError{Field: name, Message: "required", Code: "REQUIRED"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: "must be a number", Code: "INVALID"}
	}
	return v, nil
}

// limitQuery reads the limit query parameter, clamped to [1, max].
func limitQuery(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
