package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/evcharging"
)

// StationFinder finds charging stations. *evcharging.Service implements it.
type StationFinder interface {
	StationsAlongRoute(ctx context.Context, route [][]float64, params map[string]any) (*evcharging.FeatureCollection, error)
}

// ChargingHandler handles charging station endpoints.
type ChargingHandler struct {
	stations StationFinder
}

// NewChargingHandler creates a new ChargingHandler.
func NewChargingHandler(s StationFinder) *ChargingHandler {
	return &ChargingHandler{stations: s}
}

// AlongRoute handles POST /v1/charging-stations/along-route.
func (h *ChargingHandler) AlongRoute(w http.ResponseWriter, r *http.Request) {
	var input models.ChargingStationsRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	fc, err := h.stations.StationsAlongRoute(r.Context(), input.Route, input.Parameters)
	if err != nil {
		if errors.Is(err, evcharging.ErrInvalidRoute) {
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "route", Message: "must contain at least two [lon, lat] points", Code: "INVALID"},
			})
			return
		}
		response.InternalError(w, r, "charging station lookup failed")
		return
	}

	response.GeoJSON(w, r, fc)
}
