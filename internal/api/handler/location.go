package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/geocoding"
	"github.com/tripweather/tripweather/internal/timezone"
)

// Geocoder looks up places. *geocoding.Service implements it.
type Geocoder interface {
	Summary(ctx context.Context, lat, lon float64) geocoding.Summary
	Search(ctx context.Context, text string, limit int) ([]geocoding.Place, error)
}

// ZoneDescriber resolves a location's zone and abbreviation.
// *timezone.Resolver implements it.
type ZoneDescriber interface {
	Describe(ctx context.Context, lat, lon float64, dateTime string) timezone.Info
}

// LocationHandler handles timezone and location endpoints.
type LocationHandler struct {
	geocoder Geocoder
	zones    ZoneDescriber
	logger   zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(g Geocoder, z ZoneDescriber, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{geocoder: g, zones: z, logger: logger}
}

// Timezone handles GET /v1/timezone.
func (h *LocationHandler) Timezone(w http.ResponseWriter, r *http.Request) {
	coords, errs := coordinatesQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", errs)
		return
	}

	info := h.zones.Describe(r.Context(), coords.Latitude, coords.Longitude, strings.TrimSpace(r.URL.Query().Get("dateTime")))
	response.JSON(w, r, http.StatusOK, models.TimezoneResponse{
		Timezone:     info.Zone,
		Abbreviation: info.Abbreviation,
	})
}

// Reverse handles GET /v1/locations/reverse. Lookup failures still answer
// 200 with placeholder values.
func (h *LocationHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	coords, errs := coordinatesQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", errs)
		return
	}

	s := h.geocoder.Summary(r.Context(), coords.Latitude, coords.Longitude)
	zone := s.Zone
	if zone == "" {
		zone = h.zones.Describe(r.Context(), coords.Latitude, coords.Longitude, "").Zone
	}

	response.JSON(w, r, http.StatusOK, models.ReverseLocationResponse{
		LocationName: s.LocationName,
		Timezone: models.ZoneSummary{
			Name:            zone,
			OffsetStd:       s.OffsetStd,
			OffsetDst:       s.OffsetDst,
			AbbreviationStd: s.AbbreviationStd,
			AbbreviationDst: s.AbbreviationDst,
		},
	})
}

// Search handles GET /v1/locations/search?query=...
func (h *LocationHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		response.BadRequest(w, r, "query is required", []models.FieldError{
			{Field: "query", Message: "required", Code: "REQUIRED"},
		})
		return
	}
	limit := limitQuery(r, geocoding.DefaultSearchLimit, 50)

	places, err := h.geocoder.Search(r.Context(), query, limit)
	switch {
	case err == nil:
	case errors.Is(err, geocoding.ErrNotFound):
		places = nil
	case errors.Is(err, geocoding.ErrInvalidQuery):
		response.BadRequest(w, r, "query is required", nil)
		return
	case errors.Is(err, geocoding.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "geocoding is not configured")
		return
	default:
		h.logger.Error().Err(err).Str("query", query).Msg("place search failed")
		response.BadGateway(w, r, "geocoding provider unavailable")
		return
	}

	items := make([]models.Place, len(places))
	for i, p := range places {
		items[i] = toPlace(p)
	}
	response.JSON(w, r, http.StatusOK, models.PlaceList{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit, Count: len(items)},
	})
}

func toPlace(p geocoding.Place) models.Place {
	out := models.Place{
		Name:        p.Name,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		CountryCode: p.CountryCode,
		Postcode:    p.Postcode,
		ResultType:  p.ResultType,
	}
	if p.Timezone != nil {
		s := geocoding.Summarize(&p)
		out.Timezone = &models.ZoneSummary{
			Name:            s.Zone,
			OffsetStd:       s.OffsetStd,
			OffsetDst:       s.OffsetDst,
			AbbreviationStd: s.AbbreviationStd,
			AbbreviationDst: s.AbbreviationDst,
		}
	}
	return out
}
