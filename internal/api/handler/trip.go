package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/api/response"
	"github.com/tripweather/tripweather/internal/trip"
)

// Trips stores and loads saved routes. *trip.Service implements it.
type Trips interface {
	Save(ctx context.Context, caller *uuid.UUID, in trip.SaveInput) (*trip.Route, error)
	Get(ctx context.Context, id uuid.UUID) (*trip.Route, error)
	List(ctx context.Context, caller *uuid.UUID, limit int) ([]trip.Summary, error)
	Search(ctx context.Context, query string, limit int) ([]trip.Summary, error)
	Delete(ctx context.Context, caller *uuid.UUID, id uuid.UUID) error
}

// JobPublisher queues background work for saved routes.
type JobPublisher interface {
	PublishZoneWarmup(ctx context.Context, routeID uuid.UUID) (string, error)
}

// TripHandler handles saved route endpoints.
type TripHandler struct {
	trips     Trips
	publisher JobPublisher
	logger    zerolog.Logger
}

// NewTripHandler creates a new TripHandler. publisher may be nil.
func NewTripHandler(trips Trips, publisher JobPublisher, logger zerolog.Logger) *TripHandler {
	return &TripHandler{trips: trips, publisher: publisher, logger: logger}
}

// Save handles POST /v1/trips. It answers 201 for a new route and 200 for
// an update. Routes with waypoints missing a zone get a warm-up job.
func (h *TripHandler) Save(w http.ResponseWriter, r *http.Request) {
	var input models.SaveRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	in := trip.SaveInput{Name: input.Name, Waypoints: make([]trip.WaypointInput, len(input.Waypoints))}
	if input.ID != nil {
		id, err := uuid.Parse(*input.ID)
		if err != nil {
			response.BadRequest(w, r, "invalid route id", []models.FieldError{
				{Field: "id", Message: "must be a UUID", Code: "INVALID"},
			})
			return
		}
		in.ID = &id
	}
	for i, wp := range input.Waypoints {
		in.Waypoints[i] = trip.WaypointInput{
			Date:            wp.Date,
			Time:            wp.Time,
			Timezone:        wp.Timezone,
			DurationMinutes: wp.DurationMinutes,
			LocationName:    wp.LocationName,
			Latitude:        wp.Latitude,
			Longitude:       wp.Longitude,
			Elevation:       wp.Elevation,
		}
	}

	route, err := h.trips.Save(r.Context(), callerID(r.Context()), in)
	if err != nil {
		if errors.Is(err, trip.ErrInvalidRoute) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("saving route failed")
		response.InternalError(w, r, "failed to save route")
		return
	}

	if needsZones(route) {
		h.queueWarmup(r.Context(), route.ID)
	}

	if input.ID == nil {
		response.Created(w, r, "/v1/trips/"+route.ID.String(), toSavedRoute(route))
		return
	}
	response.JSON(w, r, http.StatusOK, toSavedRoute(route))
}

// Get handles GET /v1/trips/{routeID}.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := routeIDParam(w, r)
	if !ok {
		return
	}

	route, err := h.trips.Get(r.Context(), id)
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toSavedRoute(route))
}

// List handles GET /v1/trips: the caller's routes, or the guest's.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := limitQuery(r, trip.DefaultListLimit, 200)
	summaries, err := h.trips.List(r.Context(), callerID(r.Context()), limit)
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toSummaryList(summaries, limit))
}

// Search handles GET /v1/trips/search?q=...
func (h *TripHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := limitQuery(r, trip.DefaultListLimit, 200)
	summaries, err := h.trips.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toSummaryList(summaries, limit))
}

// Delete handles DELETE /v1/trips/{routeID}. Only the owner may delete.
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := routeIDParam(w, r)
	if !ok {
		return
	}

	if err := h.trips.Delete(r.Context(), callerID(r.Context()), id); err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Warmup handles POST /v1/trips/{routeID}/warmup: it queues zone
// resolution for the route's waypoints.
func (h *TripHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	id, ok := routeIDParam(w, r)
	if !ok {
		return
	}
	if h.publisher == nil {
		response.ServiceUnavailable(w, r, "background jobs are not configured")
		return
	}
	if _, err := h.trips.Get(r.Context(), id); err != nil {
		h.writeTripError(w, r, err)
		return
	}

	msgID, err := h.publisher.PublishZoneWarmup(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("route_id", id.String()).Msg("publishing warm-up job failed")
		response.ServiceUnavailable(w, r, "could not queue job")
		return
	}
	response.Accepted(w, r, "/v1/trips/"+id.String(), map[string]string{"messageId": msgID})
}

func (h *TripHandler) queueWarmup(ctx context.Context, id uuid.UUID) {
	if h.publisher == nil {
		return
	}
	if _, err := h.publisher.PublishZoneWarmup(ctx, id); err != nil {
		h.logger.Warn().Err(err).Str("route_id", id.String()).Msg("could not queue zone warm-up")
	}
}

func (h *TripHandler) writeTripError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trip.ErrRouteNotFound):
		response.NotFound(w, r, "route not found")
	case errors.Is(err, trip.ErrNotAuthorized):
		response.Forbidden(w, r, "route belongs to another user")
	case errors.Is(err, trip.ErrInvalidRoute):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("route request failed")
		response.InternalError(w, r, "route request failed")
	}
}

func routeIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "routeID"))
	if err != nil {
		response.BadRequest(w, r, "invalid route id", []models.FieldError{
			{Field: "routeID", Message: "must be a UUID", Code: "INVALID"},
		})
		return uuid.Nil, false
	}
	return id, true
}

func needsZones(route *trip.Route) bool {
	for _, wp := range route.Waypoints {
		if wp.Timezone == "" {
			return true
		}
	}
	return false
}

func toSavedRoute(route *trip.Route) models.SavedRoute {
	out := models.SavedRoute{
		ID:        route.ID.String(),
		Name:      route.Name,
		UserID:    route.UserID.String(),
		CreatedAt: models.Timestamp(route.CreatedAt),
		UpdatedAt: models.Timestamp(route.UpdatedAt),
		Waypoints: make([]models.SavedWaypoint, len(route.Waypoints)),
	}
	for i, wp := range route.Waypoints {
		duration := wp.DurationMinutes
		out.Waypoints[i] = models.SavedWaypoint{
			ID:              wp.ID.String(),
			Sequence:        wp.Sequence,
			Date:            wp.Date,
			Time:            wp.Time,
			Timezone:        wp.Timezone,
			DurationMinutes: &duration,
			LocationName:    wp.LocationName,
			Latitude:        wp.Latitude,
			Longitude:       wp.Longitude,
			Elevation:       wp.Elevation,
		}
	}
	return out
}

func toSummaryList(summaries []trip.Summary, limit int) models.RouteSummaryList {
	items := make([]models.RouteSummary, len(summaries))
	for i, s := range summaries {
		items[i] = models.RouteSummary{
			ID:            s.ID.String(),
			Name:          s.Name,
			UserID:        s.UserID.String(),
			CreatedAt:     models.Timestamp(s.CreatedAt),
			UpdatedAt:     models.Timestamp(s.UpdatedAt),
			WaypointCount: s.WaypointCount,
		}
	}
	return models.RouteSummaryList{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit, Count: len(items)},
	}
}
