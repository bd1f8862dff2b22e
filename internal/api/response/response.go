// Package response writes API responses: JSON bodies for success and RFC
// 7807 problem documents for errors. Every response echoes the request id.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/tripweather/tripweather/internal/api/middleware"
	"github.com/tripweather/tripweather/internal/api/models"
)

const (
	contentJSON    = "application/json"
	contentGeoJSON = "application/geo+json"
)

func write(w http.ResponseWriter, r *http.Request, status int, contentType, location string, data any) {
	h := w.Header()
	if id := middleware.GetRequestID(r.Context()); id != "" {
		h.Set(middleware.RequestIDHeader, id)
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if location != "" {
		h.Set("Location", location)
	}
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// JSON writes data as application/json with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, contentJSON, "", data)
}

// GeoJSON writes a GeoJSON document as application/geo+json.
func GeoJSON(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, contentGeoJSON, "", data)
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusCreated, contentJSON, location, data)
}

// Accepted writes a 202 for work queued in the background.
func Accepted(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusAccepted, contentJSON, location, data)
}

// NoContent writes a bodiless 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusNoContent, "", "", nil)
}

// Error writes problem as application/problem+json, scoped to the request
// path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// BadRequest writes a 400 validation problem. fields may be nil.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, fields []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, fields))
}

// Forbidden writes a 403, used when a caller touches another user's route.
func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewForbidden(traceID(r), detail))
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// InternalError writes a 500.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

// BadGateway writes a 502 for failures of an upstream provider.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewBadGateway(traceID(r), detail))
}

// ServiceUnavailable writes a 503 for features that are not configured or
// whose provider circuit is open.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}
