package middleware

import (
	"mime"
	"net/http"

	"github.com/tripweather/tripweather/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that set their own (problem+json, geo+json) win.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// jsonRequestTypes are the request media types the API decodes.
var jsonRequestTypes = map[string]bool{
	"application/json":     true,
	"application/geo+json": true,
}

// RequireJSON answers 415 when a request with a body declares a media type
// other than JSON. A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || !jsonRequestTypes[mediaType] {
				problem := models.NewProblem(models.ProblemTypeUnsupportedType, "Unsupported media type",
					http.StatusUnsupportedMediaType, GetRequestID(r.Context()))
				problem.Detail = "request body must be application/json"
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
