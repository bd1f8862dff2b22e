package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tripweather/tripweather/internal/api/models"
	"github.com/tripweather/tripweather/internal/auth"
)

// userIDKey is the context key for the authenticated user ID.
type userIDKey struct{}

// TokenValidator validates bearer tokens. *auth.Service implements it.
type TokenValidator interface {
	ValidateAccessToken(token string) (uuid.UUID, error)
}

// Auth creates authentication middleware that rejects requests without a
// valid bearer token.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, true)
}

// OptionalAuth authenticates the request when an Authorization header is
// present and lets anonymous requests through. A header with a bad token
// is still rejected.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, false)
}

func authenticate(validator TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}

			token, detail := bearerToken(header)
			if detail != "" {
				unauthorized(w, r, detail)
				return
			}

			userID, err := validator.ValidateAccessToken(token)
			if err != nil {
				unauthorized(w, r, rejection(err))
				return
			}

			noteUser(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively. A non-empty detail explains a rejection.
func bearerToken(header string) (token, detail string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(rest); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func rejection(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return "access token has expired"
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return "invalid access token"
	default:
		return "authentication failed"
	}
}

// unauthorized writes the 401 problem directly; the response package
// imports this one.
func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	p := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	p.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="tripweather"`)
	p.Write(w)
}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// GetUserID retrieves the authenticated user ID from the context.
// The second result is false for anonymous requests.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
