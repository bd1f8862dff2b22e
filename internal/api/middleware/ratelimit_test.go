package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweather/tripweather/internal/api/middleware"
)

// limited wraps an OK handler in a fresh limiter and returns a sender that
// reports the status for a request from addr, optionally as user.
func limited(l middleware.Limit) func(addr string, user *uuid.UUID) *httptest.ResponseRecorder {
	h := middleware.RequestID(middleware.RateLimit(l)(okHandler))
	return func(addr string, user *uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/route/weather", http.NoBody)
		req.RemoteAddr = addr
		if user != nil {
			req = req.WithContext(middleware.WithUserID(req.Context(), *user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
}

func TestRateLimit_PerIP(t *testing.T) {
	send := limited(middleware.Limit{Requests: 2, Window: time.Minute})

	assert.Equal(t, http.StatusOK, send("10.0.0.1:4000", nil).Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:4001", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:4002", nil).Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.2:4000", nil).Code, "other clients keep their allowance")
}

func TestRateLimit_ByUser(t *testing.T) {
	send := limited(middleware.Limit{Requests: 2, Window: time.Minute, ByUser: true})
	alice, bob := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK, send("198.51.100.1:1000", &alice).Code)
	assert.Equal(t, http.StatusOK, send("198.51.100.2:1000", &alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.3:1000", &alice).Code, "limit follows the user across addresses")
	assert.Equal(t, http.StatusOK, send("198.51.100.1:1000", &bob).Code)

	// Guests fall back to their address.
	assert.Equal(t, http.StatusOK, send("198.51.100.1:1000", nil).Code)
	assert.Equal(t, http.StatusOK, send("198.51.100.1:1000", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1:1000", nil).Code)
}

func TestRateLimit_ExceededProblem(t *testing.T) {
	send := limited(middleware.Limit{Requests: 1, Window: 30 * time.Second})

	require.Equal(t, http.StatusOK, send("203.0.113.1:1", nil).Code)
	rec := send("203.0.113.1:1", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "/v1/route/weather")
}

func TestRateLimit_SubSecondWindowRetryAfter(t *testing.T) {
	send := limited(middleware.Limit{Requests: 1, Window: 200 * time.Millisecond})

	send("203.0.113.9:1", nil)
	rec := send("203.0.113.9:1", nil)

	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestLimitsFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_AUTH", "")
	t.Setenv("RATE_LIMIT_PROVIDER", "5")
	t.Setenv("RATE_LIMIT_STANDARD", "-3")

	l := middleware.LimitsFromEnv()
	def := middleware.DefaultLimits()

	assert.Equal(t, def.Auth, l.Auth)
	assert.Equal(t, 5, l.Provider.Requests)
	assert.True(t, l.Provider.ByUser)
	assert.Equal(t, def.Standard, l.Standard)
	assert.False(t, def.Auth.ByUser)
}
