package middleware

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/tripweather/tripweather/internal/api/models"
)

// Limit is a fixed-window request allowance.
type Limit struct {
	Requests int
	Window   time.Duration

	// ByUser keys authenticated requests on the user instead of the client IP.
	ByUser bool
}

// Limits groups the allowances applied to each family of endpoints.
type Limits struct {
	// Auth covers token issuance.
	Auth Limit
	// Provider covers endpoints that call rate-limited upstream APIs.
	Provider Limit
	// Standard covers stored-route endpoints.
	Standard Limit
}

// DefaultLimits allows 10 token requests per IP, 30 provider-backed and 100
// other requests per user each minute.
func DefaultLimits() Limits {
	return Limits{
		Auth:     Limit{Requests: 10, Window: time.Minute},
		Provider: Limit{Requests: 30, Window: time.Minute, ByUser: true},
		Standard: Limit{Requests: 100, Window: time.Minute, ByUser: true},
	}
}

// LimitsFromEnv overrides the per-minute request counts of DefaultLimits with
// RATE_LIMIT_AUTH, RATE_LIMIT_PROVIDER and RATE_LIMIT_STANDARD.
func LimitsFromEnv() Limits {
	l := DefaultLimits()
	perMinute(&l.Auth, "RATE_LIMIT_AUTH")
	perMinute(&l.Provider, "RATE_LIMIT_PROVIDER")
	perMinute(&l.Standard, "RATE_LIMIT_STANDARD")
	return l
}

func perMinute(l *Limit, key string) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		l.Requests = n
		l.Window = time.Minute
	}
}

// RateLimit enforces l. Clients over the allowance get a 429 problem with
// Retry-After set to the window length.
func RateLimit(l Limit) func(http.Handler) http.Handler {
	key := httprate.KeyByRealIP
	if l.ByUser {
		key = keyByUserOrIP
	}
	return httprate.Limit(
		l.Requests,
		l.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded(l.Window)),
	)
}

func keyByUserOrIP(r *http.Request) (string, error) {
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String(), nil
	}
	return httprate.KeyByRealIP(r)
}

func limitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(max(1, int(window.Seconds())))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		p := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		p.Instance = r.URL.Path
		p.Write(w)
	}
}
