package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// requestUser lets the auth middleware, which runs deeper in the chain,
// report the caller back to the request logger.
type requestUser struct {
	id uuid.UUID
}

type requestUserKey struct{}

func noteUser(ctx context.Context, id uuid.UUID) {
	if u, ok := ctx.Value(requestUserKey{}).(*requestUser); ok {
		u.id = id
	}
}

// Logger returns a middleware that logs one line per HTTP request. Server
// errors are logged at error level, client errors at warn and successful
// ops probes at debug.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w, r)
			user := &requestUser{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestUserKey{}, user)))

			elapsed := time.Since(start)
			status := statusOf(ww)
			route := routePattern(r)

			ev := log.WithLevel(levelFor(status, route)).
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", elapsed).
				Int64("duration_ms", elapsed.Milliseconds()).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				ev = ev.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
			}
			if route != "" {
				ev = ev.Str("route", route)
			}
			if user.id != uuid.Nil {
				ev = ev.Str("user_id", user.id.String())
			}
			ev.Msg("request completed")
		})
	}
}

func levelFor(status int, route string) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case strings.HasPrefix(route, "/v1/ops/"):
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// routePattern returns the matched chi route, e.g. "/v1/trips/{routeID}".
// It is only complete after the request has been routed.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
