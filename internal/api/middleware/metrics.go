package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tripweather/tripweather/internal/api/middleware"

// Metrics records per-request HTTP instruments on the global meter
// provider.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var m Metrics
	var errs [4]error
	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"))
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"))
	m.inFlight, errs[2] = meter.Int64UpDownCounter("http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"))
	m.size, errs[3] = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"),
		metric.WithUnit("By"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records duration, count and response size per route pattern.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			method := metric.WithAttributes(attribute.String("http.method", r.Method))
			m.inFlight.Add(ctx, 1, method)
			defer m.inFlight.Add(ctx, -1, method)

			ww := wrap(w, r)
			next.ServeHTTP(ww, r)

			opt := metric.WithAttributes(routeAttributes(r, statusOf(ww))...)
			m.duration.Record(ctx, time.Since(start).Seconds(), opt)
			m.requests.Add(ctx, 1, opt)
			m.size.Record(ctx, int64(ww.BytesWritten()), opt)
		})
	}
}

// routeAttributes labels a finished request. The chi route pattern is used
// instead of the raw path so trip ids do not blow up cardinality.
func routeAttributes(r *http.Request, status int) []attribute.KeyValue {
	route := routePattern(r)
	if route == "" {
		route = "unmatched"
	}
	return []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
		attribute.Bool("error", status >= http.StatusBadRequest),
	}
}
