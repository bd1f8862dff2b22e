package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tripweather/tripweather/internal/api/middleware"
)

// meteredRouter installs a manual-reader meter provider for the test and
// returns a chi router with the metrics middleware plus the reader.
func meteredRouter(t *testing.T) (*chi.Mux, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	return r, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return nil
}

func attr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.Emit()
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	r, reader := meteredRouter(t)
	r.Get("/v1/trips/{routeID}", func(w http.ResponseWriter, _ *http.Request) {})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/trips/"+id, http.NoBody))
	}

	sum, ok := collect(t, reader, "http.server.request.total").(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)
	assert.Equal(t, "/v1/trips/{routeID}", attr(dp.Attributes, "http.route"))
	assert.Equal(t, "200", attr(dp.Attributes, "http.status_code"))
	assert.Equal(t, "false", attr(dp.Attributes, "error"))
}

func TestMetrics_StatusAndUnmatched(t *testing.T) {
	r, reader := meteredRouter(t)
	r.Post("/v1/route", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/route", http.NoBody))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	sum := collect(t, reader, "http.server.request.total").(metricdata.Sum[int64])
	got := map[string]string{}
	for _, dp := range sum.DataPoints {
		got[attr(dp.Attributes, "http.route")] = attr(dp.Attributes, "http.status_code") + "/" + attr(dp.Attributes, "error")
	}
	assert.Equal(t, map[string]string{
		"/v1/route": "502/true",
		"unmatched": "404/true",
	}, got)
}

func TestMetrics_ResponseSizeAndInFlight(t *testing.T) {
	r, reader := meteredRouter(t)
	r.Get("/v1/weather", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tempF":71}`))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody))

	size := collect(t, reader, "http.server.response.size").(metricdata.Histogram[int64])
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, int64(12), size.DataPoints[0].Sum)

	inFlight := collect(t, reader, "http.server.requests_in_flight").(metricdata.Sum[int64])
	require.Len(t, inFlight.DataPoints, 1)
	assert.Zero(t, inFlight.DataPoints[0].Value)

	dur := collect(t, reader, "http.server.request.duration").(metricdata.Histogram[float64])
	require.Len(t, dur.DataPoints, 1)
	assert.Equal(t, uint64(1), dur.DataPoints[0].Count)
}
