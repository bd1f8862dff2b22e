package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const providerMeterName = "github.com/tripweather/tripweather/internal/provider"

// Outcomes recorded on provider.request.* instruments.
const (
	OutcomeOK       = "ok"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// ProviderMetrics records upstream provider calls. It satisfies
// resilience.RequestRecorder.
type ProviderMetrics struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

// NewProviderMetrics creates the instruments on mp, or on the global meter
// provider when mp is nil.
func NewProviderMetrics(mp metric.MeterProvider) (*ProviderMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(providerMeterName)

	duration, err := meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Provider call duration in seconds, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	calls, err := meter.Int64Counter("provider.request.total",
		metric.WithDescription("Provider calls by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &ProviderMetrics{duration: duration, calls: calls}, nil
}

func (m *ProviderMetrics) RecordRequest(provider string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("outcome", Outcome(err)),
	)
	// The caller's context may already be done.
	ctx := context.Background()
	m.duration.Record(ctx, d.Seconds(), attrs)
	m.calls.Add(ctx, 1, attrs)
}

// Outcome classifies a provider call result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
