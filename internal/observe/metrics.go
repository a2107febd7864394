// Package observe provides OpenTelemetry metrics and tracing for the
// correction pipeline, plus a trace-aware slog helper.
//
// Instruments are created from a [metric.MeterProvider]; [Default] uses the
// globally registered provider. Tests should call [NewMetrics] with their own
// provider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for every instrument in this module.
const meterName = "github.com/raphaelaulasgranger/correcteurOrtho"

// Metrics holds the metric instruments of the correction pipeline.
type Metrics struct {
	// BackendRequests counts outbound correction requests by backend.
	BackendRequests metric.Int64Counter

	// BackendErrors counts failed requests by backend and error kind.
	BackendErrors metric.Int64Counter

	// BackendDuration tracks backend round-trip latency in seconds.
	BackendDuration metric.Float64Histogram

	// CorrectionsPresented counts markers created for the user.
	CorrectionsPresented metric.Int64Counter
}

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}
	if met.BackendRequests, err = m.Int64Counter("correcteur.backend.requests",
		metric.WithDescription("Correction requests sent to a backend."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("correcteur.backend.errors",
		metric.WithDescription("Correction requests that failed, by error kind."),
	); err != nil {
		return nil, err
	}
	if met.BackendDuration, err = m.Float64Histogram("correcteur.backend.duration",
		metric.WithDescription("Latency of correction backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsPresented, err = m.Int64Counter("correcteur.corrections.presented",
		metric.WithDescription("Correction markers shown to the user."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics bound to the global MeterProvider. If instrument
// creation fails it falls back to a no-op provider.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			m, _ = NewMetrics(noopProvider())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordBackendCall records one backend call. An empty errKind means success.
func (m *Metrics) RecordBackendCall(ctx context.Context, backend string, elapsed time.Duration, errKind string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	m.BackendRequests.Add(ctx, 1, attrs)
	m.BackendDuration.Record(ctx, elapsed.Seconds(), attrs)
	if errKind != "" {
		m.BackendErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("kind", errKind),
		))
	}
}

// RecordPresented records n markers created for one analysis.
func (m *Metrics) RecordPresented(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CorrectionsPresented.Add(ctx, int64(n))
}
