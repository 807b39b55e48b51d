package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records chatflow engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one step-loop invocation with its outcome,
	// the number of hops executed, and the total duration.
	RecordStep(ctx context.Context, outcome string, hops int, duration time.Duration)

	// RecordDispatch records an outbound send attempt.
	RecordDispatch(ctx context.Context, payloadType string, duration time.Duration, err error)

	// RecordHopLimit records the hop-cap guard firing.
	RecordHopLimit(ctx context.Context)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepRuns        metric.Int64Counter
	stepLatency     metric.Float64Histogram
	stepHops        metric.Int64Histogram
	dispatchSends   metric.Int64Counter
	dispatchErrors  metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	hopLimitHits    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the default OTel metrics instance.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("chatflow")

	stepRuns, err := meter.Int64Counter("chatflow.step.runs",
		metric.WithDescription("Number of step-loop invocations"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("chatflow.step.latency_ms",
		metric.WithDescription("Step-loop latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepHops, err := meter.Int64Histogram("chatflow.step.hops",
		metric.WithDescription("Hops executed per inbound event"),
	)
	if err != nil {
		return nil, err
	}

	dispatchSends, err := meter.Int64Counter("chatflow.dispatch.sends",
		metric.WithDescription("Number of outbound send attempts"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("chatflow.dispatch.errors",
		metric.WithDescription("Number of failed outbound sends"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("chatflow.dispatch.latency_ms",
		metric.WithDescription("Outbound send latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	hopLimitHits, err := meter.Int64Counter("chatflow.step.hop_limit_hits",
		metric.WithDescription("Number of times the hop-cap guard fired"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepRuns:        stepRuns,
		stepLatency:     stepLatency,
		stepHops:        stepHops,
		dispatchSends:   dispatchSends,
		dispatchErrors:  dispatchErrors,
		dispatchLatency: dispatchLatency,
		hopLimitHits:    hopLimitHits,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by OpenTelemetry.
// If metrics initialization fails, the failure is logged and a no-op
// recorder is returned; metrics never break message handling.
func NewMetricsRecorder(logger *slog.Logger) MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		if logger != nil {
			logger.Warn("metrics initialization failed, using noop recorder",
				slog.String("error", err.Error()))
		}
		return NoopMetrics{}
	}
	return m
}

// RecordStep implements MetricsRecorder.
func (m *otelMetrics) RecordStep(ctx context.Context, outcome string, hops int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.stepRuns.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.stepHops.Record(ctx, int64(hops), attrs)
}

// RecordDispatch implements MetricsRecorder.
func (m *otelMetrics) RecordDispatch(ctx context.Context, payloadType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("payload_type", payloadType))
	m.dispatchSends.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, attrs)
	}
}

// RecordHopLimit implements MetricsRecorder.
func (m *otelMetrics) RecordHopLimit(ctx context.Context) {
	m.hopLimitHits.Add(ctx, 1)
}
