package chatflow

import (
	"log/slog"

	"github.com/tidechat/chatflow/pkg/chatflow/observability"
)

// engineConfig holds engine construction settings.
type engineConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	maxHops int
}

// defaultEngineConfig returns the default engine configuration:
// default slog logger, metrics and tracing disabled, hop cap derived from
// the graph's node count.
func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the structured logger the step trace is emitted to.
// Pass nil to silence the trace entirely.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics for steps and dispatches.
func WithMetrics(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder(c.logger)
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans: one per step, one per hop.
func WithTracing(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSpanManager sets a custom span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *engineConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithMaxHops overrides the hop cap applied to one inbound event.
// The default (0) caps at the node count of the executing graph.
func WithMaxHops(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.maxHops = n
		}
	}
}
