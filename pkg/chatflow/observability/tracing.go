package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the chatflow tracer instance, using the global OTel provider.
var tracer = otel.Tracer("chatflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartStepSpan starts a span covering one step-loop invocation.
	StartStepSpan(ctx context.Context, flowID, conversationID string) (context.Context, trace.Span)

	// StartHopSpan starts a span for one hop, as a child of the step span.
	StartHopSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
// Configure the global tracer provider before calling this.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartStepSpan starts a span covering one step-loop invocation.
func (m *otelSpanManager) StartStepSpan(ctx context.Context, flowID, conversationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "chatflow.step",
		trace.WithAttributes(
			attribute.String("flow.id", flowID),
			attribute.String("conversation.id", conversationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartHopSpan starts a span for one hop.
func (m *otelSpanManager) StartHopSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "chatflow.hop."+nodeID,
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
