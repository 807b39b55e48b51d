package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs a tracer provider with an in-memory exporter.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("chatflow")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("chatflow")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("tracer provider shutdown: %v", err)
		}
	})

	return exporter
}

func spanAttr(s tracetest.SpanStub, key string) string {
	for _, attr := range s.Attributes {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func TestStartStepSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	_, span := sm.StartStepSpan(context.Background(), "flow-1", "conv-1")
	require.NotNil(t, span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "chatflow.step", spans[0].Name)
	assert.Equal(t, "flow-1", spanAttr(spans[0], "flow.id"))
	assert.Equal(t, "conv-1", spanAttr(spans[0], "conversation.id"))
}

func TestStartHopSpan_IsChildOfStepSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, stepSpan := sm.StartStepSpan(context.Background(), "flow-1", "conv-1")
	_, hopSpan := sm.StartHopSpan(ctx, "n1")
	hopSpan.End()
	stepSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// The hop span ends first, so it exports first.
	hop, step := spans[0], spans[1]
	assert.Equal(t, "chatflow.hop.n1", hop.Name)
	assert.Equal(t, "n1", spanAttr(hop, "node.id"))
	assert.Equal(t, step.SpanContext.SpanID(), hop.Parent.SpanID())
	assert.Equal(t, step.SpanContext.TraceID(), hop.SpanContext.TraceID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	t.Run("success sets ok status", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartStepSpan(context.Background(), "flow-1", "conv-1")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("error is recorded", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartStepSpan(context.Background(), "flow-1", "conv-1")
		sm.EndSpanWithError(span, errors.New("boom"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "boom", spans[0].Status.Description)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("nil span is safe", func(t *testing.T) {
		assert.NotPanics(t, func() { sm.EndSpanWithError(nil, nil) })
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	t.Run("adds event to recording span", func(t *testing.T) {
		exporter.Reset()
		ctx, span := sm.StartStepSpan(context.Background(), "flow-1", "conv-1")
		sm.AddSpanEvent(ctx, "edge.selected", attribute.String("rule", "input_match"))
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "edge.selected", spans[0].Events[0].Name)
	})

	t.Run("no recording span is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.AddSpanEvent(context.Background(), "orphan.event")
		})
	})
}
