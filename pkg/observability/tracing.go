package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the sagaflow tracer instance, using the global OTel tracer
// provider.
var tracer = otel.Tracer("sagaflow")

// SpanManager handles trace span lifecycle around saga and step
// execution. Use NewSpanManager() for OTel tracing or
// NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSagaSpan starts a span for one SagaExecution.Execute call.
	StartSagaSpan(ctx context.Context, executionID string) (context.Context, trace.Span)

	// StartStepSpan starts a span for one step's execute/rollback call.
	// The step span should be a child of the saga span.
	StartStepSpan(ctx context.Context, stepIndex int, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSagaSpan starts a span for the entire saga execution.
func (m *otelSpanManager) StartSagaSpan(ctx context.Context, executionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.saga.execute",
		trace.WithAttributes(
			attribute.String("saga.execution_id", executionID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStepSpan starts a span for one step's execute/rollback call.
func (m *otelSpanManager) StartStepSpan(ctx context.Context, stepIndex int, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.step",
		trace.WithAttributes(
			attribute.Int("step.index", stepIndex),
			attribute.String("step.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
//
// A *PausedExecutionStepError is routine control flow, not a failure —
// callers should check for it before calling this with a non-nil err
// so a paused step's span records an Ok status rather than Error.
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

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Convenience functions that operate on the global tracer, for call
// sites that don't carry a SpanManager through explicitly.

// StartSagaSpan starts a span for the entire saga execution using the
// global OTel tracer.
func StartSagaSpan(ctx context.Context, executionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.saga.execute",
		trace.WithAttributes(attribute.String("saga.execution_id", executionID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStepSpan starts a span for one step using the global OTel tracer.
func StartStepSpan(ctx context.Context, stepIndex int, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.step",
		trace.WithAttributes(
			attribute.Int("step.index", stepIndex),
			attribute.String("step.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
