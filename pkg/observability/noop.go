package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics discards every recorded metric. Use it when metrics
// collection is disabled in configuration.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordStepExecution(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordSagaRun(context.Context, string, time.Duration)               {}
func (NoopMetrics) RecordSnapshotSize(context.Context, int64)                          {}

var noopSpan = noop.Span{}

// NoopSpanManager discards every span. Use it when tracing is disabled
// in configuration.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartSagaSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) StartStepSpan(ctx context.Context, _ int, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
