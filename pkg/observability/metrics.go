// Package observability provides OpenTelemetry-backed metrics, tracing,
// and structured logging helpers for saga execution, adapted from
// sagaflow's originating graph-engine codebase by renaming its
// node/graph-level concepts to step/saga-level ones.
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

// MetricsRecorder records engine metrics. Use NewMetricsRecorder() for
// OTel-backed metrics or NoopMetrics{} when metrics are disabled.
type MetricsRecorder interface {
	// RecordStepExecution records one step's execute/rollback call.
	RecordStepExecution(ctx context.Context, stepKind string, duration time.Duration, err error)

	// RecordSagaRun records a saga execution reaching a terminal status
	// (Finished or Errored) or suspending (Paused).
	RecordSagaRun(ctx context.Context, status string, duration time.Duration)

	// RecordSnapshotSize records the byte size of a persisted execution
	// snapshot.
	RecordSnapshotSize(ctx context.Context, sizeBytes int64)
}

type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	sagaRuns       metric.Int64Counter
	sagaLatency    metric.Float64Histogram
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("sagaflow")

	stepExecutions, err := meter.Int64Counter("sagaflow.step.executions",
		metric.WithDescription("Number of step executions"))
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("sagaflow.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("sagaflow.step.errors",
		metric.WithDescription("Number of step execution errors"))
	if err != nil {
		return nil, err
	}

	sagaRuns, err := meter.Int64Counter("sagaflow.saga.runs",
		metric.WithDescription("Number of saga execute() calls reaching a terminal or paused status"))
	if err != nil {
		return nil, err
	}

	sagaLatency, err := meter.Float64Histogram("sagaflow.saga.latency_ms",
		metric.WithDescription("Saga execute() call latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("sagaflow.snapshot.size_bytes",
		metric.WithDescription("Execution snapshot size in bytes"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions: stepExecutions,
		stepLatency:    stepLatency,
		stepErrors:     stepErrors,
		sagaRuns:       sagaRuns,
		sagaLatency:    sagaLatency,
		snapshotSize:   snapshotSize,
	}, nil
}

// NewMetricsRecorder returns an OpenTelemetry-backed MetricsRecorder
// using the global meter provider. Configure the provider before
// calling this (otel.SetMeterProvider). Falls back to a no-op recorder
// if meter instrument creation fails.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("observability: metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordStepExecution(ctx context.Context, stepKind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("step.kind", stepKind)}
	m.stepExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordSagaRun(ctx context.Context, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("saga.status", status)}
	m.sagaRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sagaLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

func (m *otelMetrics) RecordSnapshotSize(ctx context.Context, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes)
}
