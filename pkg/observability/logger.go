package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger with execution_id, step_index, and
// attempt fields attached, for use throughout one step's lifetime.
func EnrichLogger(logger *slog.Logger, executionID string, stepIndex, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("execution_id", executionID),
		slog.Int("step_index", stepIndex),
		slog.Int("attempt", attempt),
	)
}

// LogSagaStart logs the start of a saga execution.
func LogSagaStart(logger *slog.Logger, executionID string) {
	if logger == nil {
		return
	}
	logger.Info("saga execution starting",
		slog.String("execution_id", executionID),
	)
}

// LogSagaComplete logs a saga execution reaching Finished.
func LogSagaComplete(logger *slog.Logger, executionID string, durationMs float64, stepCount int) {
	if logger == nil {
		return
	}
	logger.Info("saga execution completed",
		slog.String("execution_id", executionID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", stepCount),
	)
}

// LogSagaPaused logs a saga execution suspending to await a reply. This
// is a routine control-flow outcome, not a failure, and is logged at
// Info rather than Error or Warn.
func LogSagaPaused(logger *slog.Logger, executionID string, stepIndex int) {
	if logger == nil {
		return
	}
	logger.Info("saga execution paused awaiting reply",
		slog.String("execution_id", executionID),
		slog.Int("step_index", stepIndex),
	)
}

// LogSagaError logs saga execution failure after rollback has run.
func LogSagaError(logger *slog.Logger, executionID string, err error, durationMs float64, failedStep int) {
	if logger == nil {
		return
	}
	logger.Error("saga execution failed",
		slog.String("execution_id", executionID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.Int("failed_step", failedStep),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, stepIndex int, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.Int("step_index", stepIndex),
		slog.String("kind", kind),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, stepIndex int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.Int("step_index", stepIndex),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs step execution failure.
func LogStepError(logger *slog.Logger, stepIndex int, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.Int("step_index", stepIndex),
		slog.String("error", err.Error()),
	)
}

// LogStepRollback logs a compensating on_failure/on_error call for a step.
func LogStepRollback(logger *slog.Logger, stepIndex int, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("step rollback failed",
			slog.Int("step_index", stepIndex),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("step rolled back",
		slog.Int("step_index", stepIndex),
	)
}

// LogSnapshotSaved logs snapshot persistence.
func LogSnapshotSaved(logger *slog.Logger, executionID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("execution snapshot saved",
		slog.String("execution_id", executionID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs snapshot persistence failure (non-fatal: the
// execution itself already completed or paused successfully).
func LogSnapshotError(logger *slog.Logger, executionID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("execution snapshot failed",
		slog.String("execution_id", executionID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation. The returned
// function, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
