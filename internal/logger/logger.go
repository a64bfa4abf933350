// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the
// runtime, including helpers for run start/end, stage start/end, and run
// metrics. All helpers use structured logging with snake_case field names.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetLevel configures the logging level.
func SetLevel(level slog.Level) {
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetOutput redirects log output to the given writer. Intended for tests.
func SetOutput(w io.Writer, level slog.Level) {
	Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// RunContext contains context information for job execution logging.
type RunContext struct {
	// RunID is the unique identifier for the execution (required)
	RunID string
	// JobName is the human-readable name of the job
	JobName string
	// Stage is the current execution stage (acquire, decode, filter, write)
	Stage string
	// DryRun indicates if this is a dry-run execution
	DryRun bool
}

// RunMetrics contains performance metrics for run logging.
type RunMetrics struct {
	// TotalDuration is the total execution time
	TotalDuration time.Duration
	// AcquireDuration is the time spent acquiring the raw dataset
	AcquireDuration time.Duration
	// DecodeDuration is the time spent decoding fixed-width records
	DecodeDuration time.Duration
	// FilterDuration is the time spent evaluating the predicate
	FilterDuration time.Duration
	// WriteDuration is the time spent writing the output table
	WriteDuration time.Duration
	// RecordsDecoded is the number of raw records decoded
	RecordsDecoded int
	// RecordsRetained is the number of rows retained by the filter
	RecordsRetained int
	// RecordsPerSecond is the decode throughput (records per second)
	RecordsPerSecond float64
}

// WithRun returns a logger with run context attached.
// Only non-empty fields are included in the log output.
func WithRun(ctx RunContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogRunStart logs the start of a job execution.
func LogRunStart(ctx RunContext) {
	Logger.Info("run started", buildContextAttrs(ctx)...)
}

// LogRunEnd logs the completion of a job execution with the final status.
func LogRunEnd(ctx RunContext, status string, recordsRetained int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("records_retained", recordsRetained),
		slog.Duration("duration", duration),
	)
	Logger.Info("run completed", attrs...)
}

// LogStageStart logs the start of a pipeline stage.
func LogStageStart(ctx RunContext) {
	Logger.Info("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the completion of a pipeline stage.
// If err is non-nil, logs as an error with the failure message.
func LogStageEnd(ctx RunContext, recordCount int, duration time.Duration, err error) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("record_count", recordCount),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// LogMetrics logs run performance metrics after execution completion.
func LogMetrics(ctx RunContext, metrics RunMetrics) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Duration("total_duration", metrics.TotalDuration),
		slog.Duration("acquire_duration", metrics.AcquireDuration),
		slog.Duration("decode_duration", metrics.DecodeDuration),
		slog.Duration("filter_duration", metrics.FilterDuration),
		slog.Duration("write_duration", metrics.WriteDuration),
		slog.Int("records_decoded", metrics.RecordsDecoded),
		slog.Int("records_retained", metrics.RecordsRetained),
		slog.Float64("records_per_second", metrics.RecordsPerSecond),
	)
	Logger.Info("run metrics", attrs...)
}

// buildContextAttrs builds a slice of slog attributes from a RunContext.
// Only non-empty fields are included.
func buildContextAttrs(ctx RunContext) []any {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.JobName != "" {
		attrs = append(attrs, slog.String("job_name", ctx.JobName))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	return attrs
}
