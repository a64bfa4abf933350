// Package runtime provides the extract pipeline execution engine.
// It orchestrates acquisition, decoding, filtering, and output writing.
// The executor performs no decoding or filtering logic of its own: it
// wires the stages in order and propagates the first error encountered,
// aborting the run. Partial output is not a supported mode.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/decode"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/input"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/output"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/predicate"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

// Error codes for pipeline execution errors.
const (
	ErrCodeInvalidJob    = "INVALID_JOB"
	ErrCodeAcquireFailed = "ACQUIRE_FAILED"
	ErrCodeDecodeFailed  = "DECODE_FAILED"
	ErrCodeFilterFailed  = "FILTER_FAILED"
	ErrCodeWriteFailed   = "WRITE_FAILED"
)

// Execution status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage names.
const (
	StageAcquire = "acquire"
	StageDecode  = "decode"
	StageFilter  = "filter"
	StageWrite   = "write"
)

// Common errors.
var (
	// ErrNilJob is returned when the job configuration is nil
	ErrNilJob = errors.New("job configuration is nil")

	// ErrNilInputModule is returned when the input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when the output module is nil
	ErrNilOutputModule = errors.New("output module is nil")
)

// Executor runs extract jobs. It only interacts with the acquisition and
// writer collaborators through their module interfaces; the core stages
// (decode, build, filter) own all data semantics.
type Executor struct {
	inputModule  input.Module
	outputModule output.Module
	vintages     *schema.VintageTable
	dryRun       bool
}

// NewExecutor creates a pipeline executor with the given modules.
// dryRun skips the write stage after filtering (validation and counting
// only). A nil vintage table selects the default SEER vintages.
func NewExecutor(in input.Module, out output.Module, vintages *schema.VintageTable, dryRun bool) *Executor {
	if vintages == nil {
		vintages = schema.DefaultVintages()
	}
	return &Executor{
		inputModule:  in,
		outputModule: out,
		vintages:     vintages,
		dryRun:       dryRun,
	}
}

// stageTimings holds timing measurements for each execution stage.
type stageTimings struct {
	acquire time.Duration
	decode  time.Duration
	filter  time.Duration
	write   time.Duration
}

// Execute runs a job: acquire raw data, decode it into a table, apply the
// filter, and hand the reduced table to the writer. The filter is
// assembled and validated before anything is downloaded, so a malformed
// predicate fails fast. The first error from any stage aborts the run.
func (e *Executor) Execute(ctx context.Context, job *popdata.Job) (*popdata.ExecutionResult, error) {
	startedAt := time.Now()
	result := &popdata.ExecutionResult{
		RunID:     uuid.NewString(),
		Status:    StatusError,
		StartedAt: startedAt,
	}

	if err := e.validate(job, result); err != nil {
		return result, err
	}
	result.JobName = job.Name

	runCtx := logger.RunContext{RunID: result.RunID, JobName: job.Name, DryRun: e.dryRun}
	logger.LogRunStart(runCtx)

	var timings stageTimings
	finish := func(err error) (*popdata.ExecutionResult, error) {
		result.CompletedAt = time.Now()
		total := result.CompletedAt.Sub(startedAt)
		if err != nil {
			logger.LogRunEnd(runCtx, StatusError, result.RecordsRetained, total)
			return result, err
		}
		result.Status = StatusSuccess
		logger.LogRunEnd(runCtx, StatusSuccess, result.RecordsRetained, total)
		e.logMetrics(runCtx, result, total, timings)
		return result, nil
	}

	// The filter is built before acquisition: a predicate that cannot
	// compile should not cost a download.
	engine, err := predicate.NewEngine(job.Filter, predicate.Years(job.Years...))
	if err != nil {
		result.Error = execError(ErrCodeFilterFailed, StageFilter, err)
		return finish(fmt.Errorf("building filter: %w", err))
	}

	if e.outputModule != nil {
		defer e.closeModule(result.RunID, "output", e.outputModule)
	}

	raw, dur, err := e.acquire(ctx, runCtx)
	timings.acquire = dur
	if err != nil {
		result.Error = execError(ErrCodeAcquireFailed, StageAcquire, err)
		return finish(fmt.Errorf("acquiring dataset: %w", err))
	}

	tbl, dur, err := e.decodeStage(ctx, runCtx, raw, job.Decode.Workers)
	timings.decode = dur
	if err != nil {
		result.Error = execError(ErrCodeDecodeFailed, StageDecode, err)
		return finish(fmt.Errorf("decoding dataset: %w", err))
	}
	result.RecordsDecoded = tbl.NumRows()

	filtered, dur, err := e.filterStage(runCtx, engine, tbl)
	timings.filter = dur
	if err != nil {
		result.Error = execError(ErrCodeFilterFailed, StageFilter, err)
		return finish(fmt.Errorf("applying filter: %w", err))
	}
	result.RecordsRetained = filtered.NumRows()

	if e.dryRun {
		logger.Debug("dry-run mode: skipping write stage",
			slog.String("run_id", result.RunID),
			slog.Int("rows_would_write", filtered.NumRows()),
		)
		result.RecordsWritten = filtered.NumRows()
		return finish(nil)
	}

	written, dur, err := e.writeStage(ctx, runCtx, filtered)
	timings.write = dur
	result.RecordsWritten = written
	if err != nil {
		result.Error = execError(ErrCodeWriteFailed, StageWrite, err)
		return finish(fmt.Errorf("writing output: %w", err))
	}
	return finish(nil)
}

// validate checks the job and modules before execution.
func (e *Executor) validate(job *popdata.Job, result *popdata.ExecutionResult) error {
	if job == nil {
		logger.Error("job execution failed: nil job configuration")
		result.CompletedAt = time.Now()
		result.Error = execError(ErrCodeInvalidJob, "", ErrNilJob)
		return ErrNilJob
	}
	if e.inputModule == nil {
		logger.Error("job execution failed: input module is nil",
			slog.String("job_name", job.Name))
		result.CompletedAt = time.Now()
		result.Error = execError(ErrCodeInvalidJob, StageAcquire, ErrNilInputModule)
		return ErrNilInputModule
	}
	if e.outputModule == nil && !e.dryRun {
		logger.Error("job execution failed: output module is nil",
			slog.String("job_name", job.Name))
		result.CompletedAt = time.Now()
		result.Error = execError(ErrCodeInvalidJob, StageWrite, ErrNilOutputModule)
		return ErrNilOutputModule
	}
	return nil
}

// acquire runs the input module and returns the raw text stream.
// The input module is closed as soon as acquisition completes; the
// returned reader stays open until the decode stage is done with it.
func (e *Executor) acquire(ctx context.Context, runCtx logger.RunContext) (io.ReadCloser, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = StageAcquire
	logger.LogStageStart(stageCtx)

	start := time.Now()
	raw, err := e.inputModule.Open(ctx)
	dur := time.Since(start)

	e.closeModule(runCtx.RunID, "input", e.inputModule)
	e.inputModule = nil // prevent double-close

	if err != nil {
		logger.LogStageEnd(stageCtx, 0, dur, err)
		return nil, dur, err
	}
	logger.LogStageEnd(stageCtx, 0, dur, nil)
	return raw, dur, nil
}

// decodeStage decodes the raw stream into the in-memory table.
func (e *Executor) decodeStage(ctx context.Context, runCtx logger.RunContext, raw io.ReadCloser, workers int) (*table.Table, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = StageDecode
	logger.LogStageStart(stageCtx)

	start := time.Now()
	tbl, err := decode.All(ctx, raw, e.vintages, workers)
	dur := time.Since(start)

	if cerr := raw.Close(); cerr != nil {
		logger.Warn("failed to close raw dataset",
			slog.String("run_id", runCtx.RunID),
			slog.String("error", cerr.Error()),
		)
	}
	if err != nil {
		logger.LogStageEnd(stageCtx, 0, dur, err)
		return nil, dur, err
	}
	logger.LogStageEnd(stageCtx, tbl.NumRows(), dur, nil)
	return tbl, dur, nil
}

// filterStage applies the assembled filter engine to the table.
func (e *Executor) filterStage(runCtx logger.RunContext, engine *predicate.Engine, tbl *table.Table) (*table.Table, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = StageFilter
	logger.LogStageStart(stageCtx)

	start := time.Now()
	filtered, err := engine.Apply(tbl)
	dur := time.Since(start)

	if err != nil {
		logger.LogStageEnd(stageCtx, tbl.NumRows(), dur, err)
		return nil, dur, err
	}
	logger.LogStageEnd(stageCtx, filtered.NumRows(), dur, nil)
	return filtered, dur, nil
}

// writeStage hands the reduced table to the output module.
func (e *Executor) writeStage(ctx context.Context, runCtx logger.RunContext, tbl *table.Table) (int, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = StageWrite
	logger.LogStageStart(stageCtx)

	start := time.Now()
	written, err := e.outputModule.Write(ctx, tbl)
	dur := time.Since(start)

	if err != nil {
		logger.LogStageEnd(stageCtx, written, dur, err)
		return written, dur, err
	}
	logger.LogStageEnd(stageCtx, written, dur, nil)
	return written, dur, nil
}

// logMetrics emits the run's performance metrics.
func (e *Executor) logMetrics(runCtx logger.RunContext, result *popdata.ExecutionResult, total time.Duration, timings stageTimings) {
	var perSecond float64
	if result.RecordsDecoded > 0 && timings.decode > 0 {
		perSecond = float64(result.RecordsDecoded) / timings.decode.Seconds()
	}
	logger.LogMetrics(runCtx, logger.RunMetrics{
		TotalDuration:    total,
		AcquireDuration:  timings.acquire,
		DecodeDuration:   timings.decode,
		FilterDuration:   timings.filter,
		WriteDuration:    timings.write,
		RecordsDecoded:   result.RecordsDecoded,
		RecordsRetained:  result.RecordsRetained,
		RecordsPerSecond: perSecond,
	})
}

// moduleCloser matches any module with resource cleanup.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(runID, moduleName string, m moduleCloser) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("run_id", runID),
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}

// execError builds an ExecutionError for a stage failure.
func execError(code, stage string, err error) *popdata.ExecutionError {
	return &popdata.ExecutionError{
		Code:    code,
		Message: err.Error(),
		Stage:   stage,
	}
}
