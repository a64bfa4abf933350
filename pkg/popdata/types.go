// Package popdata provides public types for population extract jobs.
// This package is intended to be importable by external projects that need
// to drive the seerpop runtime programmatically.
package popdata

import "time"

// Job represents a complete extract job configuration.
// It contains the acquisition source, the filter to apply, and the
// destination for the reduced dataset.
type Job struct {
	// Name is the human-readable name of the job
	Name string `json:"name" yaml:"name"`

	// Description provides additional context about the job
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Input defines the data acquisition module
	Input *ModuleConfig `json:"input" yaml:"input"`

	// Years selects the calendar years to retain. Empty means all years.
	Years []int `json:"years,omitempty" yaml:"years,omitempty"`

	// Filter defines the row predicate applied after decoding
	Filter *FilterConfig `json:"filter,omitempty" yaml:"filter,omitempty"`

	// Output defines the destination writer module
	Output *ModuleConfig `json:"output" yaml:"output"`

	// Decode configures the decode stage
	Decode DecodeConfig `json:"decode,omitempty" yaml:"decode,omitempty"`
}

// ModuleConfig represents the configuration for an input or output module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "http", "file", "csv", "sqlite")
	Type string `json:"type" yaml:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// FilterConfig defines the row predicate for a job.
// Predicate is a structured expression tree; Expr and Script are optional
// additional predicates in alternative surface languages. All supplied
// predicates are conjoined: a row is retained only if every one holds.
type FilterConfig struct {
	// Predicate is the structured predicate tree (comparisons, in-sets,
	// and boolean combinators over named fields).
	Predicate map[string]interface{} `json:"predicate,omitempty" yaml:"predicate,omitempty"`

	// Expr is an optional expression in expr-lang syntax evaluated per row.
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Script is optional JavaScript defining a keep(record) function
	// evaluated per row.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// DecodeConfig configures the decode stage.
type DecodeConfig struct {
	// Workers is the number of parallel decode workers. Zero or one selects
	// sequential decoding.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// ExecutionResult represents the result of a job execution.
type ExecutionResult struct {
	// RunID uniquely identifies this execution
	RunID string `json:"runId"`

	// JobName is the name of the executed job
	JobName string `json:"jobName"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RecordsDecoded is the number of raw records decoded
	RecordsDecoded int `json:"recordsDecoded"`

	// RecordsRetained is the number of rows retained by the filter
	RecordsRetained int `json:"recordsRetained"`

	// RecordsWritten is the number of rows handed to the output writer
	RecordsWritten int `json:"recordsWritten"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Stage is the pipeline stage where the error occurred
	// (acquire, decode, filter, write)
	Stage string `json:"stage,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
