// Package errhandling provides error types, classification, and retry
// utilities. This file defines the pipeline error taxonomy: decode errors,
// schema mismatch errors, and predicate errors. All three abort the current
// run; the tool processes a one-shot dataset and partial success is not a
// supported mode.
package errhandling

import (
	"fmt"
	"strings"
)

// maxRawPreview limits how much of the offending raw line is echoed in
// error messages. The full line is still carried on the error value.
const maxRawPreview = 64

// DecodeError reports a malformed or mis-sized raw record.
// Any single bad record is treated as a signal that the layout assumption
// is wrong, so the error carries the offending line index, field, and raw
// content for diagnosis.
type DecodeError struct {
	// Line is the 1-based source line index of the offending record.
	Line int
	// Field is the name of the field that failed to decode, empty when the
	// whole record is at fault (e.g. length mismatch).
	Field string
	// Raw is the raw record content.
	Raw string
	// Reason describes what went wrong.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("decode error at line %d", e.Line))
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(", field %q", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if e.Raw != "" {
		raw := e.Raw
		if len(raw) > maxRawPreview {
			raw = raw[:maxRawPreview] + "..."
		}
		sb.WriteString(fmt.Sprintf(" (raw: %q)", raw))
	}
	return sb.String()
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a DecodeError for a record-level failure.
func NewDecodeError(line int, raw, reason string) *DecodeError {
	return &DecodeError{Line: line, Raw: raw, Reason: reason}
}

// NewFieldDecodeError creates a DecodeError for a field-level parse failure.
func NewFieldDecodeError(line int, field, raw, reason string, err error) *DecodeError {
	return &DecodeError{Line: line, Field: field, Raw: raw, Reason: reason, Err: err}
}

// SchemaMismatchError reports a row whose field set differs from the table's
// schema. This is an internal consistency guard: with a fixed layout it
// indicates a decoder bug, not bad input.
type SchemaMismatchError struct {
	// Line is the 1-based source line index of the offending row.
	Line int
	// Missing lists fields present in the table schema but absent from the row.
	Missing []string
	// Extra lists fields present in the row but absent from the table schema.
	Extra []string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("schema mismatch at row %d", e.Line))
	if len(e.Missing) > 0 {
		sb.WriteString(fmt.Sprintf(": missing fields %v", e.Missing))
	}
	if len(e.Extra) > 0 {
		if len(e.Missing) > 0 {
			sb.WriteString(",")
		} else {
			sb.WriteString(":")
		}
		sb.WriteString(fmt.Sprintf(" unexpected fields %v", e.Extra))
	}
	return sb.String()
}

// InvalidPredicateError reports a predicate that references an unknown field
// or applies an operator to an incompatible type. It is raised during
// predicate validation, before any row is evaluated.
type InvalidPredicateError struct {
	// Field is the field name the predicate referenced, if applicable.
	Field string
	// Reason describes why the predicate is invalid.
	Reason string
}

// Error implements the error interface.
func (e *InvalidPredicateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid predicate on field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid predicate: %s", e.Reason)
}

// NewInvalidPredicateError creates an InvalidPredicateError.
func NewInvalidPredicateError(field, reason string) *InvalidPredicateError {
	return &InvalidPredicateError{Field: field, Reason: reason}
}
