// Package errhandling provides error types, classification, and retry
// utilities. This file classifies acquisition errors (HTTP and network) so
// the downloader can decide whether a retry is worthwhile. Classification
// applies only to the acquisition boundary: decode, schema, and predicate
// errors are never retryable.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNetwork represents network-related errors (timeout, connection
	// refused, DNS). Typically transient and retryable.
	CategoryNetwork ErrorCategory = "network"

	// CategoryServer represents server errors (5xx). Typically transient.
	CategoryServer ErrorCategory = "server"

	// CategoryRateLimit represents rate limiting errors (429).
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryNotFound represents not found errors (404). The dataset URL
	// is wrong or the vintage has moved; retrying cannot help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryClient represents other 4xx errors. Not retryable.
	CategoryClient ErrorCategory = "client"

	// CategoryData represents decode/schema/predicate errors. Never
	// retryable: the input assumption is wrong, not the transport.
	CategoryData ErrorCategory = "data"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Retryable indicates whether the error is transient and can be retried.
	Retryable bool

	// StatusCode is the HTTP status code (0 if not an HTTP error).
	StatusCode int

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyHTTPStatus classifies an HTTP error based on status code.
//
// Classification rules:
//   - 404: not found (not retryable)
//   - 429: rate limit (retryable)
//   - 5xx: server errors (retryable)
//   - other 4xx: client errors (not retryable)
func ClassifyHTTPStatus(statusCode int) *ClassifiedError {
	switch {
	case statusCode == 404:
		return &ClassifiedError{
			Category:   CategoryNotFound,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    "not found",
		}
	case statusCode == 429:
		return &ClassifiedError{
			Category:   CategoryRateLimit,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "rate limited",
		}
	case statusCode >= 500:
		return &ClassifiedError{
			Category:   CategoryServer,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "server error",
		}
	case statusCode >= 400:
		return &ClassifiedError{
			Category:   CategoryClient,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    "client error",
		}
	default:
		return &ClassifiedError{
			Category:   CategoryUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status %d", statusCode),
		}
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Data errors (decode, schema mismatch, invalid predicate) are fatal.
// Network errors are retryable; context cancellation is not.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Category: CategoryUnknown, Retryable: false, Message: "nil error"}
	}

	// Already classified
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	// Pipeline data errors are never retryable
	var decodeErr *DecodeError
	var schemaErr *SchemaMismatchError
	var predErr *InvalidPredicateError
	if errors.As(err, &decodeErr) || errors.As(err, &schemaErr) || errors.As(err, &predErr) {
		return &ClassifiedError{
			Category:    CategoryData,
			Retryable:   false,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryNetwork,
			Retryable:   true,
			Message:     "request timeout",
			OriginalErr: err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{
			Category:    CategoryNetwork,
			Retryable:   false,
			Message:     "context canceled",
			OriginalErr: err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ClassifiedError{
			Category:    CategoryNetwork,
			Retryable:   true,
			Message:     fmt.Sprintf("network error: %s %s", opErr.Op, opErr.Net),
			OriginalErr: err,
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClassifiedError{
			Category:    CategoryNetwork,
			Retryable:   true,
			Message:     fmt.Sprintf("DNS error: %s", dnsErr.Name),
			OriginalErr: err,
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ClassifiedError{
			Category:    CategoryNetwork,
			Retryable:   true,
			Message:     fmt.Sprintf("URL error: %s %s", urlErr.Op, urlErr.URL),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Retryable:   false,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsRetryable returns true if the error is classified as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Retryable
}
