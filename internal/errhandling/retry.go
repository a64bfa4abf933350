// Package errhandling provides error types, classification, and retry
// utilities. This file implements the retry executor used by the downloader.
package errhandling

import (
	"context"
	"log/slog"
	"time"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
)

// Default retry configuration values.
const (
	DefaultMaxAttempts       = 3
	DefaultDelay             = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelay          = 30 * time.Second

	// MaxRetryAttempts caps configured attempts to a sane upper bound.
	MaxRetryAttempts = 10
)

// RetryConfig holds retry configuration for the acquisition stage.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the initial delay between attempts.
	Delay time.Duration
	// BackoffMultiplier multiplies the delay after each failed attempt.
	BackoffMultiplier float64
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		Delay:             DefaultDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxDelay:          DefaultMaxDelay,
	}
}

// normalize clamps out-of-range values to defaults.
func (c RetryConfig) normalize() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MaxAttempts > MaxRetryAttempts {
		c.MaxAttempts = MaxRetryAttempts
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// RetryFunc is a function that can be retried.
type RetryFunc func(ctx context.Context) error

// Retry runs fn, retrying on retryable errors with exponential backoff.
// Non-retryable errors (client errors, data errors, context cancellation)
// abort immediately. Returns the last error on exhaustion.
func Retry(ctx context.Context, cfg RetryConfig, fn RetryFunc) error {
	cfg = cfg.normalize()
	delay := cfg.Delay

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn("retryable error, backing off",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
