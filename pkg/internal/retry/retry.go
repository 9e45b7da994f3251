// Package retry implements the bounded exponential backoff used by the
// HTTP pipeline.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config contains configuration for retry logic
type Config struct {
	// Maximum number of retry attempts after the initial try
	MaxRetries int

	// Initial delay before the first retry
	InitialDelay time.Duration

	// Maximum delay between retries
	MaxDelay time.Duration

	// Backoff multiplier
	Multiplier float64

	// JitterFraction adds +/- this fraction of random variation to each
	// delay
	JitterFraction float64

	// ShouldRetry determines if an error should trigger a retry.
	// If nil, no errors trigger retries.
	ShouldRetry func(error) bool
}

// DefaultConfig returns the pipeline defaults: 3 retries, 250ms initial
// delay, factor 2, jitter +/-20%.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// Func represents a function that can be retried
type Func func(ctx context.Context) error

// Do executes fn, retrying retriable failures with exponential backoff.
// The context bounds the whole sequence including backoff sleeps.
func Do(ctx context.Context, cfg Config, fn Func) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.ShouldRetry == nil || !cfg.ShouldRetry(err) {
			return err
		}
		if attempt >= cfg.MaxRetries {
			return err
		}

		timer := time.NewTimer(delay(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
}

// delay computes the backoff for the given zero-based attempt.
func delay(attempt int, cfg Config) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	if cfg.JitterFraction > 0 {
		d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}
