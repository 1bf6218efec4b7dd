package syncer

import (
	"context"
	"time"

	"cnsync/internal/apierr"
)

// RetryConfig bounds retries of transient and rate-limited API calls.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
}

// DefaultRetryConfig returns the retry bounds used when the config file
// does not override them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          15 * time.Second,
	}
}

// Do invokes fn, retrying transient and rate-limit failures with
// exponential backoff. A server-provided Retry-After hint overrides the
// computed delay for that attempt. Non-retriable errors return
// immediately; the last error is returned once attempts are exhausted.
func (c RetryConfig) Do(ctx context.Context, fn func() error) error {
	delay := c.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !apierr.IsRetriable(err) {
			return err
		}
		if attempt >= c.MaxAttempts {
			return err
		}

		wait := delay
		if hint := apierr.RetryAfterHint(err); hint > 0 {
			wait = hint
		}
		if wait > c.MaxDelay {
			wait = c.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * c.BackoffMultiplier)
	}
}
