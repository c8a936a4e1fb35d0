// Package retry runs an operation under a bounded retry policy with
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/deusflow/newsdigest/internal/logger"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Backoff     bool // Exponential backoff
}

// DefaultConfig is three attempts starting at one second, doubling.
func DefaultConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Second,
		MaxDelay:    10 * time.Second,
		Backoff:     true,
	}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying; WithRetry returns it unwrapped
// after the current attempt.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// WithRetry calls fn until it succeeds, returns a permanent error, the
// context ends, or MaxAttempts calls have failed.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff
	if config.Backoff {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = config.Delay
		if config.MaxDelay > 0 {
			eb.MaxInterval = config.MaxDelay
		}
		eb.MaxElapsedTime = 0
		b = eb
	} else {
		b = backoff.NewConstantBackOff(config.Delay)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		return fn()
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("attempt failed, retrying", "attempt", attempt, "max_attempts", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(op, bo, notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if attempt < attempts {
		// stopped early by a permanent error
		return err
	}
	return &ExhaustedError{Attempts: attempt, Err: err}
}
