package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry executes a function with exponential backoff retry
func Retry(maxAttempts int, initialDelay time.Duration, fn func() error) error {
	return RetryContext(context.Background(), maxAttempts, initialDelay, fn, nil)
}

// RetryContext executes a function with exponential backoff retry. It stops
// early when ctx is done or when shouldRetry rejects the error.
func RetryContext(ctx context.Context, maxAttempts int, initialDelay time.Duration, fn func() error, shouldRetry func(error) bool) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Check if we should retry this error
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		if attempt < maxAttempts {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
			case <-timer.C:
			}
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}
