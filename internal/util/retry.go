package util

import (
	"context"
	"time"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay. It returns nil on the first success or the last error once
// attempts are exhausted, and honors context cancellation between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	delay := baseDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
