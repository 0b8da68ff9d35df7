package worker

import (
	"context"
	"errors"
	"time"
)

// exponentialBackoff waits 1s, 2s, 4s … before attempts 1, 2, 3 …
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// withRetry calls fn up to maxAttempts times. Errors wrapping ErrPermanent
// stop the loop at once.
func withRetry(ctx context.Context, maxAttempts int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrPermanent) {
			break
		}
	}
	return lastErr
}
