package provider

import (
	"context"
	"time"
)

// MaxRetries is the number of retries after a failed delivery attempt.
const MaxRetries = 3

// BaseRetryDelay is the initial delay for exponential backoff.
const BaseRetryDelay = 1 * time.Second

// Backoff returns base doubled once per attempt: 2s, 4s, 8s for a 1s base.
func Backoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Sleep waits for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
