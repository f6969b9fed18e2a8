package executor

import (
	"context"
	"time"
)

// Retry runs fn up to maxRetries+1 times, sleeping delay between attempts,
// and returns the last error. It stops early when ctx ends. A negative
// maxRetries counts as zero: fn always runs at least once.
func Retry(ctx context.Context, maxRetries int, delay time.Duration, fn func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, maxRetries, delay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for operations that return a value.
func RetryValue[T any](ctx context.Context, maxRetries int, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	maxRetries = max(maxRetries, 0)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return out, err
			case <-t.C:
			}
		}
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
	}
	return out, err
}
