package catalog

import (
	"context"
	"time"

	"paroles/logger"
	"paroles/storage"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times with doubling delays.
// Permanent failures (auth rejections, missing objects, cancellation)
// surface immediately; only transient I/O is retried.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || !storage.Retryable(err) {
			return err
		}
		if attempt == retryAttempts {
			break
		}
		logger.Warn("transient storage failure, retrying",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.ErrorField(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
