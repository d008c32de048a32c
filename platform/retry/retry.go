// Package retry provides a bounded optimistic retry combinator.
// This is part of the platform layer and contains no business logic.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// permanentError wraps errors that must not be retried. Use Permanent to mark one.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable, stopping the loop immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithOptimisticRetry runs fn up to maxAttempts times, sleeping a small
// random jitter between attempts. It retries every error except those
// marked Permanent. The last error is returned when attempts are exhausted.
//
// Intended for read-then-write races resolved by unique constraints: the
// loser of a concurrent insert retries the whole find-or-create instead of
// surfacing a duplicate-row bug.
func WithOptimisticRetry(ctx context.Context, maxAttempts int, jitter time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt < maxAttempts && jitter > 0 {
			delay := time.Duration(rand.Int63n(int64(jitter))) + jitter/2
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
