package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks a backend that could not be reached (dial
	// failures, timeouts, a closed pool).
	ErrUnavailable = errors.New("cache backend unavailable")

	// ErrCorrupt marks an entry that exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// RetryableError marks an error worth retrying.
type RetryableError struct{ Err error }

// Retryable wraps err so RetryWithBackoff retries it. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retry policy for backend calls.
const (
	RetryAttempts  = 3
	RetryBaseDelay = 100 * time.Millisecond
)

// RetryWithBackoff calls fn up to RetryAttempts times, doubling the delay
// from RetryBaseDelay between attempts. Only Retryable errors are retried;
// anything else is returned at once.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := RetryBaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == RetryAttempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
