package sync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTooManyAttempts is returned once an operation failed MaxRetryAttemptsAfterError times
var ErrTooManyAttempts = errors.New("too many failed attempts")

// RetryHandler paces the retries of a failing operation
type RetryHandler struct {
	RetryAfterErrorPeriod time.Duration
	// MaxRetryAttemptsAfterError below 1 means retry forever
	MaxRetryAttemptsAfterError int
}

// Handle is called after the attempts-th failure of funcName. It waits RetryAfterErrorPeriod
// and returns nil when the caller may try again.
func (h *RetryHandler) Handle(ctx context.Context, funcName string, attempts int) error {
	if h.MaxRetryAttemptsAfterError > 0 && attempts >= h.MaxRetryAttemptsAfterError {
		return fmt.Errorf("%w: %s failed %d times", ErrTooManyAttempts, funcName, attempts)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(h.RetryAfterErrorPeriod):
		return nil
	}
}

// Retry runs fn until it succeeds, the handler gives up or ctx is done. The returned
// error wraps the last error of fn.
func Retry(ctx context.Context, h *RetryHandler, funcName string, fn func() error) error {
	attempts := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		attempts++
		if herr := h.Handle(ctx, funcName, attempts); herr != nil {
			return fmt.Errorf("%w, last error: %w", herr, err)
		}
	}
}
