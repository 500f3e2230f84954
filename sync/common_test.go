package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	errBoom := errors.New("boom")
	rh := &RetryHandler{RetryAfterErrorPeriod: time.Millisecond, MaxRetryAttemptsAfterError: 3}

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), rh, "test", func() error {
			calls++
			if calls < 3 {
				return errBoom
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), rh, "test", func() error {
			calls++
			return errBoom
		})
		require.ErrorIs(t, err, ErrTooManyAttempts)
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, 3, calls)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		forever := &RetryHandler{RetryAfterErrorPeriod: time.Hour}
		err := Retry(ctx, forever, "test", func() error { return errBoom })
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, errBoom)
	})
}
