package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRateLimited = errors.New("status 429: too many requests")

func newTestRetrier(cfg RetryConfig, jitterSeconds int) (*Retrier, *[]time.Duration) {
	var slept []time.Duration
	r := NewRetrier(cfg)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	r.randInt = func(min, max int) int { return jitterSeconds }
	return r, &slept
}

func TestRetrier_Backoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseBackoff: 60 * time.Second, MaxBackoff: 180 * time.Second}

	t.Run("doubles per attempt with jitter added", func(t *testing.T) {
		r, _ := newTestRetrier(cfg, 20)
		assert.Equal(t, 80*time.Second, r.Backoff(0))
		assert.Equal(t, 140*time.Second, r.Backoff(1))
	})

	t.Run("caps at max backoff", func(t *testing.T) {
		r, _ := newTestRetrier(cfg, 60)
		assert.Equal(t, 180*time.Second, r.Backoff(1))
		assert.Equal(t, 180*time.Second, r.Backoff(5))
	})

	t.Run("total added delay is bounded by cap times retries", func(t *testing.T) {
		// With two attempts there is a single backoff, never above the cap.
		r, slept := newTestRetrier(RetryConfig{MaxRetries: 2, BaseBackoff: 60 * time.Second, MaxBackoff: 180 * time.Second}, 60)

		err := r.Do(context.Background(), func() error { return errRateLimited },
			func(error) bool { return true }, nil)
		require.Error(t, err)

		var total time.Duration
		for _, d := range *slept {
			total += d
		}
		assert.LessOrEqual(t, total, 180*time.Second)
		assert.Len(t, *slept, 1)
	})
}

func TestRetrier_Do(t *testing.T) {
	ctx := context.Background()
	cfg := RetryConfig{MaxRetries: 3, BaseBackoff: time.Second, MaxBackoff: 3 * time.Second}

	t.Run("success passes through without sleeping", func(t *testing.T) {
		r, slept := newTestRetrier(cfg, 20)
		calls := 0

		err := r.Do(ctx, func() error { calls++; return nil },
			func(error) bool { return true }, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, *slept)
	})

	t.Run("retries rate limited operations until success", func(t *testing.T) {
		r, slept := newTestRetrier(cfg, 20)
		calls := 0

		err := r.Do(ctx, func() error {
			calls++
			if calls < 3 {
				return errRateLimited
			}
			return nil
		}, func(error) bool { return true }, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Len(t, *slept, 2)
	})

	t.Run("non retryable error propagates immediately", func(t *testing.T) {
		r, slept := newTestRetrier(cfg, 20)
		calls := 0
		authErr := errors.New("status 401: unauthorized")

		err := r.Do(ctx, func() error { calls++; return authErr },
			func(err error) bool { return false }, nil)

		require.ErrorIs(t, err, authErr)
		assert.Equal(t, 1, calls)
		assert.Empty(t, *slept)
	})

	t.Run("final attempt error is returned as is", func(t *testing.T) {
		r, _ := newTestRetrier(cfg, 20)
		calls := 0

		err := r.Do(ctx, func() error { calls++; return errRateLimited },
			func(error) bool { return true }, nil)

		require.ErrorIs(t, err, errRateLimited)
		assert.Equal(t, cfg.MaxRetries, calls)
	})

	t.Run("reset runs before every retry", func(t *testing.T) {
		r, _ := newTestRetrier(cfg, 20)
		resets := 0

		err := r.Do(ctx, func() error { return errRateLimited },
			func(error) bool { return true },
			func() error { resets++; return nil })

		require.Error(t, err)
		assert.Equal(t, cfg.MaxRetries-1, resets)
	})

	t.Run("reset failure aborts the loop", func(t *testing.T) {
		r, _ := newTestRetrier(cfg, 20)
		resetErr := errors.New("cannot rebuild session")
		calls := 0

		err := r.Do(ctx, func() error { calls++; return errRateLimited },
			func(error) bool { return true },
			func() error { return resetErr })

		require.ErrorIs(t, err, resetErr)
		assert.Equal(t, 1, calls)
	})
}
