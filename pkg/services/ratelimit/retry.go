package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const (
	jitterMinSeconds = 20
	jitterMaxSeconds = 60
)

// RetryConfig bounds the backoff loop. MaxRetries counts attempts in total,
// so MaxRetries=2 means one retry after the initial attempt.
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Retrier re-runs an operation after rate-limit rejections with capped
// exponential backoff. Any other failure propagates immediately.
type Retrier struct {
	cfg RetryConfig

	sleep   func(time.Duration)
	randInt func(min, max int) int
}

func NewRetrier(cfg RetryConfig) *Retrier {
	return &Retrier{
		cfg:   cfg,
		sleep: time.Sleep,
		randInt: func(min, max int) int {
			return min + rand.Intn(max-min+1)
		},
	}
}

// Backoff computes the wait before the retry following the given
// zero-based attempt: base·2^attempt plus 20-60s of jitter, capped.
func (r *Retrier) Backoff(attempt int) time.Duration {
	wait := r.cfg.BaseBackoff * (1 << attempt)
	wait += time.Duration(r.randInt(jitterMinSeconds, jitterMaxSeconds)) * time.Second
	if wait > r.cfg.MaxBackoff {
		wait = r.cfg.MaxBackoff
	}
	return wait
}

// Do runs op up to MaxRetries times. Before each retry it sleeps the backoff
// and calls reset, which is expected to discard and recreate the upstream
// session so the retry goes out under a fresh identity. The error from the
// final attempt is returned as-is.
func (r *Retrier) Do(ctx context.Context, op func() error, retryable func(error) bool, reset func() error) error {
	logger := zerolog.Ctx(ctx)

	var err error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == r.cfg.MaxRetries-1 {
			return err
		}

		wait := r.Backoff(attempt)
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", r.cfg.MaxRetries).
			Dur("backoff", wait).
			Msg("rate limited, backing off before retry")
		r.sleep(wait)

		if reset != nil {
			if resetErr := reset(); resetErr != nil {
				return resetErr
			}
		}
	}
	return err
}
