package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Limiter enforces minimum spacing between upstream calls. It is a single
// process-wide clock: Wait blocks relative to the previous Wait call from
// anywhere in the process, not per term or per region.
type Limiter struct {
	interval time.Duration
	lastCall time.Time

	now    func() time.Time
	sleep  func(time.Duration)
	jitter func() float64 // in [-1, 1], scaled to ±5% of the interval
}

func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
		jitter:   func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call, with ±5% jitter so schedules running in lockstep don't hit
// the upstream in a synchronized pattern.
func (l *Limiter) Wait(ctx context.Context) {
	elapsed := l.now().Sub(l.lastCall)
	if !l.lastCall.IsZero() && elapsed < l.interval {
		wait := l.interval - elapsed
		wait += time.Duration(l.jitter() * 0.05 * float64(l.interval))
		if wait > 0 {
			zerolog.Ctx(ctx).Debug().Dur("wait", wait).Msg("rate limiting upstream call")
			l.sleep(wait)
		}
	}
	l.lastCall = l.now()
}
