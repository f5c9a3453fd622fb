// Package retry runs an operation with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// Policy bounds retries of a failing operation.
type Policy struct {
	MaxRetries int // retries after the first attempt
	BaseDelay  time.Duration
	MaxDelay   time.Duration // zero means uncapped
}

// DefaultPolicy retries three times, waiting 1s, 2s, then 4s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// backOff is the exponential schedule of p without jitter: base*2^n capped
// at MaxDelay.
func (p Policy) backOff(clock backoff.Clock) *backoff.ExponentialBackOff {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		Stop:                backoff.Stop,
		Clock:               clock,
	}
	b.Reset()
	return b
}

// Delay is the wait after the given failed attempt: min(base*2^attempt, max).
func (p Policy) Delay(attempt int) time.Duration {
	b := p.backOff(backoff.SystemClock)
	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Do calls fn until it succeeds or the policy gives up, waiting on clock
// between attempts. It returns the last error; an error marked with
// backoff.Permanent stops the loop and is returned unwrapped. Context errors
// are never retried.
func Do(ctx context.Context, clock clockwork.Clock, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	op := func() error {
		err := fn(ctx, attempt)
		attempt++
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		slog.Warn("retrying after failure", "attempt", attempt, "delay", d, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(clock), uint64(max(p.MaxRetries, 0))), ctx)
	return backoff.RetryNotifyWithTimer(op, b, notify, &clockTimer{clock: clock})
}

// IsPermanent reports whether err, or anything it wraps, was marked with
// backoff.Permanent.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

// clockTimer runs backoff waits on a clockwork clock.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) { t.timer = t.clock.NewTimer(d) }

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time { return t.timer.Chan() }
