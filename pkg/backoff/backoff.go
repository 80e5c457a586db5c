// Package backoff implements the rate-limit policy for remote search calls.
//
// Two concerns live here: a politeness pause applied before outgoing calls
// so a well-behaved client does not hammer the API, and an exponential
// backoff applied after the API signals throttling. The backoff computation
// is a pure function of the attempt count so it can be tested without
// sleeping.
package backoff

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseDelay is the starting backoff delay.
	DefaultBaseDelay = 2 * time.Second

	// DefaultMaxDelay caps the worst-case backoff stall.
	DefaultMaxDelay = 5 * time.Minute

	// DefaultPauseEvery applies the politeness pause on every Nth call.
	// Pausing on every call over-throttles a client that is already well
	// under the remote limit.
	DefaultPauseEvery = 5
)

// Policy computes backoff delays. The zero value is not usable; use
// NewPolicy or fill in all fields.
type Policy struct {
	// BaseDelay is the delay for attempt zero.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
}

// NewPolicy returns a policy with defaults applied for zero values.
func NewPolicy(base, max time.Duration) Policy {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	if max < base {
		max = base
	}
	return Policy{BaseDelay: base, MaxDelay: max}
}

// DelayFor returns the backoff delay for the given attempt:
// min(BaseDelay * 2^attempt, MaxDelay). The result is never zero or
// negative and is non-decreasing in attempt.
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay || delay <= 0 {
			// Doubling past MaxDelay (or overflowing) always lands on the cap.
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Limiter applies a Policy with real (or injected) sleeps around remote calls.
//
// Limiter is not safe for concurrent use; the extraction loop is strictly
// sequential with one outstanding remote call at a time.
type Limiter struct {
	policy     Policy
	pauseEvery int
	calls      int
	limiter    *rate.Limiter

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter around the given policy.
//
// pauseEvery controls how often BeforeCall actually waits: a pause is taken
// on every Nth call. Values <= 0 use DefaultPauseEvery.
func NewLimiter(policy Policy, pauseEvery int) *Limiter {
	if pauseEvery <= 0 {
		pauseEvery = DefaultPauseEvery
	}
	return &Limiter{
		policy:     policy,
		pauseEvery: pauseEvery,
		limiter:    rate.NewLimiter(rate.Every(policy.BaseDelay), 1),
		sleep:      sleepCtx,
	}
}

// Policy returns the limiter's backoff policy.
func (l *Limiter) Policy() Policy { return l.policy }

// BeforeCall blocks for the politeness interval on every Nth call and
// returns immediately otherwise. Returns the context error if cancelled
// while waiting.
func (l *Limiter) BeforeCall(ctx context.Context) error {
	l.calls++
	if l.calls%l.pauseEvery != 0 {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// OnThrottled blocks for the backoff delay appropriate to the given attempt
// and returns nil, signalling the caller to retry the same call. Returns
// the context error if cancelled mid-sleep.
func (l *Limiter) OnThrottled(ctx context.Context, attempt int) error {
	return l.sleep(ctx, l.policy.DelayFor(attempt))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
