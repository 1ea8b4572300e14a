// Package ratelimit throttles outbound calls to remote services.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. A nil *Limiter never blocks.
type Limiter struct {
	bucket *rate.Limiter
}

// NewWithBurst allows perSecond events on average with bursts of burst.
// A non-positive rate disables limiting.
func NewWithBurst(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a token is free or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.bucket.Wait(ctx)
}

// Allow takes a token if one is free right now.
func (l *Limiter) Allow() bool {
	return l == nil || l.bucket.Allow()
}
