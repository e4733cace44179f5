package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter admits one outbound request per Wait call
type Limiter interface {
	Wait(ctx context.Context) error
}

// LocalLimiter is a per-process token bucket
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter creates a token bucket refilling at requestsPerSecond.
// A non-positive rate disables limiting.
func NewLocalLimiter(requestsPerSecond, burst int) *LocalLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or ctx is done.
//
// When the next token falls after ctx's deadline, Wait blocks until the
// deadline and returns ctx.Err(), so callers always observe
// context.DeadlineExceeded with ctx already done.
func (l *LocalLimiter) Wait(ctx context.Context) error {
	err := l.limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// Chain waits on each limiter in order
type Chain []Limiter

// Wait implements Limiter
func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Unlimited never blocks
type Unlimited struct{}

// Wait implements Limiter
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
