// Package clients provides the HTTP client and local rate limiting used to
// talk to the remote collection API.
package clients

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound requests locally. It runs below the
// remote's leaky bucket: the remote's 429 responses are handled by the
// retry policy, this limiter just keeps us from provoking them.
type RateLimiter interface {
	// Allow checks if a request is allowed right now
	Allow() bool

	// Wait blocks until a request is allowed
	Wait(ctx context.Context) error

	// SetRate updates the request rate (requests per second)
	SetRate(r float64)

	// SetBurst updates the burst size
	SetBurst(burst int)
}

// NewRateLimiter creates a token-bucket rate limiter with the specified
// rate (requests per second) and burst size.
func NewRateLimiter(r float64, burst int) RateLimiter {
	return &tokenBucketLimiter{limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

// tokenBucketLimiter wraps golang.org/x/time/rate
type tokenBucketLimiter struct {
	limiter *rate.Limiter
}

func (tb *tokenBucketLimiter) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *tokenBucketLimiter) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

func (tb *tokenBucketLimiter) SetRate(r float64) {
	tb.limiter.SetLimit(rate.Limit(r))
}

func (tb *tokenBucketLimiter) SetBurst(burst int) {
	tb.limiter.SetBurst(burst)
}
