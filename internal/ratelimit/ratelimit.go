// Package ratelimit builds the token buckets used for inbound requests and
// outbound upstream calls.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// New returns a token bucket refilling at rps with the given burst.
// It returns nil, meaning unlimited, when rps is not positive. A non-positive
// burst is raised to 1 so a positive rate always admits traffic.
func New(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until l admits one event or ctx is done. A nil limiter never blocks.
func Wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
