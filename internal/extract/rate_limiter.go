package extract

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces page fetches so one crawl never exceeds the configured
// requests per second against an OEM site.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

func (r *RateLimiter) WaitTurn(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
