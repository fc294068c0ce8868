// Package ratelimit provides per-host token-bucket limiting for the
// upstream market-data providers. Each host gets its own bucket so a slow
// candle provider cannot starve the snapshot feed.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token-bucket limiter per host.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter pool with the given per-host rate and burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[host] = lim
	}
	return lim
}

// Wait blocks until the host's bucket grants a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	return l.forHost(host).Allow()
}
