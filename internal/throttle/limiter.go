// Package throttle enforces the minimum inter-request gap per domain and
// caches fetched responses for reuse within a research run, expressed as
// a single named "minimum gap" per domain rather than a steady-state
// requests-per-second budget.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum gap between requests to the same domain.
type RateLimiter interface {
	// Wait blocks until a request to domain may proceed, or ctx is done.
	Wait(ctx context.Context, domain string, minGap time.Duration) error
}

// InProcessLimiter keeps one token-bucket limiter per domain in memory,
// sized so at most one request per minGap is admitted, covering an
// arbitrary set of domains discovered at runtime rather than one fixed host.
type InProcessLimiter struct {
	mu       sync.Mutex
	limiters map[string]*domainLimiter
}

type domainLimiter struct {
	gap     time.Duration
	limiter *rate.Limiter
}

// NewInProcessLimiter returns an InProcessLimiter with no pre-seeded domains.
func NewInProcessLimiter() *InProcessLimiter {
	return &InProcessLimiter{limiters: map[string]*domainLimiter{}}
}

// Wait blocks the calling goroutine until a request to domain is allowed
// to fire, per that domain's minGap. Each domain gets its own bucket of
// burst 1 so only one request can be in flight in any minGap window.
func (l *InProcessLimiter) Wait(ctx context.Context, domain string, minGap time.Duration) error {
	dl := l.limiterFor(domain, minGap)
	return dl.limiter.Wait(ctx)
}

func (l *InProcessLimiter) limiterFor(domain string, minGap time.Duration) *domainLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl, ok := l.limiters[domain]
	if ok && dl.gap == minGap {
		return dl
	}

	if minGap <= 0 {
		minGap = time.Millisecond
	}

	dl = &domainLimiter{
		gap:     minGap,
		limiter: rate.NewLimiter(rate.Every(minGap), 1),
	}
	l.limiters[domain] = dl
	return dl
}
