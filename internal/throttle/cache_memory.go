package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/scoutline/relay/internal/domain"
)

// InProcessResponseCache is a single-process ResponseCache, used for local
// development and tests in place of Redis.
type InProcessResponseCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	resp      domain.CachedResponse
	expiresAt time.Time
}

// NewInProcessResponseCache returns an empty InProcessResponseCache.
func NewInProcessResponseCache() *InProcessResponseCache {
	return &InProcessResponseCache{entries: map[string]memEntry{}}
}

func (c *InProcessResponseCache) Get(_ context.Context, url string) (*domain.CachedResponse, bool, error) {
	key := cacheKey(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}

	resp := e.resp
	return &resp, true, nil
}

func (c *InProcessResponseCache) Set(_ context.Context, url string, resp domain.CachedResponse, ttl time.Duration) error {
	if len(resp.Text) > domain.MaxCachedResponseBytes {
		resp.Text = resp.Text[:domain.MaxCachedResponseBytes]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(url)] = memEntry{resp: resp, expiresAt: time.Now().Add(ttl)}
	return nil
}
