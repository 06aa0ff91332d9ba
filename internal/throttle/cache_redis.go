package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scoutline/relay/internal/domain"
)

// RedisResponseCache stores fetched response bodies in Redis so concurrent
// relay processes share one fetch cache.
type RedisResponseCache struct {
	client *redis.Client
	prefix string
}

// NewRedisResponseCache returns a RedisResponseCache keyed under prefix
// (e.g. "relay:respcache:").
func NewRedisResponseCache(client *redis.Client, prefix string) *RedisResponseCache {
	if prefix == "" {
		prefix = "relay:respcache:"
	}
	return &RedisResponseCache{client: client, prefix: prefix}
}

func (c *RedisResponseCache) Get(ctx context.Context, url string) (*domain.CachedResponse, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+cacheKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("throttle: redis get: %w", err)
	}

	var resp domain.CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("throttle: unmarshal cached response: %w", err)
	}
	return &resp, true, nil
}

func (c *RedisResponseCache) Set(ctx context.Context, url string, resp domain.CachedResponse, ttl time.Duration) error {
	if len(resp.Text) > domain.MaxCachedResponseBytes {
		resp.Text = resp.Text[:domain.MaxCachedResponseBytes]
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("throttle: marshal cached response: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+cacheKey(url), raw, ttl).Err(); err != nil {
		return fmt.Errorf("throttle: redis set: %w", err)
	}
	return nil
}
