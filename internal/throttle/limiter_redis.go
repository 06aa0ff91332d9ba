package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces the per-domain minimum gap across every relay
// process sharing redisClient, using SET NX PX as a distributed lock:
// a request is admitted only if it can claim the domain's key, which
// then expires exactly minGap later and admits the next one.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter returns a RedisLimiter keyed under prefix (e.g. "relay:ratelimit:").
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "relay:ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// pollInterval bounds how often a blocked caller retries claiming the key.
const pollInterval = 50 * time.Millisecond

// Wait blocks until this process claims domain's rate-limit key or ctx ends.
func (l *RedisLimiter) Wait(ctx context.Context, domain string, minGap time.Duration) error {
	if minGap <= 0 {
		minGap = time.Millisecond
	}
	key := l.prefix + domain

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, 1, minGap).Result()
		if err != nil {
			return fmt.Errorf("throttle: redis setnx: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
