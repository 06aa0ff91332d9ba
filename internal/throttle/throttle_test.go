package throttle

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/domain"
)

func TestInProcessLimiter_EnforcesMinGap(t *testing.T) {
	l := NewInProcessLimiter()
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "example.com", 50*time.Millisecond))
	require.NoError(t, l.Wait(ctx, "example.com", 50*time.Millisecond))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestInProcessLimiter_IndependentPerDomain(t *testing.T) {
	l := NewInProcessLimiter()
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "a.com", time.Hour))
	// b.com has never been seen, so it must not inherit a.com's wait.
	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx, "b.com", time.Hour) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("b.com wait blocked on a.com's limiter")
	}
}

func TestTTLFromHeaders_NoStore(t *testing.T) {
	h := http.Header{"Cache-Control": []string{"no-store"}}
	assert.Equal(t, time.Duration(0), TTLFromHeaders(h))
}

func TestTTLFromHeaders_NoCache(t *testing.T) {
	h := http.Header{"Cache-Control": []string{"no-cache"}}
	assert.Equal(t, time.Duration(0), TTLFromHeaders(h))
}

func TestTTLFromHeaders_MaxAge(t *testing.T) {
	h := http.Header{"Cache-Control": []string{"max-age=120"}}
	assert.Equal(t, 120*time.Second, TTLFromHeaders(h))
}

func TestTTLFromHeaders_ZeroMaxAgeClampsToZero(t *testing.T) {
	h := http.Header{"Cache-Control": []string{"max-age=0"}}
	assert.Equal(t, time.Duration(0), TTLFromHeaders(h))
}

func TestTTLFromHeaders_ExpiresHeader(t *testing.T) {
	exp := time.Now().UTC().Add(5 * time.Minute)
	h := http.Header{"Expires": []string{exp.Format(time.RFC1123)}}
	assert.InDelta(t, 5*time.Minute, TTLFromHeaders(h), float64(2*time.Second))
}

func TestTTLFromHeaders_PastExpiresClampsToZero(t *testing.T) {
	exp := time.Now().UTC().Add(-time.Hour)
	h := http.Header{"Expires": []string{exp.Format(time.RFC1123)}}
	assert.Equal(t, time.Duration(0), TTLFromHeaders(h))
}

func TestTTLFromHeaders_NoHeadersFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, TTLFromHeaders(http.Header{}))
}

func TestInProcessResponseCache_SetGetExpire(t *testing.T) {
	c := NewInProcessResponseCache()
	ctx := context.Background()

	_, found, err := c.Get(ctx, "https://example.com/x")
	require.NoError(t, err)
	assert.False(t, found)

	resp := domain.CachedResponse{StatusCode: 200, ContentType: "text/plain", Text: "hello"}
	require.NoError(t, c.Set(ctx, "https://example.com/x", resp, 20*time.Millisecond))

	got, found, err := c.Get(ctx, "https://example.com/x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", got.Text)

	time.Sleep(30 * time.Millisecond)
	_, found, err = c.Get(ctx, "https://example.com/x")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKey_SixteenHexChars(t *testing.T) {
	key := cacheKey("https://example.com/a")
	assert.Len(t, key, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", key)
}

func TestCacheKey_DeterministicPerURL(t *testing.T) {
	assert.Equal(t, cacheKey("https://example.com/a"), cacheKey("https://example.com/a"))
	assert.NotEqual(t, cacheKey("https://example.com/a"), cacheKey("https://example.com/b"))
}

func TestInProcessResponseCache_TruncatesOversizedBody(t *testing.T) {
	c := NewInProcessResponseCache()
	ctx := context.Background()

	big := make([]byte, domain.MaxCachedResponseBytes+100)
	resp := domain.CachedResponse{StatusCode: 200, Text: string(big)}
	require.NoError(t, c.Set(ctx, "https://example.com/big", resp, time.Minute))

	got, found, err := c.Get(ctx, "https://example.com/big")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.Text, domain.MaxCachedResponseBytes)
}
