package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/logger"
)

const sampleRobotsTxt = `
# ai-input: no
User-agent: *
Disallow: /private
Allow: /private/public-page
Crawl-delay: 2

User-agent: ScoutlineBot
Disallow: /
Allow: /blog
Crawl-delay: 5
`

func TestParse(t *testing.T) {
	parsed := Parse(sampleRobotsTxt)

	require.Equal(t, domain.AIHintNo, parsed.AIInput)
	require.Len(t, parsed.Groups, 2)

	star := parsed.Groups[0]
	assert.Equal(t, []string{"*"}, star.UserAgents)
	assert.Equal(t, 2.0, star.CrawlDelay)

	bot := parsed.Groups[1]
	assert.Equal(t, []string{"scoutlinebot"}, bot.UserAgents)
	assert.Equal(t, 5.0, bot.CrawlDelay)
}

func TestIsAllowed_WatchedAgentRespectsMostSpecificGroup(t *testing.T) {
	// The groups of sampleRobotsTxt without its ai-input hint, which would
	// otherwise disallow every path.
	parsed := Parse(`
User-agent: *
Disallow: /private
Allow: /private/public-page
Crawl-delay: 2

User-agent: ScoutlineBot
Disallow: /
Allow: /blog
Crawl-delay: 5
`)

	// ScoutlineBot's own group disallows "/" but allows "/blog".
	assert.True(t, IsAllowed(parsed, "/blog/post-1", []string{"ScoutlineBot"}))
	assert.False(t, IsAllowed(parsed, "/other", []string{"ScoutlineBot"}))
}

func TestIsAllowed_AIInputNoOverridesEverything(t *testing.T) {
	parsed := Parse(sampleRobotsTxt)
	// The top-level ai-input:no hint disallows regardless of any group rule.
	assert.False(t, IsAllowed(parsed, "/blog/post-1", []string{"ScoutlineBot"}))
}

func TestIsAllowed_DisallowWinsTieBreak(t *testing.T) {
	raw := "User-agent: *\nDisallow: /foo\nAllow: /foo\n"
	parsed := Parse(raw)
	assert.False(t, IsAllowed(parsed, "/foo", []string{"ScoutlineBot"}))
}

func TestCrawlDelayFor_DefaultsWhenUnset(t *testing.T) {
	parsed := Parse("User-agent: *\nDisallow: /x\n")
	assert.Equal(t, DefaultCrawlDelaySeconds, CrawlDelayFor(parsed, []string{"ScoutlineBot"}))
}

func TestCrawlDelayFor_MaxAcrossWatchedAgents(t *testing.T) {
	parsed := Parse(sampleRobotsTxt)
	assert.Equal(t, 5.0, CrawlDelayFor(parsed, []string{"*", "ScoutlineBot"}))
}

// memStore is an in-process Store used only by tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*domain.RobotsCacheEntry
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*domain.RobotsCacheEntry{}}
}

func (s *memStore) Get(_ context.Context, host string) (*domain.RobotsCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[host], nil
}

func (s *memStore) Upsert(_ context.Context, entry *domain.RobotsCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Domain] = entry
	return nil
}

func TestService_CheckURL_FetchesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
	}))
	defer srv.Close()

	store := newMemStore()
	svc := NewService(store, Config{
		WatchedAgents: []string{"ScoutlineBot"},
		UserAgent:     "ScoutlineBot/1.0",
	}, logger.Nop())
	svc.cfg.HTTPClient = srv.Client()
	svc.robotsURL = func(string) string { return srv.URL + "/robots.txt" }

	host := srv.Listener.Addr().String()
	parsed, delay, err := svc.rulesFor(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, DefaultCrawlDelaySeconds, delay)
	assert.False(t, IsAllowed(parsed, "/secret", []string{"ScoutlineBot"}))
	assert.True(t, IsAllowed(parsed, "/public", []string{"ScoutlineBot"}))

	entry, err := store.Get(context.Background(), host)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Valid(time.Now()))
}

func TestService_CheckURL_EmptyHostDisallowed(t *testing.T) {
	svc := NewService(newMemStore(), Config{UserAgent: "ScoutlineBot/1.0"}, logger.Nop())
	allowed, _, err := svc.CheckURL(context.Background(), "not-a-url")
	require.NoError(t, err)
	assert.False(t, allowed)
}
