package robots

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/logger"
)

// CacheTTL is how long a fetched robots.txt is trusted before refetching.
const CacheTTL = 24 * time.Hour

// robotsFetchTimeout bounds the outbound robots.txt request.
const robotsFetchTimeout = 10 * time.Second

// maxRobotsBodyBytes caps how much of a robots.txt response we read.
const maxRobotsBodyBytes = 512 * 1024

// Store persists one RobotsCacheEntry per domain. Implementations must
// upsert — domains are never duplicated.
type Store interface {
	Get(ctx context.Context, host string) (*domain.RobotsCacheEntry, error)
	Upsert(ctx context.Context, entry *domain.RobotsCacheEntry) error
}

// DefaultWatchedAgents is the ethical policy's base set: relay honors
// restrictions placed on the major AI crawlers even when only its own
// token is explicitly addressed by a site's robots.txt.
var DefaultWatchedAgents = []string{
	"gptbot",
	"chatgpt-user",
	"claudebot",
	"claude-web",
	"anthropic-ai",
	"google-extended",
}

// Config configures a Service.
type Config struct {
	// WatchedAgents is the set of user-agent tokens whose robots.txt
	// restrictions are honored, configured at init time rather than
	// hard-coded so the policy can be extended without touching the
	// parser. Empty defaults to DefaultWatchedAgents plus UserAgent.
	WatchedAgents []string
	UserAgent     string
	HTTPClient    *http.Client
}

// Service checks whether URLs are permitted, consulting a cached,
// periodically-refreshed robots.txt per domain.
type Service struct {
	store Store
	cfg   Config
	log   logger.Logger

	// robotsURL builds the request URL for a host's robots.txt. Tests
	// override this to point at an httptest server instead of https://.
	robotsURL func(host string) string
}

// NewService creates a robots policy Service backed by store.
func NewService(store Store, cfg Config, log logger.Logger) *Service {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: robotsFetchTimeout}
	}
	if len(cfg.WatchedAgents) == 0 {
		cfg.WatchedAgents = append([]string{strings.ToLower(cfg.UserAgent)}, DefaultWatchedAgents...)
	}
	return &Service{
		store: store,
		cfg:   cfg,
		log:   log,
		robotsURL: func(host string) string {
			return "https://" + host + "/robots.txt"
		},
	}
}

// CheckURL parses rawURL's hostname, consults the cache (refreshing on
// miss/staleness), and returns whether the URL is permitted plus the
// crawl-delay to apply for this domain. An empty hostname is disallowed.
func (s *Service) CheckURL(ctx context.Context, rawURL string) (allowed bool, crawlDelay time.Duration, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false, time.Duration(DefaultCrawlDelaySeconds * float64(time.Second)), nil
	}

	parsed, delay, err := s.rulesFor(ctx, host)
	if err != nil {
		return false, 0, err
	}

	return IsAllowed(parsed, u.Path, s.cfg.WatchedAgents), time.Duration(delay * float64(time.Second)), nil
}

// rulesFor returns the parsed robots.txt and crawl-delay for host,
// refreshing the cache entry when stale or absent.
func (s *Service) rulesFor(ctx context.Context, host string) (domain.ParsedRobotsTxt, float64, error) {
	entry, err := s.store.Get(ctx, host)
	if err != nil {
		return domain.ParsedRobotsTxt{}, 0, fmt.Errorf("robots: load cache entry: %w", err)
	}

	now := time.Now().UTC()
	if entry != nil && entry.Valid(now) {
		return entry.Parsed, CrawlDelayFor(entry.Parsed, s.cfg.WatchedAgents), nil
	}

	raw, fetchedOK := s.fetch(ctx, host)
	parsed := Parse(raw)
	if !fetchedOK {
		// treat network/HTTP errors as an empty robots.txt: allow all.
		parsed = domain.ParsedRobotsTxt{}
	}

	rulesJSON, marshalErr := json.Marshal(parsed)
	if marshalErr != nil {
		return domain.ParsedRobotsTxt{}, 0, fmt.Errorf("robots: marshal parsed rules: %w", marshalErr)
	}

	crawlDelay := CrawlDelayFor(parsed, s.cfg.WatchedAgents)

	newEntry := &domain.RobotsCacheEntry{
		Domain:      host,
		RawContent:  raw,
		Parsed:      parsed,
		RulesJSON:   string(rulesJSON),
		CrawlDelay:  &crawlDelay,
		AIBlocked:   parsed.AIInput == domain.AIHintNo,
		FetchedAt:   now,
		NextCheckAt: now.Add(CacheTTL),
	}

	if err := s.store.Upsert(ctx, newEntry); err != nil {
		s.log.Warn("robots: failed to persist cache entry", logger.String("domain", host), logger.Error(err))
	}

	return parsed, crawlDelay, nil
}

// fetch retrieves https://<host>/robots.txt. ok is false for any non-200
// response or network error, which the caller treats as "allow all".
func (s *Service) fetch(ctx context.Context, host string) (body string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.robotsURL(host), nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return "", false
	}

	return string(data), true
}
