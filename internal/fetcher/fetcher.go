// Package fetcher implements the research agent's web-access substrate:
// robots-policy gated, rate-limited, cached HTTP fetches dispatched by
// content type to the right extraction path (HTML/text via goquery,
// PDF via github.com/ledongthuc/pdf, images via the extractor LLM).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/throttle"
)

// fetchTimeout bounds the outbound content fetch.
const fetchTimeout = 30 * time.Second

// maxExtractChars truncates extracted text before handing it to the
// extractor LLM.
const maxExtractChars = 200_000

// Extractor summarizes extracted content relevant to a query; satisfied by
// *internal/llm.Client in production and a stub in tests.
type Extractor interface {
	SummarizeText(ctx context.Context, query, text string) (string, domain.UsageSnapshot, error)
	DescribeImage(ctx context.Context, query string, data []byte, mediaType string) (string, domain.UsageSnapshot, error)
}

// RobotsChecker is the robots-policy dependency Fetcher needs, satisfied
// by *internal/robots.Service and named narrowly so tests can substitute
// a stub rather than a concrete checker.
type RobotsChecker interface {
	CheckURL(ctx context.Context, rawURL string) (allowed bool, crawlDelay time.Duration, err error)
}

// Fetcher implements FetchAndExtract.
type Fetcher struct {
	robots    RobotsChecker
	limiter   throttle.RateLimiter
	cache     throttle.ResponseCache
	extractor Extractor
	client    *http.Client
	userAgent string
}

// New constructs a Fetcher. client is the shared outbound *http.Client
// (internal/httpclient); a 30s-timeout default is used if nil.
func New(robotsSvc RobotsChecker, limiter throttle.RateLimiter, cache throttle.ResponseCache, extractor Extractor, client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		robots:    robotsSvc,
		limiter:   limiter,
		cache:     cache,
		extractor: extractor,
		client:    client,
		userAgent: userAgent,
	}
}

// FetchAndExtract checks robots policy, applies the domain's rate limit,
// serves from cache when possible, and otherwise fetches and extracts by
// content type. A nil result with a nil error means "skip silently"
// (robots disallow); a non-nil string is either extracted content or a
// short diagnostic message meant to be shown to the agent, never an error.
func (f *Fetcher) FetchAndExtract(ctx context.Context, rawURL, query string) (*string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetcher: parse url: %w", err)
	}
	domainName := strings.ToLower(u.Hostname())

	allowed, crawlDelay, err := f.robots.CheckURL(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetcher: check robots: %w", err)
	}
	if !allowed {
		return nil, nil
	}

	if cached, hit, err := f.cache.Get(ctx, rawURL); err == nil && hit {
		return f.extract(ctx, query, cached.ContentType, []byte(cached.Text))
	}

	if err := f.limiter.Wait(ctx, domainName, crawlDelay); err != nil {
		return nil, fmt.Errorf("fetcher: rate limit wait: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		msg := fmt.Sprintf("Could not fetch %s: %s", rawURL, err.Error())
		return &msg, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		msg := fmt.Sprintf("Could not fetch %s: HTTP %d", rawURL, resp.StatusCode)
		return &msg, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		msg := fmt.Sprintf("Could not fetch %s: %s", rawURL, err.Error())
		return &msg, nil
	}

	contentType := firstToken(resp.Header.Get("Content-Type"))
	f.maybeCacheResponse(ctx, rawURL, resp, contentType, bodyBytes)

	return f.extract(ctx, query, contentType, bodyBytes)
}

func firstToken(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i != -1 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func (f *Fetcher) maybeCacheResponse(ctx context.Context, rawURL string, resp *http.Response, contentType string, body []byte) {
	if !strings.HasPrefix(contentType, "text/") && contentType != "text/html" && contentType != "application/xhtml+xml" {
		return
	}

	ttl := throttle.TTLFromHeaders(resp.Header)
	if ttl <= 0 {
		return
	}

	_ = f.cache.Set(ctx, rawURL, domain.CachedResponse{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Text:        string(body),
	}, ttl)
}

func (f *Fetcher) extract(ctx context.Context, query, contentType string, body []byte) (*string, error) {
	switch {
	case contentType == "application/pdf":
		text, err := ExtractPDFText(body)
		if err != nil {
			msg := fmt.Sprintf("Could not parse PDF: %s", err.Error())
			return &msg, nil
		}
		return f.summarize(ctx, query, truncate(text, maxExtractChars))

	case strings.HasPrefix(contentType, "image/"):
		summary, _, err := f.extractor.DescribeImage(ctx, query, body, contentType)
		if err != nil {
			return nil, fmt.Errorf("fetcher: describe image: %w", err)
		}
		return &summary, nil

	case contentType == "text/html" || contentType == "application/xhtml+xml" || strings.HasPrefix(contentType, "text/"):
		text := string(body)
		if contentType == "text/html" || contentType == "application/xhtml+xml" {
			htmlText, err := ExtractHTMLText(body)
			if err == nil {
				text = htmlText
			}
		}
		return f.summarize(ctx, query, truncate(text, maxExtractChars))

	default:
		msg := fmt.Sprintf("Unsupported content type: %s", contentType)
		return &msg, nil
	}
}

func (f *Fetcher) summarize(ctx context.Context, query, text string) (*string, error) {
	summary, _, err := f.extractor.SummarizeText(ctx, query, text)
	if err != nil {
		return nil, fmt.Errorf("fetcher: summarize: %w", err)
	}
	return &summary, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
