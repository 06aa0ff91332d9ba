// Package domain holds the shared types that flow between relay's
// packages: classification results, robots policy data, cached HTTP
// responses, search results, and the chat persistence model.
package domain

import "time"

// Classification is the outcome of classifying a user query.
type Classification string

const (
	ClassificationURL      Classification = "URL"
	ClassificationSearch   Classification = "SEARCH"
	ClassificationResearch Classification = "RESEARCH"
)

// SearchResult is one hit returned by the external web-search provider.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// RobotsRule is a single Allow/Disallow line from a robots.txt group.
type RobotsRule struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}

// AIHint is a tri-state reading of an `# ai-input:` / `# ai-train:`
// comment directive in a robots.txt file.
type AIHint int

const (
	AIHintUnset AIHint = iota
	AIHintYes
	AIHintNo
)

// RobotsGroup is one `User-agent:` block and the rules that follow it.
type RobotsGroup struct {
	UserAgents []string     `json:"user_agents"`
	Rules      []RobotsRule `json:"rules"`
	CrawlDelay float64      `json:"crawl_delay,omitempty"`
}

// ParsedRobotsTxt is the parsed form of a domain's robots.txt.
type ParsedRobotsTxt struct {
	Groups  []RobotsGroup `json:"groups"`
	AIInput AIHint        `json:"ai_input"`
	AITrain AIHint        `json:"ai_train"`
}

// RobotsCacheEntry is the persisted, one-per-domain robots.txt cache row.
type RobotsCacheEntry struct {
	ID          int64           `db:"id"`
	Domain      string          `db:"domain"`
	RawContent  string          `db:"raw_content"`
	Parsed      ParsedRobotsTxt `db:"-"`
	RulesJSON   string          `db:"rules_json"`
	CrawlDelay  *float64        `db:"crawl_delay"`
	AIBlocked   bool            `db:"ai_blocked"`
	FetchedAt   time.Time       `db:"fetched_at"`
	NextCheckAt time.Time       `db:"next_check_at"`
}

// Valid reports whether the cache entry can still be used without a refetch.
func (e *RobotsCacheEntry) Valid(now time.Time) bool {
	return now.Before(e.NextCheckAt)
}

// CachedResponse is the ephemeral, URL-keyed HTTP response cache entry.
type CachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// MaxCachedResponseBytes is the truncation limit applied to cached bodies.
const MaxCachedResponseBytes = 500_000

// ChatRole identifies the author of a ChatMessage.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatSession is a single research conversation owned by one user.
type ChatSession struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	Title     string    `db:"title"      json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MaxTitleLength is the maximum length of ChatSession.Title.
const MaxTitleLength = 500

// ChatMessage is one turn in a ChatSession.
type ChatMessage struct {
	ID         string    `db:"id"          json:"id"`
	ChatID     string    `db:"chat_id"     json:"chat_id"`
	Role       ChatRole  `db:"role"        json:"role"`
	Content    string    `db:"content"     json:"content"`
	EventsJSON string    `db:"events_json" json:"events_json"`
	UsageJSON  string    `db:"usage_json"  json:"usage_json"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// UsageSnapshot is a point-in-time token accounting for one assistant turn.
type UsageSnapshot struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int64 `json:"cache_creation_tokens,omitempty"`
}
