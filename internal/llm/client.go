// Package llm wraps the Anthropic Messages API client shared by the query
// classifier, the content extractor, and the research agent's tool-use
// loop.
package llm

import (
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/scoutline/relay/internal/domain"
)

// Config configures the shared Anthropic client.
type Config struct {
	APIKey           string `env:"LLM_API_KEY" yaml:"api_key"`
	ClassifierModel  string `env:"RELAY_CLASSIFIER_MODEL" yaml:"classifier_model"`
	ExtractorModel   string `env:"RELAY_EXTRACTOR_MODEL"  yaml:"extractor_model"`
	AgentModel       string `env:"RELAY_AGENT_MODEL"      yaml:"agent_model"`
	MaxExtractTokens int64  `env:"RELAY_EXTRACT_MAX_TOKENS" yaml:"max_extract_tokens"`
}

// SetDefaults fills unset fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.ClassifierModel == "" {
		c.ClassifierModel = string(anthropic.ModelClaudeHaiku4_5)
	}
	if c.ExtractorModel == "" {
		c.ExtractorModel = string(anthropic.ModelClaudeHaiku4_5)
	}
	if c.AgentModel == "" {
		c.AgentModel = string(anthropic.ModelClaudeSonnet4_5)
	}
	if c.MaxExtractTokens == 0 {
		c.MaxExtractTokens = 1024
	}
}

// Client holds the underlying SDK client plus relay's model selection.
type Client struct {
	sdk anthropic.Client
	cfg Config
}

// New constructs a Client. The SDK reads ANTHROPIC_API_KEY itself when
// cfg.APIKey is empty, but relay always passes it explicitly so
// configuration stays in one place (internal/config).
func New(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}

	sdk := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{sdk: sdk, cfg: cfg}, nil
}

// usageSnapshot converts an SDK usage block into the persisted shape.
func usageSnapshot(u anthropic.Usage) domain.UsageSnapshot {
	return domain.UsageSnapshot{
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
	}
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// textOf concatenates every text content block in msg, which is how the
// classifier and extractor read a non-tool-use reply.
func textOf(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}
