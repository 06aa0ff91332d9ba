package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/scoutline/relay/internal/domain"
)

const classifierSystemPrompt = `You classify a single user query into exactly one word: URL, SEARCH, or RESEARCH.

URL — the query is itself a link or domain the user wants to visit directly.
SEARCH — the query can be answered by a handful of web search results with no further reasoning.
RESEARCH — the query needs multi-step investigation across several sources before it can be answered.

Reply with exactly one of: URL, SEARCH, RESEARCH. No punctuation, no explanation.`

// Classify categorizes a query as one of URL, SEARCH, or RESEARCH via a
// single, low-token Anthropic Messages call.
func (c *Client) Classify(ctx context.Context, query string) (domain.Classification, domain.UsageSnapshot, error) {
	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.ClassifierModel),
		MaxTokens:   8,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: classifierSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	})
	if err != nil {
		return "", domain.UsageSnapshot{}, fmt.Errorf("llm: classify: %w", err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(textOf(msg)))
	usage := usageSnapshot(msg.Usage)

	switch {
	case strings.Contains(verdict, "URL"):
		return domain.ClassificationURL, usage, nil
	case strings.Contains(verdict, "RESEARCH"):
		return domain.ClassificationResearch, usage, nil
	case strings.Contains(verdict, "SEARCH"):
		return domain.ClassificationSearch, usage, nil
	default:
		// An unparseable verdict defaults to the safest, cheapest path.
		return domain.ClassificationSearch, usage, nil
	}
}
