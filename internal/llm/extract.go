package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/scoutline/relay/internal/domain"
)

const extractorSystemPrompt = `You are given the text extracted from a web page or document, and the
research question it was fetched to help answer. Write a concise, factual
summary of the content relevant to that question. Omit navigation
boilerplate, ads, and anything unrelated to the question. If the content
has nothing relevant, say so in one sentence.`

// SummarizeText condenses extracted page/PDF text down to what is relevant
// to query, so the research agent's context window only carries signal.
func (c *Client) SummarizeText(ctx context.Context, query, text string) (string, domain.UsageSnapshot, error) {
	prompt := fmt.Sprintf("Research question: %s\n\nExtracted content:\n%s", query, text)

	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.ExtractorModel),
		MaxTokens: c.cfg.MaxExtractTokens,
		System: []anthropic.TextBlockParam{
			{Text: extractorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", domain.UsageSnapshot{}, fmt.Errorf("llm: summarize text: %w", err)
	}

	return textOf(msg), usageSnapshot(msg.Usage), nil
}

// DescribeImage summarizes an image's content relevant to query. data is
// the raw image bytes and mediaType is its MIME type (e.g. "image/png").
func (c *Client) DescribeImage(ctx context.Context, query string, data []byte, mediaType string) (string, domain.UsageSnapshot, error) {
	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.ExtractorModel),
		MaxTokens: c.cfg.MaxExtractTokens,
		System: []anthropic.TextBlockParam{
			{Text: extractorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, encodeBase64(data)),
				anthropic.NewTextBlock("Research question: "+query),
			),
		},
	})
	if err != nil {
		return "", domain.UsageSnapshot{}, fmt.Errorf("llm: describe image: %w", err)
	}

	return textOf(msg), usageSnapshot(msg.Usage), nil
}
