// Package classifier categorizes a user query as URL, SEARCH, or RESEARCH
// via a single prompted LLM call.
package classifier

import (
	"context"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
)

// LLM is the dependency classifier needs; satisfied by *internal/llm.Client.
type LLM interface {
	Classify(ctx context.Context, query string) (domain.Classification, domain.UsageSnapshot, error)
}

// Classifier exposes Classify.
type Classifier struct {
	llm LLM
}

// New returns a Classifier backed by llm.
func New(llm LLM) *Classifier {
	return &Classifier{llm: llm}
}

// Classify returns the query's classification. Any provider/network
// failure is wrapped as a ClassificationError for the HTTP layer to
// surface as 5xx.
func (c *Classifier) Classify(ctx context.Context, query string) (domain.Classification, domain.UsageSnapshot, error) {
	classification, usage, err := c.llm.Classify(ctx, query)
	if err != nil {
		return "", domain.UsageSnapshot{}, apierrors.Classification("classify query", err)
	}
	return classification, usage, nil
}
