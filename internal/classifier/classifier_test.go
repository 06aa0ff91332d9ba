package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
)

type stubLLM struct {
	classification domain.Classification
	usage          domain.UsageSnapshot
	err            error
}

func (s stubLLM) Classify(context.Context, string) (domain.Classification, domain.UsageSnapshot, error) {
	return s.classification, s.usage, s.err
}

func TestClassify_ReturnsUnderlyingResult(t *testing.T) {
	c := New(stubLLM{classification: domain.ClassificationResearch, usage: domain.UsageSnapshot{InputTokens: 5}})

	got, usage, err := c.Classify(context.Background(), "how does TCP congestion control work?")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationResearch, got)
	assert.Equal(t, int64(5), usage.InputTokens)
}

func TestClassify_WrapsProviderFailure(t *testing.T) {
	c := New(stubLLM{err: errors.New("provider down")})

	_, _, err := c.Classify(context.Background(), "query")
	require.Error(t, err)

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindClassification, apiErr.Kind)
}
