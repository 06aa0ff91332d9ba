package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/llm"
)

type stubLLM struct {
	steps []*llm.AgentStep
	calls int
}

func (s *stubLLM) RunAgentStep(ctx context.Context, turns []llm.AgentTurn) (*llm.AgentStep, error) {
	step := s.steps[s.calls]
	s.calls++
	return step, nil
}

type stubSearcher struct {
	results []domain.SearchResult
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return s.results, s.err
}

type stubFetcher struct {
	text  string
	calls int
}

func (s *stubFetcher) FetchAndExtract(ctx context.Context, url, query string) (*string, error) {
	s.calls++
	text := s.text
	return &text, nil
}

func toolCallJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRun_NoToolCallsReturnsFinalText(t *testing.T) {
	stub := &stubLLM{steps: []*llm.AgentStep{
		{Text: "final answer"},
	}}

	var emitted []events.Event
	a := New(stub, &stubSearcher{}, &stubFetcher{})
	text, _, err := a.Run(context.Background(), "hello", nil, func(e events.Event) { emitted = append(emitted, e) })

	require.NoError(t, err)
	assert.Equal(t, "final answer", text)
	require.Len(t, emitted, 1)
	assert.Equal(t, events.TextEvent{Text: "final answer"}, emitted[0])
}

func TestRun_ResearchToolDrivesSearchAndFetch(t *testing.T) {
	stub := &stubLLM{steps: []*llm.AgentStep{
		{
			ToolCalls: []llm.ToolCall{
				{ID: "call-1", Name: llm.ToolNameResearch, Input: toolCallJSON(t, researchInput{Topic: "go routines"})},
			},
		},
		{Text: "done"},
	}}

	searcher := &stubSearcher{results: []domain.SearchResult{
		{Title: "A", URL: "https://a.example", Description: "about a"},
	}}
	fetcher := &stubFetcher{text: "extracted body"}

	var emitted []events.Event
	a := New(stub, searcher, fetcher)
	text, _, err := a.Run(context.Background(), "how do goroutines work", nil, func(e events.Event) { emitted = append(emitted, e) })

	require.NoError(t, err)
	assert.Equal(t, "done", text)

	var kinds []string
	for _, e := range emitted {
		kinds = append(kinds, e.EventType())
	}
	assert.Contains(t, kinds, "detail")
	assert.Contains(t, kinds, "text")
}

func TestRun_SearchFailureReturnsDiagnosticNotError(t *testing.T) {
	stub := &stubLLM{steps: []*llm.AgentStep{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: llm.ToolNameResearch, Input: toolCallJSON(t, researchInput{Topic: "x"})},
		}},
		{Text: "ok"},
	}}
	searcher := &stubSearcher{err: errors.New("boom")}

	a := New(stub, searcher, &stubFetcher{})
	text, _, err := a.Run(context.Background(), "q", nil, func(events.Event) {})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestRun_AskUserEmitsClarificationAndStops(t *testing.T) {
	stub := &stubLLM{steps: []*llm.AgentStep{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: llm.ToolNameAskUser, Input: toolCallJSON(t, map[string]any{
				"questions": []string{"Which account?"},
			})},
		}},
	}}

	var emitted []events.Event
	a := New(stub, &stubSearcher{}, &stubFetcher{})
	_, _, err := a.Run(context.Background(), "q", nil, func(e events.Event) { emitted = append(emitted, e) })

	require.ErrorIs(t, err, apierrors.ClarificationNeeded)
	require.Len(t, emitted, 1)
	clarification, ok := emitted[0].(events.ClarificationEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"Which account?"}, clarification.Questions)
}

func TestRun_DoesNotRefetchAlreadySeenURL(t *testing.T) {
	stub := &stubLLM{steps: []*llm.AgentStep{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: llm.ToolNameResearch, Input: toolCallJSON(t, researchInput{Topic: "t1"})},
		}},
		{ToolCalls: []llm.ToolCall{
			{ID: "call-2", Name: llm.ToolNameResearch, Input: toolCallJSON(t, researchInput{Topic: "t2"})},
		}},
		{Text: "final"},
	}}

	searcher := &stubSearcher{results: []domain.SearchResult{
		{Title: "A", URL: "https://a.example", Description: "a"},
	}}
	fetcher := &stubFetcher{text: "body"}

	a := New(stub, searcher, fetcher)
	text, _, err := a.Run(context.Background(), "q", nil, func(events.Event) {})

	require.NoError(t, err)
	assert.Equal(t, "final", text)
	assert.Equal(t, 1, fetcher.calls)
}
