// Package agent implements the research agent's LLM tool-use loop: the
// research and ask_user tools, wired to a search client and a web
// fetcher, emitting the typed event vocabulary the pipeline orchestrator
// streams over SSE.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/llm"
)

// LLM is the model dependency the loop drives; satisfied by *internal/llm.Client.
type LLM interface {
	RunAgentStep(ctx context.Context, turns []llm.AgentTurn) (*llm.AgentStep, error)
}

// Searcher looks up web results for a query; satisfied by *internal/searchclient.Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Fetcher fetches and extracts one URL; satisfied by *internal/fetcher.Fetcher.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, url, query string) (*string, error)
}

// maxURLsPerResearchCall bounds how many search results one research tool
// call reads.
const maxURLsPerResearchCall = 3

// Agent drives the research tool-use loop.
type Agent struct {
	llm    LLM
	search Searcher
	fetch  Fetcher
}

// New constructs an Agent.
func New(llmClient LLM, search Searcher, fetch Fetcher) *Agent {
	return &Agent{llm: llmClient, search: search, fetch: fetch}
}

// runState is the per-invocation state for one pipeline run: the set of
// already-fetched URLs and the event sink. It is an explicit struct
// threaded through every tool call rather than a package global, so
// concurrent runs never share state.
type runState struct {
	fetchedURLs map[string]bool
	emit        func(events.Event)
}

// Run drives the tool-use loop to completion: it returns the final
// markdown answer text and the usage snapshots accumulated across every
// model call. If the model calls ask_user, it returns
// apierrors.ClarificationNeeded after emitting a ClarificationEvent; the
// caller must not persist an assistant message in that case.
func (a *Agent) Run(ctx context.Context, query string, history []llm.AgentTurn, emit func(events.Event)) (string, []domain.UsageSnapshot, error) {
	state := &runState{fetchedURLs: map[string]bool{}, emit: emit}

	turns := append(append([]llm.AgentTurn{}, history...), llm.AgentTurn{
		Role: llm.AgentRoleUser,
		Text: query,
	})

	var usages []domain.UsageSnapshot

	for {
		step, err := a.llm.RunAgentStep(ctx, turns)
		if err != nil {
			return "", usages, apierrors.Pipeline("agent step", err)
		}
		usages = append(usages, step.Usage)

		if len(step.ToolCalls) == 0 {
			if step.Text != "" {
				emit(events.TextEvent{Text: step.Text})
			}
			return step.Text, usages, nil
		}

		turns = append(turns, llm.AgentTurn{
			Role:      llm.AgentRoleAssistant,
			Text:      step.Text,
			ToolCalls: step.ToolCalls,
		})

		results := make([]llm.ToolResult, 0, len(step.ToolCalls))
		for _, call := range step.ToolCalls {
			switch call.Name {
			case llm.ToolNameResearch:
				result := a.research(ctx, call, state)
				results = append(results, llm.ToolResult{ToolCallID: call.ID, Content: result})

			case llm.ToolNameAskUser:
				questions, perr := parseAskUserInput(call.Input)
				if perr != nil {
					results = append(results, llm.ToolResult{ToolCallID: call.ID, Content: perr.Error(), IsError: true})
					continue
				}
				emit(events.ClarificationEvent{Questions: questions})
				return "", usages, apierrors.ClarificationNeeded

			default:
				results = append(results, llm.ToolResult{
					ToolCallID: call.ID,
					Content:    fmt.Sprintf("unknown tool %q", call.Name),
					IsError:    true,
				})
			}
		}

		turns = append(turns, llm.AgentTurn{Role: llm.AgentRoleUser, ToolResults: results})
	}
}

type researchInput struct {
	Topic   string `json:"topic"`
	Context string `json:"context"`
}

// research searches for a topic, fetches and extracts a handful of
// unseen results, and returns accumulated source text for the model.
func (a *Agent) research(ctx context.Context, call llm.ToolCall, state *runState) string {
	var input researchInput
	if err := json.Unmarshal(call.Input, &input); err != nil {
		return fmt.Sprintf("invalid research input: %v", err)
	}

	state.emit(events.DetailEvent{Type: events.DetailResearch, Topic: input.Topic})

	searchQuery := strings.TrimSpace(input.Topic + " " + input.Context)
	state.emit(events.DetailEvent{Type: events.DetailSearch, Query: searchQuery})

	results, err := a.search.Search(ctx, searchQuery)
	if err != nil {
		return fmt.Sprintf("Search failed for: %s", input.Topic)
	}
	if len(results) == 0 {
		return fmt.Sprintf("No search results found for: %s", input.Topic)
	}

	var candidates []domain.SearchResult
	for _, r := range results {
		if state.fetchedURLs[r.URL] {
			continue
		}
		candidates = append(candidates, r)
		if len(candidates) == maxURLsPerResearchCall {
			break
		}
	}

	var extractions []string
	for _, r := range candidates {
		state.emit(events.DetailEvent{Type: events.DetailFetch, URL: r.URL})

		extracted, err := a.fetch.FetchAndExtract(ctx, r.URL, searchQuery)
		state.fetchedURLs[r.URL] = true
		if err != nil || extracted == nil {
			continue
		}
		extractions = append(extractions, fmt.Sprintf("Source: %s\n%s", r.URL, *extracted))
	}

	if len(extractions) == 0 {
		descriptions := make([]string, 0, len(candidates))
		for _, r := range candidates {
			descriptions = append(descriptions, fmt.Sprintf("%s — %s", r.Title, r.Description))
		}
		summary := strings.Join(descriptions, "\n")
		state.emit(events.DetailEvent{Type: events.DetailResult, Summary: summary})
		return summary
	}

	summary := fmt.Sprintf("Read %d source(s) for: %s", len(extractions), input.Topic)
	state.emit(events.DetailEvent{Type: events.DetailResult, Summary: summary})

	return strings.Join(extractions, "\n\n---\n\n")
}

func parseAskUserInput(raw json.RawMessage) ([]string, error) {
	var input struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("invalid ask_user input: %w", err)
	}
	return input.Questions, nil
}
