// Package pipeline orchestrates one research agent run: it drives the
// agent on its own goroutine, forwards its events to an SSE-facing
// channel with the "researching" → "responding" stage transition
// inserted at the right point, and persists the resulting assistant
// message once the run completes. A run belongs to exactly one
// requester, so there is no broker: each run gets a private channel
// drained by a single consumer.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/llm"
)

// eventQueueSize is the buffer size of both the agent's event channel and
// the output channel. The queue is bounded: once a buffer is full, the
// sender blocks until the SSE writer drains it (or, for the agent's emit,
// until ctx is done, in which case the event is dropped).
const eventQueueSize = 64

// Agent is the research agent dependency; satisfied by *internal/agent.Agent.
type Agent interface {
	Run(ctx context.Context, query string, history []llm.AgentTurn, emit func(events.Event)) (string, []domain.UsageSnapshot, error)
}

// ChatStore is the persistence dependency; satisfied by *internal/database.ChatStore.
type ChatStore interface {
	AppendMessage(ctx context.Context, chatID string, role domain.ChatRole, content, eventsJSON, usageJSON string) error
}

// Run starts the agent for one chat turn and returns a channel of events
// ready for SSE framing. The channel is closed once the run terminates,
// after any resulting assistant message has been persisted. Forwarding
// continues even if ctx is already cancelled, so the caller always
// observes a terminal event (DoneEvent/ErrorEvent) or a clean close.
func Run(ctx context.Context, ag Agent, store ChatStore, chatID, query, additionalContext string, history []llm.AgentTurn) <-chan events.Event {
	out := make(chan events.Event, eventQueueSize)

	go func() {
		defer close(out)

		researching := events.StageEvent{Stage: events.StageResearching}
		out <- researching

		effectiveQuery := query
		if additionalContext != "" {
			effectiveQuery = query + "\n\nAdditional context from user: " + additionalContext
		}

		agentEvents := make(chan events.Event, eventQueueSize)
		resultCh := make(chan agentResult, 1)

		go func() {
			defer close(agentEvents)
			text, usage, err := ag.Run(ctx, effectiveQuery, history, func(e events.Event) {
				select {
				case agentEvents <- e:
				case <-ctx.Done():
				}
			})
			resultCh <- agentResult{text: text, usage: usage, err: err}
		}()

		log := []events.Event{researching}
		var textBuilder strings.Builder
		respondingSent := false

		for e := range agentEvents {
			if textEvent, ok := e.(events.TextEvent); ok {
				if !respondingSent {
					responding := events.StageEvent{Stage: events.StageResponding}
					log = append(log, responding)
					out <- responding
					respondingSent = true
				}
				textBuilder.WriteString(textEvent.Text)
			}
			log = append(log, e)
			out <- e
		}

		result := <-resultCh

		switch {
		case errors.Is(result.err, apierrors.ClarificationNeeded):
			// agent already emitted ClarificationEvent; no assistant message.
			return

		case result.err != nil:
			errEvent := events.ErrorEvent{Error: result.err.Error()}
			log = append(log, errEvent)
			out <- errEvent
			return

		default:
			total := totalUsage(result.usage)
			usageEvent := events.DetailEvent{Type: events.DetailUsage, Usage: &total}
			log = append(log, usageEvent)
			out <- usageEvent

			if perr := persistAssistantMessage(ctx, store, chatID, textBuilder.String(), log, result.usage); perr != nil {
				errEvent := events.ErrorEvent{Error: perr.Error()}
				out <- errEvent
				return
			}
			out <- events.DoneEvent{}
		}
	}()

	return out
}

type agentResult struct {
	text  string
	usage []domain.UsageSnapshot
	err   error
}

type eventEnvelope struct {
	Event string      `json:"event"`
	Data  events.Event `json:"data"`
}

func persistAssistantMessage(ctx context.Context, store ChatStore, chatID, text string, log []events.Event, usage []domain.UsageSnapshot) error {
	envelopes := make([]eventEnvelope, 0, len(log))
	for _, e := range log {
		envelopes = append(envelopes, eventEnvelope{Event: e.EventType(), Data: e})
	}

	eventsJSON, err := json.Marshal(envelopes)
	if err != nil {
		return fmt.Errorf("pipeline: marshal event log: %w", err)
	}

	usageJSON, err := json.Marshal(totalUsage(usage))
	if err != nil {
		return fmt.Errorf("pipeline: marshal usage: %w", err)
	}

	if err := store.AppendMessage(ctx, chatID, domain.RoleAssistant, text, string(eventsJSON), string(usageJSON)); err != nil {
		return apierrors.Store("persist assistant message", err)
	}

	return nil
}

func totalUsage(usage []domain.UsageSnapshot) domain.UsageSnapshot {
	var total domain.UsageSnapshot
	for _, u := range usage {
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.CacheReadTokens += u.CacheReadTokens
		total.CacheCreationTokens += u.CacheCreationTokens
	}
	return total
}
