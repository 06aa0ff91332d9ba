// Package events defines the typed event vocabulary a research pipeline
// run emits: stage transitions, tool-side detail, streamed answer text,
// clarification requests, and terminal done/error signals. The SSE layer
// frames each one with `event: <lowercase variant>` and `data: <json>`.
package events

import "github.com/scoutline/relay/internal/domain"

// Event is any pipeline event. Implementations are value types so a
// pipeline run's event log can be stored as `[]Event` and replayed.
type Event interface {
	// EventType is the lowercase SSE `event:` field name for this variant.
	EventType() string
}

// Stage is the coarse pipeline phase.
type Stage string

const (
	StageResearching Stage = "researching"
	StageResponding  Stage = "responding"
)

// StageEvent announces a pipeline phase transition.
type StageEvent struct {
	Stage Stage `json:"stage"`
}

func (StageEvent) EventType() string { return "stage" }

// DetailKind categorizes a DetailEvent.
const (
	DetailResearch = "research"
	DetailSearch   = "search"
	DetailFetch    = "fetch"
	DetailResult   = "result"
	DetailUsage    = "usage"
)

// DetailEvent is a structured notification about tool sub-activity.
// Only the field relevant to Type is populated.
type DetailEvent struct {
	Type    string                `json:"type"`
	Topic   string                `json:"topic,omitempty"`
	Query   string                `json:"query,omitempty"`
	URL     string                `json:"url,omitempty"`
	Summary string                `json:"summary,omitempty"`
	Usage   *domain.UsageSnapshot `json:"usage,omitempty"`
}

func (DetailEvent) EventType() string { return "detail" }

// TextEvent is a streamed delta of the assistant's markdown answer.
type TextEvent struct {
	Text string `json:"text"`
}

func (TextEvent) EventType() string { return "text" }

// ClarificationEvent signals the agent needs input from the user;
// it terminates the current streaming turn.
type ClarificationEvent struct {
	Questions []string `json:"questions"`
}

func (ClarificationEvent) EventType() string { return "clarification" }

// DoneEvent marks successful completion of a streaming turn.
type DoneEvent struct{}

func (DoneEvent) EventType() string { return "done" }

// ErrorEvent reports an uncaught pipeline failure; the stream terminates
// and no assistant message is persisted.
type ErrorEvent struct {
	Error string `json:"error"`
}

func (ErrorEvent) EventType() string { return "error" }
