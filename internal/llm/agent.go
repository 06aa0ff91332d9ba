package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/scoutline/relay/internal/domain"
)

// Tool names the research agent's tool-use loop recognizes
const (
	ToolNameResearch = "research"
	ToolNameAskUser  = "ask_user"
)

// AgentRole is the author of one AgentTurn.
type AgentRole string

const (
	AgentRoleUser      AgentRole = "user"
	AgentRoleAssistant AgentRole = "assistant"
)

// ToolCall is a model-requested tool invocation, stripped of SDK types so
// internal/agent never imports the Anthropic SDK directly.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is the outcome of one ToolCall, fed back to the model as
// part of the next user turn.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// AgentTurn is one exchange in the agent's conversation history.
type AgentTurn struct {
	Role        AgentRole
	Text        string
	ToolCalls   []ToolCall   // populated on an assistant turn that invoked tools
	ToolResults []ToolResult // populated on a user turn answering prior tool calls
}

// AgentStep is the model's response to one RunAgentStep call.
type AgentStep struct {
	Text      string
	ToolCalls []ToolCall
	Usage     domain.UsageSnapshot
}

// researchTool and askUserTool describe the two tools' names and
// parameters
func researchTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        ToolNameResearch,
			Description: anthropic.String("Investigate one aspect of the user's question by searching the web and reading the most relevant pages."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "The specific aspect to investigate.",
					},
					"context": map[string]any{
						"type":        "string",
						"description": "Optional extra context to refine the search query.",
					},
				},
				Required: []string{"topic"},
			},
		},
	}
}

func askUserTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        ToolNameAskUser,
			Description: anthropic.String("Ask the user for information only they know, such as private preferences or account details, before continuing."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"questions": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "The question(s) to ask the user.",
					},
				},
				Required: []string{"questions"},
			},
		},
	}
}

// AgentSystemPrompt is the fixed system prompt driving the tool-use loop,
//
const AgentSystemPrompt = `You are a research assistant. To answer the user's question:

(a) Call the research tool one or more times, once per distinct aspect of
    the question that needs investigation.
(b) Call ask_user if you need information only the user has, such as a
    private preference or account detail, before you can continue.
(c) Once you have enough information, write a clear, well-cited markdown
    answer. Cite sources inline as [n] referencing the URLs you read.

Do not call research for aspects you already have enough information on.
Do not fabricate sources.`

// RunAgentStep sends turns plus the fixed tool set to the model and
// returns its response as a ToolCall list and/or final text.
func (c *Client) RunAgentStep(ctx context.Context, turns []AgentTurn) (*AgentStep, error) {
	messages, err := toMessageParams(turns)
	if err != nil {
		return nil, fmt.Errorf("llm: build agent turns: %w", err)
	}

	msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.AgentModel),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: AgentSystemPrompt},
		},
		Tools:    []anthropic.ToolUnionParam{researchTool(), askUserTool()},
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: agent step: %w", err)
	}

	step := &AgentStep{Usage: usageSnapshot(msg.Usage)}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			step.Text += b.Text
		case anthropic.ToolUseBlock:
			step.ToolCalls = append(step.ToolCalls, ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: json.RawMessage(b.Input),
			})
		}
	}

	return step, nil
}

// toMessageParams converts the domain-shaped conversation history into the
// SDK's MessageParam list. An assistant turn replays its text (when
// non-empty) followed by one tool-use block per call; a user turn carries
// its text (when non-empty) followed by one tool-result block per result.
func toMessageParams(turns []AgentTurn) ([]anthropic.MessageParam, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))

	for _, turn := range turns {
		switch turn.Role {
		case AgentRoleUser:
			blocks := []anthropic.ContentBlockParamUnion{}
			if turn.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Text))
			}
			for _, res := range turn.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolCallID, res.Content, res.IsError))
			}
			messages = append(messages, anthropic.NewUserMessage(blocks...))

		case AgentRoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if turn.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Text))
			}
			for _, call := range turn.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, json.RawMessage(call.Input), call.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))

		default:
			return nil, fmt.Errorf("llm: unknown agent turn role %q", turn.Role)
		}
	}

	return messages, nil
}
