// Package httpapi implements the Gin handlers for relay's HTTP surface:
// search, chat retrieval and streaming, history, and health. An
// X-User-ID header stands in for the out-of-scope authentication layer.
package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/llm"
	"github.com/scoutline/relay/internal/logger"
	"github.com/scoutline/relay/internal/pipeline"
	"github.com/scoutline/relay/internal/sse"
)

// historyPageSize is the page size for GET /history
const historyPageSize = 20

// Classifier is the query-classification dependency; satisfied by
// *internal/classifier.Classifier.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Classification, domain.UsageSnapshot, error)
}

// ChatStore is the persistence dependency; satisfied by
// *internal/database.ChatStore.
type ChatStore interface {
	CreateSession(ctx context.Context, userID, title string) (string, error)
	AppendMessage(ctx context.Context, chatID string, role domain.ChatRole, content, eventsJSON, usageJSON string) error
	GetSession(ctx context.Context, chatID, userID string) (*domain.ChatSession, error)
	ListMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error)
	ListRecentSessions(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error)
	PendingResponse(ctx context.Context, chatID string) (bool, error)
}

// Agent drives one research pipeline run; satisfied by *internal/agent.Agent.
type Agent interface {
	Run(ctx context.Context, query string, history []llm.AgentTurn, emit func(events.Event)) (string, []domain.UsageSnapshot, error)
}

// Handler holds httpapi's collaborators.
type Handler struct {
	classifier Classifier
	store      ChatStore
	agent      Agent
	log        logger.Logger
}

// New constructs a Handler.
func New(classifier Classifier, store ChatStore, agent Agent, log logger.Logger) *Handler {
	return &Handler{classifier: classifier, store: store, agent: agent, log: log}
}

// userID reads the X-User-ID header standing in for relay's
// out-of-scope authentication layer.
func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// wantsJSON reports whether the caller asked for a JSON response
// instead of a redirect.
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// Search classifies q and redirects (or returns JSON describing where
// the caller would have been redirected).
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	classification, _, err := h.classifier.Classify(c.Request.Context(), query)
	if err != nil {
		h.log.Error("search: classify failed", logger.Error(err))
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": "classification failed"})
		return
	}

	switch classification {
	case domain.ClassificationURL:
		location := "https://" + stripScheme(query)
		h.respondRedirect(c, location, "")

	case domain.ClassificationResearch:
		uid := userID(c)
		chatID, err := h.store.CreateSession(c.Request.Context(), uid, query)
		if err != nil {
			h.log.Error("search: create session failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat session"})
			return
		}
		if err := h.store.AppendMessage(c.Request.Context(), chatID, domain.RoleUser, query, "", ""); err != nil {
			h.log.Error("search: append user message failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record query"})
			return
		}
		h.respondRedirect(c, "/chat/"+chatID, "research")

	default: // domain.ClassificationSearch, and any unrecognized fallback
		location := "https://www.google.com/search?q=" + url.QueryEscape(query)
		h.respondRedirect(c, location, "")
	}
}

func (h *Handler) respondRedirect(c *gin.Context, location, researchType string) {
	if wantsJSON(c) {
		body := gin.H{"url": location}
		if researchType != "" {
			body["type"] = researchType
		}
		c.JSON(http.StatusOK, body)
		return
	}
	c.Redirect(http.StatusFound, location)
}

func stripScheme(raw string) string {
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	return raw
}

// GetChat returns a chat session's state: the session, its messages, and
// whether it is pending a response.
func (h *Handler) GetChat(c *gin.Context) {
	chatID := c.Param("id")
	uid := userID(c)

	session, err := h.store.GetSession(c.Request.Context(), chatID, uid)
	if err != nil {
		h.log.Error("get chat: load session failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		h.log.Error("get chat: load messages failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	pending := len(messages) > 0 && messages[len(messages)-1].Role == domain.RoleUser

	c.JSON(http.StatusOK, gin.H{
		"session":  session,
		"messages": messages,
		"pending":  pending,
	})
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostMessage appends a user message to an existing chat.
func (h *Handler) PostMessage(c *gin.Context) {
	chatID := c.Param("id")
	uid := userID(c)

	session, err := h.store.GetSession(c.Request.Context(), chatID, uid)
	if err != nil {
		h.log.Error("post message: load session failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.AppendMessage(c.Request.Context(), chatID, domain.RoleUser, req.Content, "", ""); err != nil {
		h.log.Error("post message: append failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Stream runs the research pipeline for chatID's pending user message and
// streams its events over SSE. If the chat is not pending a response, it
// ends the stream immediately with no events.
func (h *Handler) Stream(c *gin.Context) {
	chatID := c.Param("id")
	uid := userID(c)
	additionalContext := c.Query("context")

	session, err := h.store.GetSession(c.Request.Context(), chatID, uid)
	if err != nil {
		h.log.Error("stream: load session failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		h.log.Error("stream: load messages failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != domain.RoleUser {
		// Nothing pending: close the stream with no events rather than
		// re-running an already-answered turn.
		sse.SetHeaders(c.Writer)
		return
	}

	query := messages[len(messages)-1].Content
	history := toAgentHistory(messages[:len(messages)-1])

	eventCh := pipeline.Run(c.Request.Context(), h.agent, h.store, chatID, query, additionalContext, history)
	sse.Stream(c, h.log, eventCh)
}

func toAgentHistory(messages []domain.ChatMessage) []llm.AgentTurn {
	turns := make([]llm.AgentTurn, 0, len(messages))
	for _, m := range messages {
		role := llm.AgentRoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.AgentRoleAssistant
		}
		turns = append(turns, llm.AgentTurn{Role: role, Text: m.Content})
	}
	return turns
}

// History returns a page of the authenticated user's chat sessions,
// newest-updated first.
func (h *Handler) History(c *gin.Context) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}

	sessions, err := h.store.ListRecentSessions(c.Request.Context(), userID(c), historyPageSize, (page-1)*historyPageSize)
	if err != nil {
		h.log.Error("history: list sessions failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "page": page})
}

// OpenSearch serves the static OpenSearch description document so
// browsers can register relay as a search engine.
func (h *Handler) OpenSearch(c *gin.Context) {
	c.Data(http.StatusOK, "application/opensearchdescription+xml", []byte(openSearchXML))
}

const openSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/">
  <ShortName>Relay</ShortName>
  <Description>Search or research anything.</Description>
  <Url type="text/html" template="/search?q={searchTerms}"/>
</OpenSearchDescription>`

// Healthz reports process liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
