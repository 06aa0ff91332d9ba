package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/domain"
	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/llm"
	"github.com/scoutline/relay/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct {
	result domain.Classification
	err    error
}

func (s *stubClassifier) Classify(ctx context.Context, query string) (domain.Classification, domain.UsageSnapshot, error) {
	return s.result, domain.UsageSnapshot{}, s.err
}

type stubStore struct {
	sessions map[string]*domain.ChatSession
	messages map[string][]domain.ChatMessage
	created  []string
}

func newStubStore() *stubStore {
	return &stubStore{sessions: map[string]*domain.ChatSession{}, messages: map[string][]domain.ChatMessage{}}
}

func (s *stubStore) CreateSession(ctx context.Context, userID, title string) (string, error) {
	id := "chat-" + title
	s.sessions[id] = &domain.ChatSession{ID: id, UserID: userID, Title: title}
	s.created = append(s.created, id)
	return id, nil
}

func (s *stubStore) AppendMessage(ctx context.Context, chatID string, role domain.ChatRole, content, eventsJSON, usageJSON string) error {
	s.messages[chatID] = append(s.messages[chatID], domain.ChatMessage{ChatID: chatID, Role: role, Content: content})
	return nil
}

func (s *stubStore) GetSession(ctx context.Context, chatID, userID string) (*domain.ChatSession, error) {
	session, ok := s.sessions[chatID]
	if !ok || session.UserID != userID {
		return nil, nil
	}
	return session, nil
}

func (s *stubStore) ListMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	return s.messages[chatID], nil
}

func (s *stubStore) ListRecentSessions(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error) {
	return nil, nil
}

func (s *stubStore) PendingResponse(ctx context.Context, chatID string) (bool, error) {
	msgs := s.messages[chatID]
	return len(msgs) > 0 && msgs[len(msgs)-1].Role == domain.RoleUser, nil
}

type stubAgent struct{}

func (stubAgent) Run(ctx context.Context, query string, history []llm.AgentTurn, emit func(events.Event)) (string, []domain.UsageSnapshot, error) {
	emit(events.DoneEvent{})
	return "answer", nil, nil
}

func newTestHandler(classification domain.Classification) (*Handler, *stubStore) {
	store := newStubStore()
	log, _ := logger.New(logger.Config{})
	h := New(&stubClassifier{result: classification}, store, stubAgent{}, log)
	return h, store
}

func TestSearch_URLClassificationRedirects(t *testing.T) {
	h, _ := newTestHandler(domain.ClassificationURL)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/search?q=example.com", nil)

	h.Search(c)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestSearch_ResearchClassificationCreatesSessionAndRedirects(t *testing.T) {
	h, store := newTestHandler(domain.ClassificationResearch)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/search?q=what+is+the+capital+of+france", nil)
	c.Request.Header.Set("X-User-ID", "user-1")

	h.Search(c)

	require.Len(t, store.created, 1)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/chat/")
}

func TestSearch_SearchClassificationRedirectsToSearchEngine(t *testing.T) {
	h, _ := newTestHandler(domain.ClassificationSearch)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/search?q=golang+channels", nil)

	h.Search(c)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "google.com/search")
}

func TestSearch_MissingQueryIsBadRequest(t *testing.T) {
	h, _ := newTestHandler(domain.ClassificationSearch)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/search", nil)

	h.Search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetChat_NotFoundForUnknownSession(t *testing.T) {
	h, _ := newTestHandler(domain.ClassificationSearch)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/chat/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.GetChat(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessage_AppendsToExistingSession(t *testing.T) {
	h, store := newTestHandler(domain.ClassificationSearch)
	store.sessions["chat-1"] = &domain.ChatSession{ID: "chat-1", UserID: "user-1"}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/chat-1/message", newJSONBody(`{"content":"follow up"}`))
	c.Request.Header.Set("X-User-ID", "user-1")
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}

	h.PostMessage(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.messages["chat-1"], 1)
	assert.Equal(t, "follow up", store.messages["chat-1"][0].Content)
}

func TestHealthz_ReportsOK(t *testing.T) {
	h, _ := newTestHandler(domain.ClassificationSearch)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Healthz(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func newJSONBody(s string) io.Reader {
	return strings.NewReader(s)
}
