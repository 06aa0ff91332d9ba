package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/events"
	"github.com/scoutline/relay/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStream_WritesEventsAndClosesOnChannelClose(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/chat/1/stream", nil)

	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	ch := make(chan events.Event, 2)
	ch <- events.StageEvent{Stage: events.StageResearching}
	ch <- events.DoneEvent{}
	close(ch)

	Stream(c, log, ch)

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event: stage"))
	assert.True(t, strings.Contains(body, "event: done"))
}

func TestStream_ReturnsWhenClientDisconnects(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest(http.MethodGet, "/chat/1/stream", nil)
	ctx, cancel := context.WithCancel(req.Context())
	c.Request = req.WithContext(ctx)
	cancel()

	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	ch := make(chan events.Event)
	defer close(ch)

	done := make(chan struct{})
	go func() {
		Stream(c, log, ch)
		close(done)
	}()

	<-done
}

func TestSetHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetHeaders(c.Writer)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}
