package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/relay/internal/httpserver"
	"github.com/scoutline/relay/internal/logger"
)

func TestNew_AppliesMiddlewareAndRoutes(t *testing.T) {
	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Config{Port: 0}, log, func(engine *gin.Engine) {
		engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNew_RecoversFromPanic(t *testing.T) {
	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Config{}, log, func(engine *gin.Engine) {
		engine.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := httpserver.Config{}
	cfg.SetDefaults()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, httpserver.DefaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.Equal(t, httpserver.DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestServer_StartAsyncAndShutdown(t *testing.T) {
	log, err := logger.New(logger.Config{})
	require.NoError(t, err)

	srv := httpserver.New(httpserver.Config{Port: 0}, log, nil)
	errCh := srv.StartAsync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected server goroutine to exit after shutdown")
	}
}
