// Command relay runs the smart-search relay HTTP service: query
// classification, the research agent, and chat persistence behind a
// single Gin server: load config, build the logger, wire the
// collaborators, run the server, and handle signals for graceful
// shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scoutline/relay/internal/agent"
	"github.com/scoutline/relay/internal/classifier"
	"github.com/scoutline/relay/internal/config"
	"github.com/scoutline/relay/internal/database"
	"github.com/scoutline/relay/internal/fetcher"
	"github.com/scoutline/relay/internal/httpapi"
	"github.com/scoutline/relay/internal/httpclient"
	"github.com/scoutline/relay/internal/httpserver"
	"github.com/scoutline/relay/internal/kv"
	"github.com/scoutline/relay/internal/llm"
	"github.com/scoutline/relay/internal/logger"
	"github.com/scoutline/relay/internal/robots"
	"github.com/scoutline/relay/internal/searchclient"
	"github.com/scoutline/relay/internal/throttle"
)

// AppConfig aggregates every package's Config under one YAML document /
// env-var surface, the shape internal/config.Load populates.
type AppConfig struct {
	HTTP      httpserver.Config   `yaml:"http"`
	Log       logger.Config       `yaml:"log"`
	Postgres  database.Config     `yaml:"postgres"`
	Redis     kv.Config           `yaml:"redis"`
	Anthropic llm.Config          `yaml:"anthropic"`
	Search    searchclient.Config `yaml:"search"`
	UserAgent string              `env:"RELAY_USER_AGENT" yaml:"user_agent"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[AppConfig](os.Getenv("RELAY_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "RelayBot/1.0 (+https://relay.example/bot)"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.NewConnection(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	chatStore := database.NewChatStore(db)
	robotsStore := database.NewRobotsStore(db)

	limiter, cache := buildThrottle(cfg, log)

	outboundClient := httpclient.New(httpclient.Config{})

	robotsSvc := robots.NewService(robotsStore, robots.Config{UserAgent: cfg.UserAgent}, log)

	llmClient, err := llm.New(cfg.Anthropic)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	fetch := fetcher.New(robotsSvc, limiter, cache, llmClient, outboundClient, cfg.UserAgent)
	search := searchclient.New(cfg.Search, outboundClient)
	researchAgent := agent.New(llmClient, search, fetch)
	classify := classifier.New(llmClient)

	handler := httpapi.New(classify, chatStore, researchAgent, log)

	cfg.HTTP.ServiceName = "relay"
	srv := httpserver.New(cfg.HTTP, log, func(engine *gin.Engine) {
		httpapi.RegisterRoutes(engine, handler)
	})

	errCh := srv.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// buildThrottle picks Redis-backed rate limiting and caching when
// cfg.Redis.Address is configured, falling back to the in-process
// implementations otherwise — the fetcher is unaware which is in use.
func buildThrottle(cfg *AppConfig, log logger.Logger) (throttle.RateLimiter, throttle.ResponseCache) {
	if cfg.Redis.Address == "" {
		log.Info("redis not configured, using in-process throttle backends")
		return throttle.NewInProcessLimiter(), throttle.NewInProcessResponseCache()
	}

	client, err := kv.NewClient(cfg.Redis)
	if err != nil {
		log.Warn("redis connection failed, falling back to in-process throttle backends", logger.Error(err))
		return throttle.NewInProcessLimiter(), throttle.NewInProcessResponseCache()
	}

	return throttle.NewRedisLimiter(client, "relay:ratelimit:"), throttle.NewRedisResponseCache(client, "relay:cache:")
}

