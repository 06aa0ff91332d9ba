// Package httpclient builds the shared outbound *http.Client used by
// the search client, the content fetcher, and the robots fetcher.
package httpclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout is used when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxIdleConns is used when Config.MaxIdleConns is zero.
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is used when Config.MaxIdleConnsPerHost is zero.
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is used when Config.IdleConnTimeout is zero.
	DefaultIdleConnTimeout = 90 * time.Second
)

// Config configures an outbound HTTP client.
type Config struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// New builds an *http.Client with relay's standard transport settings.
func New(cfg Config) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = DefaultIdleConnTimeout
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}
}

// NewDefault builds an *http.Client with every default applied.
func NewDefault() *http.Client {
	return New(Config{})
}
