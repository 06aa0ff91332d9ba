// Package searchclient adapts an external web-search API into
// []domain.SearchResult for the research agent's research tool.
package searchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/scoutline/relay/internal/apierrors"
	"github.com/scoutline/relay/internal/domain"
)

// Config configures a Client.
type Config struct {
	BaseURL string `env:"SEARCH_API_BASE_URL" yaml:"base_url"`
	APIKey  string `env:"SEARCH_API_KEY"       yaml:"api_key"`
}

// Client calls the external search provider.
type Client struct {
	cfg    Config
	client *http.Client
}

// New constructs a Client.
func New(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

// Search returns up to the provider's default result count for query. A
// non-2xx response or network failure is wrapped as a SearchBackendError;
// callers (internal/agent's research tool) turn that into a textual
// diagnostic rather than propagating it.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	reqURL := c.cfg.BaseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apierrors.SearchBackend("build search request", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apierrors.SearchBackend("call search api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierrors.SearchBackend(fmt.Sprintf("search api returned HTTP %d", resp.StatusCode), parseErrorBody(resp))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apierrors.SearchBackend("decode search response", err)
	}

	return parsed.Results, nil
}

// parseErrorBody best-effort reads an {"error"|"message": "..."} body.
func parseErrorBody(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("status %s", resp.Status)
	}
	if body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	if body.Message != "" {
		return fmt.Errorf("%s", body.Message)
	}
	return fmt.Errorf("status %s", resp.Status)
}
