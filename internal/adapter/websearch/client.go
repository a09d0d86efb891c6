// Package websearch is the client for the external web-search provider.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoCredentials is returned when no API key is configured.
var ErrNoCredentials = errors.New("web search API key not configured")

// Result is one ranked snippet from the search provider.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher is the narrow contract the web-search tool depends on.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Client talks to a SerpAPI-style search endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	numResults int
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// NewClient creates a search client. An empty apiKey is allowed at
// construction time; Search fails with ErrNoCredentials when called.
func NewClient(baseURL, apiKey string, numResults int, timeout time.Duration) *Client {
	if numResults <= 0 {
		numResults = 5
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		numResults: numResults,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
}

// Search queries the provider and returns ranked snippets.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredentials
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", fmt.Sprintf("%d", c.numResults))
	params.Set("engine", "google")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search provider unavailable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(result.OrganicResults))
	for _, r := range result.OrganicResults {
		results = append(results, Result{Title: r.Title, Snippet: r.Snippet, URL: r.Link})
	}
	return results, nil
}
