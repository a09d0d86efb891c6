// Package vectorsearch is the client for the externally-owned vector index.
// Index construction and the persistence format are not this service's
// concern; only the search contract is.
package vectorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Passage is one ranked result from the index.
type Passage struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Searcher is the narrow contract the knowledge-base tool depends on.
type Searcher interface {
	// Search returns up to k passages ranked by similarity.
	Search(ctx context.Context, query string, k int) ([]Passage, error)

	// Healthy reports whether the index is currently reachable.
	Healthy(ctx context.Context) error
}

// Client talks to the index service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// NewClient creates an index client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Results []Passage `json:"results"`
}

// Search posts the query to the index and returns ranked passages.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("index unavailable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Results, nil
}

// Healthy probes the index health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("index unavailable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index health returned %d", resp.StatusCode)
	}
	return nil
}
