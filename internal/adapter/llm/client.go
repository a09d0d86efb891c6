package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"helmsman/internal/domain"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	retries    int
	backoff    time.Duration
	httpClient *http.Client
}

// NewClient creates a provider client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, retries int, backoff time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		retries: retries,
		backoff: backoff,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one prompt as a single user message. Rate limits, server
// errors and transport failures are retried sequentially with backoff;
// other provider errors surface immediately.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		text, err := c.complete(ctx, prompt, maxTokens, temperature)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var provErr *domain.ProviderError
		if !errors.As(err, &provErr) || !provErr.Retryable() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	}
	if maxTokens > 0 {
		reqBody.MaxTokens = &maxTokens
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.ProviderError{Op: "complete", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.ProviderError{Op: "complete", Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", &domain.ProviderError{Op: "complete", StatusCode: resp.StatusCode, Message: msg}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.ProviderError{Op: "complete", Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if len(result.Choices) == 0 {
		return "", &domain.ProviderError{Op: "complete", Message: "response contained no choices"}
	}
	return result.Choices[0].Message.Content, nil
}

// Healthy probes the models endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &domain.ProviderError{Op: "models", Message: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &domain.ProviderError{Op: "models", StatusCode: resp.StatusCode, Message: "models endpoint unavailable"}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
