package llm

import (
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "HELMSMAN_MODE"
	// ModeMock indicates the mock provider should be used.
	ModeMock = "MOCK"
)

// NewProvider creates a provider based on the HELMSMAN_MODE environment
// variable. HELMSMAN_MODE=MOCK returns the mock; anything else returns the
// real HTTP client.
func NewProvider(baseURL, apiKey, model string, timeout time.Duration, retries int, backoff time.Duration) Provider {
	if os.Getenv(EnvMode) == ModeMock {
		return NewMockProvider()
	}
	return NewClient(baseURL, apiKey, model, timeout, retries, backoff)
}
