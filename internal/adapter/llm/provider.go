// Package llm provides the model-provider abstraction used by the router
// and the direct-answer tool.
package llm

import "context"

// Provider is the narrow contract the core depends on. A single synchronous
// completion call; the concrete provider behind it is opaque.
type Provider interface {
	// Complete sends one prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

	// Healthy reports whether the provider is currently reachable.
	Healthy(ctx context.Context) error
}

// Ensure both implementations satisfy the interface.
var (
	_ Provider = (*Client)(nil)
	_ Provider = (*MockProvider)(nil)
)
