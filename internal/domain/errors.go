package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by the store and surfaced as a client
// error on history lookups. Clearing an unknown session is not an error.
var ErrSessionNotFound = errors.New("session not found")

// ProviderError is a failure of the upstream model or search provider.
type ProviderError struct {
	Op         string // complete, models, search
	StatusCode int    // 0 when the request never reached the provider
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Op, e.Message)
}

// Retryable reports whether the failure is worth retrying: rate limits,
// server errors, and transport failures.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ClassificationError records an exhausted router retry loop. It is logged
// for observability and never surfaced to the user.
type ClassificationError struct {
	Attempts int
	LastErr  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ClassificationError) Unwrap() error {
	return e.LastErr
}

// ToolError is a capability handler failure. The category and detail are
// logged; the user sees an apology instead.
type ToolError struct {
	Tool   string
	Detail string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Detail, e.Err)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Detail)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
