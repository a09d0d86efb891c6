package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a deterministic in-process provider used by the chat CLI
// demo and tests. Classification prompts get a keyword-routed category in
// the wire encoding; everything else gets a canned answer.
type MockProvider struct{}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if strings.Contains(prompt, "<category>") && strings.Contains(prompt, "classify") {
		return m.classify(prompt), nil
	}

	query := lastQueryLine(prompt)
	if query == "" {
		return "[MOCK] This is a mock response.", nil
	}
	return fmt.Sprintf("[MOCK] Answering %q from general knowledge.", truncate(query, 100)), nil
}

func (m *MockProvider) Healthy(ctx context.Context) error {
	return nil
}

func (m *MockProvider) classify(prompt string) string {
	query := strings.ToLower(lastQueryLine(prompt))

	category := "DIRECT"
	rationale := "general knowledge question"
	switch {
	case strings.ContainsAny(query, "0123456789") && strings.ContainsAny(query, "+-*/^"):
		category = "CALCULATOR"
		rationale = "arithmetic expression detected"
	case strings.Contains(query, "time") || strings.Contains(query, "date") || strings.Contains(query, "days between"):
		category = "DATETIME"
		rationale = "temporal information request"
	case strings.Contains(query, "news") || strings.Contains(query, "latest") || strings.Contains(query, "today"):
		category = "WEB_SEARCH"
		rationale = "needs current information"
	case strings.Contains(query, "document") || strings.Contains(query, "knowledge base"):
		category = "RAG"
		rationale = "topic in the knowledge base"
	}

	return fmt.Sprintf("<category>%s</category>\n<rationale>%s</rationale>\n<confident>yes</confident>\n", category, rationale)
}

// lastQueryLine pulls the contents of the final <query>...</query> field,
// or the last non-empty line when the prompt is unstructured.
func lastQueryLine(prompt string) string {
	if start := strings.LastIndex(prompt, "<query>"); start >= 0 {
		rest := prompt[start+len("<query>"):]
		if end := strings.Index(rest, "</query>"); end >= 0 {
			return rest[:end]
		}
	}
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
