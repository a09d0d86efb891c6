package guardrail

import (
	"strings"

	"helmsman/internal/domain"
)

const (
	msgEmptyResponse = "Sorry, I could not produce an answer. Please try rephrasing your question."
	msgToolApology   = "Sorry, something went wrong while handling your request. Please try again in a moment."
	truncatedNotice  = "\n\n[Note: the response may have been cut short.]"
)

// Output validates a tool result before it is returned to the user.
type Output struct {
	// tokenCeiling is the model's completion limit; the truncation
	// heuristic compares the response length against it.
	tokenCeiling int
}

// NewOutput creates the output guardrail.
func NewOutput(tokenCeiling int) *Output {
	if tokenCeiling <= 0 {
		tokenCeiling = 1024
	}
	return &Output{tokenCeiling: tokenCeiling}
}

// Check validates one tool result. A failed result passes through as an
// apologetic message rather than a raw error; the caller is responsible
// for logging the detail.
func (g *Output) Check(result domain.ToolResult) domain.Verdict {
	if !result.OK {
		return domain.Sanitize(msgToolApology)
	}

	text := strings.TrimSpace(result.Output)
	if text == "" {
		return domain.Reject(msgEmptyResponse, domain.ViolationEmptyResponse)
	}

	if g.truncated(text) {
		return domain.Sanitize(text+truncatedNotice, domain.ViolationTruncated)
	}

	if text != result.Output {
		return domain.Sanitize(text)
	}
	return domain.Pass()
}

// truncated applies the mid-sentence heuristic: no terminal punctuation and
// a length near the completion ceiling (chars approximated as tokens*4).
func (g *Output) truncated(text string) bool {
	switch text[len(text)-1] {
	case '.', '!', '?', ':', ')':
		return false
	}
	ceiling := g.tokenCeiling * 4
	return len(text) >= ceiling-ceiling/8
}
