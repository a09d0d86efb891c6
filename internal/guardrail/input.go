// Package guardrail implements the input, output, and conversation
// validators of the pipeline. Every check resolves to a Verdict; none of
// them may panic or return an error to the caller.
package guardrail

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"helmsman/internal/domain"
	"helmsman/policy"
)

const (
	msgEmptyInput = "Please enter a message."
	msgTooLong    = "Your message is too long. Please shorten it and try again."
	msgInjection  = "Your message contains content that cannot be processed."
)

// Input validates user text before it reaches the model.
type Input struct {
	engine    *policy.Engine
	maxLength int
	patterns  []string
	logger    *zap.Logger
}

// NewInput creates the input guardrail. engine may be nil; the check then
// degrades to the built-in length rule.
func NewInput(engine *policy.Engine, maxLength int, patterns []string, logger *zap.Logger) *Input {
	if maxLength <= 0 {
		maxLength = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Input{engine: engine, maxLength: maxLength, patterns: patterns, logger: logger}
}

// Check validates and sanitizes one query.
func (g *Input) Check(ctx context.Context, text string) domain.Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Reject(msgEmptyInput, domain.ViolationEmptyInput)
	}

	decision, err := g.evaluate(ctx, trimmed)
	if err != nil {
		// Policy engine failure must not take the conversation down.
		// Fall back to the length rule and let the text through.
		g.logger.Warn("guard policy evaluation failed", zap.Error(err))
		decision = policy.Decision{Allow: utf8.RuneCountInString(trimmed) <= g.maxLength}
		if !decision.Allow {
			decision.Violation = string(domain.ViolationTooLong)
		}
	}

	if !decision.Allow {
		switch domain.ViolationCode(decision.Violation) {
		case domain.ViolationTooLong:
			return domain.Reject(msgTooLong, domain.ViolationTooLong)
		default:
			return domain.Reject(msgInjection, domain.ViolationInjection)
		}
	}

	cleaned := stripControl(trimmed)
	if cleaned != text {
		return domain.Sanitize(cleaned)
	}
	return domain.Pass()
}

// evaluate applies the guard policy. Lengths are measured in characters,
// not bytes, so multibyte text is not penalized.
func (g *Input) evaluate(ctx context.Context, text string) (policy.Decision, error) {
	length := utf8.RuneCountInString(text)
	if g.engine == nil {
		d := policy.Decision{Allow: length <= g.maxLength}
		if !d.Allow {
			d.Violation = string(domain.ViolationTooLong)
		}
		return d, nil
	}
	return g.engine.Evaluate(ctx, policy.GuardInput{
		Text:      text,
		Length:    length,
		MaxLength: g.maxLength,
		Patterns:  g.patterns,
	})
}

// stripControl removes control characters except newline and tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
