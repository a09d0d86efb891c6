// Package router classifies a query into one of the five dispatch
// categories with a single model round-trip over the wire encoding.
package router

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/codec"
	"helmsman/internal/domain"
)

// Router issues classification round-trips against the model provider.
// A malformed or unparseable response never aborts the conversation: the
// router retries a bounded number of times, then falls back to DIRECT.
type Router struct {
	provider    llm.Provider
	retries     int // extra attempts after the first round-trip
	maxTokens   int
	recentTurns int
	logger      *zap.Logger
	fallbacks   prometheus.Counter
}

// New creates a router. fallbacks may be nil when metrics are not wired.
func New(provider llm.Provider, retries, maxTokens, recentTurns int, logger *zap.Logger, fallbacks prometheus.Counter) *Router {
	if retries < 0 {
		retries = 0
	}
	if maxTokens <= 0 {
		maxTokens = 200
	}
	if recentTurns < 0 {
		recentTurns = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		provider:    provider,
		retries:     retries,
		maxTokens:   maxTokens,
		recentTurns: recentTurns,
		logger:      logger,
		fallbacks:   fallbacks,
	}
}

// Classify routes one query. It never returns an error: exhausted retries
// resolve to the DIRECT fallback with Fallback set, and the underlying
// ClassificationError is logged for observability only.
func (r *Router) Classify(ctx context.Context, query string, recent []domain.Turn) domain.ClassificationResult {
	var lastErr error
	var lastRaw string
	for attempt := 0; attempt <= r.retries; attempt++ {
		prompt := r.buildPrompt(query, recent, attempt > 0)

		raw, err := r.provider.Complete(ctx, prompt, r.maxTokens, 0)
		if err != nil {
			lastErr = err
			continue
		}
		lastRaw = raw

		result, err := decodeResult(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return result
	}

	cerr := &domain.ClassificationError{Attempts: r.retries + 1, LastErr: lastErr}
	r.logger.Warn("classification exhausted, falling back to DIRECT",
		zap.Int("attempts", cerr.Attempts),
		zap.Error(lastErr),
	)
	if r.fallbacks != nil {
		r.fallbacks.Inc()
	}

	// A chatty model that answered "The category is CALCULATOR" still
	// routes usefully: scan the last raw response for a category token.
	if category, ok := extractCategoryToken(lastRaw); ok {
		return domain.ClassificationResult{Category: category, Fallback: true}
	}
	return domain.ClassificationResult{Category: domain.CategoryDirect, Fallback: true}
}

// extractCategoryToken looks for a defined label anywhere in the text.
func extractCategoryToken(text string) (domain.Category, bool) {
	upper := strings.ToUpper(text)
	for _, c := range domain.Categories() {
		if strings.Contains(upper, string(c)) {
			return c, true
		}
	}
	return "", false
}

func decodeResult(raw string) (domain.ClassificationResult, error) {
	msg, err := codec.Decode(raw)
	if err != nil {
		// Models occasionally wrap the encoding in prose or code fences;
		// try again with only the tagged lines.
		trimmed := extractTaggedLines(raw)
		if trimmed == "" {
			return domain.ClassificationResult{}, err
		}
		msg, err = codec.Decode(trimmed)
		if err != nil {
			return domain.ClassificationResult{}, err
		}
	}

	label, ok := msg.Get("category")
	if !ok {
		return domain.ClassificationResult{}, &codec.DecodeError{Line: 0, Reason: "missing category field"}
	}
	category, ok := domain.ParseCategory(label)
	if !ok {
		return domain.ClassificationResult{}, &codec.DecodeError{Line: 0, Reason: "unknown category " + label}
	}

	result := domain.ClassificationResult{Category: category}
	if rationale, ok := msg.Get("rationale"); ok {
		result.Rationale = rationale
	}
	if confident, ok := msg.Get("confident"); ok {
		result.Confident = strings.EqualFold(strings.TrimSpace(confident), "yes")
	}
	return result, nil
}

// extractTaggedLines keeps only lines that look like wire-encoding fields.
func extractTaggedLines(raw string) string {
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
