package tool

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/adapter/websearch"
	"helmsman/internal/domain"
)

const webPrompt = `Summarize an answer to the question from the search results below. Cite the source URLs you used.

%s
Question: %s`

// WebSearch answers questions needing current information via the external
// search provider, then summarizes with one provider call.
type WebSearch struct {
	search    websearch.Searcher
	provider  llm.Provider
	maxTokens int
	logger    *zap.Logger
}

// NewWebSearch creates the web-search tool.
func NewWebSearch(search websearch.Searcher, provider llm.Provider, maxTokens int, logger *zap.Logger) *WebSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearch{search: search, provider: provider, maxTokens: maxTokens, logger: logger}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	results, err := w.search.Search(ctx, query)
	if err != nil {
		terr := &domain.ToolError{Tool: w.Name(), Detail: "search failed", Err: err}
		w.logger.Error("web search failed", zap.Error(err))
		return domain.ToolFailure(terr.Error())
	}
	if len(results) == 0 {
		return domain.ToolSuccess(fmt.Sprintf("I could not find any web results for %q.", query))
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n    %s\n    %s\n", i+1, r.Title, r.Snippet, r.URL)
	}

	answer, err := w.provider.Complete(ctx, fmt.Sprintf(webPrompt, b.String(), query), w.maxTokens, 0.2)
	if err != nil {
		terr := &domain.ToolError{Tool: w.Name(), Detail: "summary completion failed", Err: err}
		w.logger.Error("web search completion failed", zap.Error(err))
		return domain.ToolFailure(terr.Error())
	}
	return domain.ToolSuccess(answer)
}
