package tool

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/adapter/vectorsearch"
	"helmsman/internal/domain"
)

const ragPrompt = `Answer the question using only the passages below. If the passages do not contain the answer, say so.

%s
Question: %s`

// Knowledge answers questions against the externally-owned vector index,
// then grounds the final answer with one provider call.
type Knowledge struct {
	index     vectorsearch.Searcher
	provider  llm.Provider
	topK      int
	maxTokens int
	logger    *zap.Logger
}

// NewKnowledge creates the knowledge-base tool.
func NewKnowledge(index vectorsearch.Searcher, provider llm.Provider, topK, maxTokens int, logger *zap.Logger) *Knowledge {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Knowledge{index: index, provider: provider, topK: topK, maxTokens: maxTokens, logger: logger}
}

func (k *Knowledge) Name() string { return "knowledge_base" }

func (k *Knowledge) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	passages, err := k.index.Search(ctx, query, k.topK)
	if err != nil {
		terr := &domain.ToolError{Tool: k.Name(), Detail: "index search failed", Err: err}
		k.logger.Error("knowledge base search failed", zap.Error(err))
		return domain.ToolFailure(terr.Error())
	}
	if len(passages) == 0 {
		return domain.ToolSuccess("I could not find anything about that in the knowledge base.")
	}

	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (score %.2f) %s\n", i+1, p.Score, p.Text)
	}

	answer, err := k.provider.Complete(ctx, fmt.Sprintf(ragPrompt, b.String(), query), k.maxTokens, 0.2)
	if err != nil {
		terr := &domain.ToolError{Tool: k.Name(), Detail: "grounding completion failed", Err: err}
		k.logger.Error("knowledge base completion failed", zap.Error(err))
		return domain.ToolFailure(terr.Error())
	}
	return domain.ToolSuccess(answer)
}
