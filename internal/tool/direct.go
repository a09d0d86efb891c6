package tool

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/domain"
)

const directPrompt = `You are a helpful assistant. Answer the user's question directly and concisely.

%sUser: %s
Assistant:`

// Direct answers open-domain questions with a plain provider call, no
// structured-encoding constraints. It is the universal fallback handler.
type Direct struct {
	provider    llm.Provider
	maxTokens   int
	recentTurns int
	logger      *zap.Logger
}

// NewDirect creates the direct-answer tool.
func NewDirect(provider llm.Provider, maxTokens, recentTurns int, logger *zap.Logger) *Direct {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Direct{provider: provider, maxTokens: maxTokens, recentTurns: recentTurns, logger: logger}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	var history strings.Builder
	if sess != nil {
		for _, turn := range sess.RecentTurns(d.recentTurns) {
			fmt.Fprintf(&history, "User: %s\nAssistant: %s\n", turn.UserText, turn.Assistant)
		}
	}

	answer, err := d.provider.Complete(ctx, fmt.Sprintf(directPrompt, history.String(), query), d.maxTokens, 0.7)
	if err != nil {
		terr := &domain.ToolError{Tool: d.Name(), Detail: "completion failed", Err: err}
		d.logger.Error("direct answer failed", zap.Error(err))
		return domain.ToolFailure(terr.Error())
	}
	return domain.ToolSuccess(answer)
}
