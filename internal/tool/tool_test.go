package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"helmsman/internal/adapter/vectorsearch"
	"helmsman/internal/adapter/websearch"
	"helmsman/internal/domain"
)

type stubProvider struct {
	reply   string
	err     error
	prompts []string
}

func (p *stubProvider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *stubProvider) Healthy(ctx context.Context) error { return nil }

type stubIndex struct {
	passages []vectorsearch.Passage
	err      error
}

func (s *stubIndex) Search(ctx context.Context, query string, k int) ([]vectorsearch.Passage, error) {
	return s.passages, s.err
}

func (s *stubIndex) Healthy(ctx context.Context) error { return nil }

type stubWeb struct {
	results []websearch.Result
	err     error
}

func (s *stubWeb) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	return s.results, s.err
}

func TestRegistryDispatchFallsBackToDirect(t *testing.T) {
	provider := &stubProvider{reply: "a direct answer"}
	registry := NewRegistry(NewDirect(provider, 512, 4, nil))
	registry.Register(domain.CategoryCalculator, NewCalculator())

	// Registered category goes to its handler.
	res := registry.Dispatch(context.Background(), domain.CategoryCalculator, "128 * 46", nil)
	if !res.OK || res.Output != "5888" {
		t.Fatalf("calculator dispatch: ok=%v output=%q err=%q", res.OK, res.Output, res.Err)
	}

	// Unregistered category falls back to the direct handler.
	res = registry.Dispatch(context.Background(), domain.CategoryWebSearch, "latest news", nil)
	if !res.OK || res.Output != "a direct answer" {
		t.Fatalf("fallback dispatch: ok=%v output=%q err=%q", res.OK, res.Output, res.Err)
	}
}

func TestRegistryLookupUnknownCategory(t *testing.T) {
	fallback := NewDirect(&stubProvider{reply: "ok"}, 512, 4, nil)
	registry := NewRegistry(fallback)

	if got := registry.Lookup(domain.Category("BOGUS")); got != Tool(fallback) {
		t.Fatalf("Lookup(BOGUS) = %v, want fallback", got.Name())
	}
}

func TestDirectIncludesRecentTurns(t *testing.T) {
	provider := &stubProvider{reply: "hello again"}
	direct := NewDirect(provider, 512, 2, nil)

	sess := &domain.Session{SessionID: "s1", CreatedAt: time.Now()}
	sess.Turns = []domain.Turn{
		{UserText: "first question", Assistant: "first answer", Category: domain.CategoryDirect},
		{UserText: "second question", Assistant: "second answer", Category: domain.CategoryDirect},
		{UserText: "third question", Assistant: "third answer", Category: domain.CategoryDirect},
	}

	res := direct.Execute(context.Background(), "and now?", sess)
	if !res.OK {
		t.Fatalf("execute failed: %s", res.Err)
	}

	prompt := provider.prompts[0]
	if strings.Contains(prompt, "first question") {
		t.Fatalf("prompt includes turn outside the recent window:\n%s", prompt)
	}
	if !strings.Contains(prompt, "second question") || !strings.Contains(prompt, "third answer") {
		t.Fatalf("prompt missing recent turns:\n%s", prompt)
	}
	if !strings.Contains(prompt, "and now?") {
		t.Fatalf("prompt missing current query:\n%s", prompt)
	}
}

func TestDirectProviderError(t *testing.T) {
	direct := NewDirect(&stubProvider{err: errors.New("boom")}, 512, 4, nil)

	res := direct.Execute(context.Background(), "hi", nil)
	if res.OK {
		t.Fatalf("want failure, got %q", res.Output)
	}
	if !strings.Contains(res.Err, "direct") {
		t.Fatalf("unexpected error: %s", res.Err)
	}
}

func TestKnowledgeGroundsAnswerInPassages(t *testing.T) {
	index := &stubIndex{passages: []vectorsearch.Passage{
		{Text: "Go was announced in 2009.", Score: 0.91},
		{Text: "Go 1.0 shipped in 2012.", Score: 0.84},
	}}
	provider := &stubProvider{reply: "Go was announced in 2009."}
	kb := NewKnowledge(index, provider, 3, 512, nil)

	res := kb.Execute(context.Background(), "When was Go announced?", nil)
	if !res.OK {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if res.Output != "Go was announced in 2009." {
		t.Fatalf("unexpected output: %q", res.Output)
	}

	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "announced in 2009") || !strings.Contains(prompt, "score 0.91") {
		t.Fatalf("prompt missing passages:\n%s", prompt)
	}
}

func TestKnowledgeEmptyIndex(t *testing.T) {
	kb := NewKnowledge(&stubIndex{}, &stubProvider{}, 3, 512, nil)

	res := kb.Execute(context.Background(), "anything", nil)
	if !res.OK {
		t.Fatalf("empty index should not be a failure: %s", res.Err)
	}
	if !strings.Contains(res.Output, "could not find") {
		t.Fatalf("unexpected output: %q", res.Output)
	}
}

func TestKnowledgeIndexError(t *testing.T) {
	kb := NewKnowledge(&stubIndex{err: errors.New("connection refused")}, &stubProvider{}, 3, 512, nil)

	res := kb.Execute(context.Background(), "anything", nil)
	if res.OK {
		t.Fatalf("want failure, got %q", res.Output)
	}
	if !strings.Contains(res.Err, "knowledge_base") {
		t.Fatalf("unexpected error: %s", res.Err)
	}
}

func TestWebSearchSummarizesResults(t *testing.T) {
	web := &stubWeb{results: []websearch.Result{
		{Title: "Go 1.25 released", Snippet: "The Go team announced...", URL: "https://go.dev/blog/go1.25"},
	}}
	provider := &stubProvider{reply: "Go 1.25 is out (https://go.dev/blog/go1.25)."}
	ws := NewWebSearch(web, provider, 512, nil)

	res := ws.Execute(context.Background(), "latest Go release", nil)
	if !res.OK {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if !strings.Contains(res.Output, "Go 1.25") {
		t.Fatalf("unexpected output: %q", res.Output)
	}
	if !strings.Contains(provider.prompts[0], "go.dev/blog/go1.25") {
		t.Fatalf("prompt missing source URL:\n%s", provider.prompts[0])
	}
}

func TestWebSearchNoResults(t *testing.T) {
	ws := NewWebSearch(&stubWeb{}, &stubProvider{}, 512, nil)

	res := ws.Execute(context.Background(), "zxqv", nil)
	if !res.OK {
		t.Fatalf("empty results should not be a failure: %s", res.Err)
	}
	if !strings.Contains(res.Output, "could not find") {
		t.Fatalf("unexpected output: %q", res.Output)
	}
}

func TestWebSearchProviderUnavailable(t *testing.T) {
	ws := NewWebSearch(&stubWeb{err: websearch.ErrNoCredentials}, &stubProvider{}, 512, nil)

	res := ws.Execute(context.Background(), "anything", nil)
	if res.OK {
		t.Fatalf("want failure, got %q", res.Output)
	}
	if !strings.Contains(res.Err, "web_search") {
		t.Fatalf("unexpected error: %s", res.Err)
	}
}
