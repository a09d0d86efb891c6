package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/domain"
	"helmsman/internal/guardrail"
	"helmsman/internal/router"
	"helmsman/internal/store"
	"helmsman/internal/tool"
	"helmsman/policy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	provider := llm.NewMockProvider()
	registry := tool.NewRegistry(tool.NewDirect(provider, 512, 4, logger))
	registry.Register(domain.CategoryCalculator, tool.NewCalculator())
	registry.Register(domain.CategoryDatetime, tool.NewDatetime())
	return newTestOrchestratorWith(t, registry)
}

func newTestOrchestratorWith(t *testing.T, registry *tool.Registry) *Orchestrator {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("build policy engine: %v", err)
	}

	provider := llm.NewMockProvider()
	logger := zap.NewNop()

	input := guardrail.NewInput(engine, 10000, nil, logger)
	output := guardrail.NewOutput(1024)
	conversation := guardrail.NewConversation(6, 3, 25)
	rt := router.New(provider, 2, 200, 6, logger, nil)

	return New(st, input, output, conversation, rt, registry, provider, nil, logger, nil)
}

func TestSubmitCalculatorEndToEnd(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: "What is 128 * 46?"})
	if !resp.Success {
		t.Fatalf("submit failed: %+v", resp)
	}
	if resp.Category != domain.CategoryCalculator {
		t.Fatalf("category = %q, want CALCULATOR", resp.Category)
	}
	if resp.Response != "5888" {
		t.Fatalf("response = %q, want 5888", resp.Response)
	}
	if resp.SessionID == "" {
		t.Fatalf("no session id assigned")
	}

	// The turn is committed.
	history, err := o.History(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Text != "5888" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSubmitEmptyInputRejected(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: "   "})
	if resp.Success {
		t.Fatalf("empty input accepted: %+v", resp)
	}
	if resp.Violation != string(domain.ViolationEmptyInput) {
		t.Fatalf("violation = %q, want EMPTY_INPUT", resp.Violation)
	}
}

func TestSubmitInjectionRejected(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: "hello <script>alert(1)</script>"})
	if resp.Success {
		t.Fatalf("injection accepted: %+v", resp)
	}
	if resp.Violation != string(domain.ViolationInjection) {
		t.Fatalf("violation = %q, want INJECTION", resp.Violation)
	}
}

func TestSubmitTooLongRejected(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: strings.Repeat("a", 10001)})
	if resp.Success {
		t.Fatalf("oversized input accepted")
	}
	if resp.Violation != string(domain.ViolationTooLong) {
		t.Fatalf("violation = %q, want TOO_LONG", resp.Violation)
	}
}

func TestSubmitRejectedTurnIsCommitted(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: "<script>bad</script>", SessionID: "s1"})
	if resp.Success {
		t.Fatalf("injection accepted")
	}

	history, err := o.History(context.Background(), "s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("rejected turn not committed, history length = %d", len(history))
	}
}

func TestSubmitLoopBecomesWarning(t *testing.T) {
	o := newTestOrchestrator(t)

	var resp domain.SubmitResponse
	for i := 0; i < 4; i++ {
		resp = o.Submit(context.Background(), domain.SubmitRequest{Message: "What is 2 + 2?", SessionID: "loop"})
	}

	if !resp.Success {
		t.Fatalf("loop warning must be a successful turn: %+v", resp)
	}
	if resp.Category != domain.CategoryDirect {
		t.Fatalf("category = %q, want DIRECT", resp.Category)
	}
	if resp.Violation != string(domain.ViolationLoopDetected) {
		t.Fatalf("violation = %q, want LOOP_DETECTED", resp.Violation)
	}

	// The warning turn itself is kept in history: 4 turns, 8 entries.
	history, err := o.History(context.Background(), "loop")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 8 {
		t.Fatalf("history length = %d, want 8", len(history))
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.History(context.Background(), "never-existed")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

// gateTool blocks inside Execute until released and records how many
// executions overlap.
type gateTool struct {
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (g *gateTool) Name() string { return "gate" }

func (g *gateTool) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxSeen {
		g.maxSeen = g.inFlight
	}
	g.mu.Unlock()

	g.entered <- struct{}{}
	<-g.release

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return domain.ToolSuccess("done")
}

func TestClearKeepsTurnsSerialized(t *testing.T) {
	gate := &gateTool{entered: make(chan struct{}, 2), release: make(chan struct{})}
	o := newTestOrchestratorWith(t, tool.NewRegistry(gate))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Submit(context.Background(), domain.SubmitRequest{Message: "What is 2 + 2?", SessionID: "s1"})
	}()
	<-gate.entered // first turn is inside the tool

	cleared := make(chan struct{})
	go func() {
		o.Clear(context.Background(), "s1")
		close(cleared)
	}()

	second := make(chan struct{})
	go func() {
		o.Submit(context.Background(), domain.SubmitRequest{Message: "What is 2 + 2?", SessionID: "s1"})
		close(second)
	}()

	// While the first turn holds the session, neither the clear nor the
	// second turn may proceed.
	select {
	case <-cleared:
		t.Fatalf("Clear completed while a turn was in flight")
	case <-gate.entered:
		t.Fatalf("second turn entered the tool while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	wg.Wait()
	<-cleared
	<-second

	gate.mu.Lock()
	max := gate.maxSeen
	gate.mu.Unlock()
	if max != 1 {
		t.Fatalf("turns of one session overlapped: max in flight = %d", max)
	}
}

func TestClearUnknownSessionSucceeds(t *testing.T) {
	o := newTestOrchestrator(t)

	if err := o.Clear(context.Background(), "never-existed"); err != nil {
		t.Fatalf("Clear unknown session: %v", err)
	}
}

func TestClearRemovesHistory(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Submit(context.Background(), domain.SubmitRequest{Message: "What is 1 + 1?", SessionID: "s1"})
	if !resp.Success {
		t.Fatalf("submit failed: %+v", resp)
	}

	if err := o.Clear(context.Background(), "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := o.History(context.Background(), "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("history survived clear: %v", err)
	}
}

func TestSubmitCancelledContextDiscardsTurn(t *testing.T) {
	o := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o.Submit(ctx, domain.SubmitRequest{Message: "What is 3 * 3?", SessionID: "s1"})

	// Nothing committed: the session may not even exist.
	if _, err := o.History(context.Background(), "s1"); err == nil {
		t.Fatalf("turn committed despite cancelled context")
	}
}

func TestHealth(t *testing.T) {
	o := newTestOrchestrator(t)

	status := o.Health(context.Background())
	if status.Status != "ok" || !status.Provider {
		t.Fatalf("unexpected health: %+v", status)
	}
	if status.VectorIndex {
		t.Fatalf("vector index reported healthy with no index wired")
	}
}
