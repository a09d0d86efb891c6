package guardrail

import (
	"context"
	"strings"
	"testing"
	"time"

	"helmsman/internal/domain"
	"helmsman/policy"
)

func newInputGuard(t *testing.T) *Input {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return NewInput(engine, 10000, nil, nil)
}

func TestInputPass(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), "What is 128 * 46?")
	if v.Outcome != domain.OutcomePass {
		t.Fatalf("expected PASS, got %+v", v)
	}
}

func TestInputRejectsEmpty(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), "   \n  ")
	if !v.Rejected() || !v.Has(domain.ViolationEmptyInput) {
		t.Fatalf("expected EMPTY_INPUT reject, got %+v", v)
	}
}

func TestInputRejectsTooLong(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), strings.Repeat("a", 10001))
	if !v.Rejected() || !v.Has(domain.ViolationTooLong) {
		t.Fatalf("expected TOO_LONG reject, got %+v", v)
	}
}

func TestInputLengthCountsCharactersNotBytes(t *testing.T) {
	g := newInputGuard(t)
	// 6000 two-byte runes: 12000 bytes but well under the 10000-character cap.
	v := g.Check(context.Background(), strings.Repeat("ü", 6000))
	if v.Rejected() {
		t.Fatalf("multibyte text under the character limit rejected: %+v", v)
	}

	if v := g.Check(context.Background(), strings.Repeat("ü", 10001)); !v.Has(domain.ViolationTooLong) {
		t.Fatalf("expected TOO_LONG past the character limit, got %+v", v)
	}

	// Same measurement without the policy engine.
	g = NewInput(nil, 10, nil, nil)
	if v := g.Check(context.Background(), strings.Repeat("é", 10)); v.Rejected() {
		t.Fatalf("degraded length check counted bytes: %+v", v)
	}
}

func TestInputRejectsInjection(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), "hi <script>alert('x')</script>")
	if !v.Rejected() || !v.Has(domain.ViolationInjection) {
		t.Fatalf("expected INJECTION reject, got %+v", v)
	}
}

func TestInputSanitizesControlCharacters(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), "hello\x00world\x07")
	if v.Outcome != domain.OutcomeSanitized {
		t.Fatalf("expected SANITIZED, got %+v", v)
	}
	if v.Sanitized != "helloworld" {
		t.Fatalf("unexpected sanitized text: %q", v.Sanitized)
	}
}

func TestInputSanitizesSurroundingWhitespace(t *testing.T) {
	g := newInputGuard(t)
	v := g.Check(context.Background(), "  hello  ")
	if v.Outcome != domain.OutcomeSanitized || v.Sanitized != "hello" {
		t.Fatalf("expected trimmed SANITIZED, got %+v", v)
	}
}

func TestInputDegradesWithoutEngine(t *testing.T) {
	g := NewInput(nil, 10, nil, nil)
	if v := g.Check(context.Background(), "short"); v.Outcome != domain.OutcomePass {
		t.Fatalf("expected PASS without engine, got %+v", v)
	}
	if v := g.Check(context.Background(), "much much too long"); !v.Has(domain.ViolationTooLong) {
		t.Fatalf("expected TOO_LONG without engine, got %+v", v)
	}
}

func TestOutputRejectsEmptyResponse(t *testing.T) {
	g := NewOutput(1024)
	v := g.Check(domain.ToolSuccess("   "))
	if !v.Rejected() || !v.Has(domain.ViolationEmptyResponse) {
		t.Fatalf("expected EMPTY_RESPONSE reject, got %+v", v)
	}
}

func TestOutputPassesCompleteResponse(t *testing.T) {
	g := NewOutput(1024)
	v := g.Check(domain.ToolSuccess("The answer is 5888."))
	if v.Outcome != domain.OutcomePass {
		t.Fatalf("expected PASS, got %+v", v)
	}
}

func TestOutputFlagsTruncation(t *testing.T) {
	// Token ceiling 16 -> character ceiling 64; 60 chars without terminal
	// punctuation is inside the truncation band.
	g := NewOutput(16)
	long := strings.Repeat("words and more ", 4) // 60 chars, no terminal punctuation
	v := g.Check(domain.ToolSuccess(long))
	if v.Outcome != domain.OutcomeSanitized || !v.Has(domain.ViolationTruncated) {
		t.Fatalf("expected TRUNCATED sanitize, got %+v", v)
	}
	if !strings.Contains(v.Sanitized, "cut short") {
		t.Fatalf("expected truncation notice, got %q", v.Sanitized)
	}
}

func TestOutputShortUnpunctuatedPasses(t *testing.T) {
	g := NewOutput(1024)
	v := g.Check(domain.ToolSuccess("42"))
	if v.Outcome != domain.OutcomePass {
		t.Fatalf("short responses are not truncation candidates: %+v", v)
	}
}

func TestOutputToolFailureBecomesApology(t *testing.T) {
	g := NewOutput(1024)
	v := g.Check(domain.ToolFailure("connection refused"))
	if v.Outcome != domain.OutcomeSanitized {
		t.Fatalf("expected SANITIZED apology, got %+v", v)
	}
	if strings.Contains(v.Sanitized, "connection refused") {
		t.Fatalf("diagnostic detail leaked to the user: %q", v.Sanitized)
	}
}

func sessionWithRepeats(query string, category domain.Category, n int) *domain.Session {
	sess := &domain.Session{SessionID: "s1", CreatedAt: time.Now()}
	for i := 0; i < n; i++ {
		sess.Turns = append(sess.Turns, domain.Turn{
			UserText: query, Assistant: "a", Category: category, CreatedAt: time.Now(),
		})
	}
	sess.TurnCount = n
	return sess
}

func TestConversationLoopDetected(t *testing.T) {
	g := NewConversation(6, 3, 25)

	// Third repeat in the window is still below the threshold.
	sess := sessionWithRepeats("same question", domain.CategoryDirect, 2)
	if v := g.Check(sess, "same question", domain.CategoryDirect); v.Rejected() {
		t.Fatalf("threshold not reached yet: %+v", v)
	}

	// The fourth identical submission sees three prior repeats.
	sess = sessionWithRepeats("same question", domain.CategoryDirect, 3)
	v := g.Check(sess, "same question", domain.CategoryDirect)
	if !v.Rejected() || !v.Has(domain.ViolationLoopDetected) {
		t.Fatalf("expected LOOP_DETECTED, got %+v", v)
	}
}

func TestConversationLoopRequiresSameCategory(t *testing.T) {
	g := NewConversation(6, 3, 25)
	sess := sessionWithRepeats("same question", domain.CategoryDirect, 3)
	v := g.Check(sess, "same question", domain.CategoryCalculator)
	if v.Rejected() {
		t.Fatalf("different category must not count toward the loop: %+v", v)
	}
}

func TestConversationWindowBoundsLookback(t *testing.T) {
	g := NewConversation(2, 3, 25)
	sess := sessionWithRepeats("same question", domain.CategoryDirect, 5)
	v := g.Check(sess, "same question", domain.CategoryDirect)
	if v.Rejected() {
		t.Fatalf("only 2 turns are in the window, expected pass: %+v", v)
	}
}

func TestConversationSummarizeDue(t *testing.T) {
	g := NewConversation(6, 3, 10)
	sess := sessionWithRepeats("q", domain.CategoryDirect, 3)
	sess.TurnCount = 12
	v := g.Check(sess, "another question", domain.CategoryDirect)
	if v.Rejected() {
		t.Fatalf("SUMMARIZE_DUE is advisory, got reject: %+v", v)
	}
	if !v.Has(domain.ViolationSummarizeDue) {
		t.Fatalf("expected SUMMARIZE_DUE advisory, got %+v", v)
	}
}

func TestConversationSummarizeResetByMarker(t *testing.T) {
	g := NewConversation(6, 3, 10)

	sess := sessionWithRepeats("q", domain.CategoryDirect, 3)
	sess.TurnCount = 12
	mark := time.Now().Add(time.Minute)
	sess.LastSummarizedAt = &mark
	v := g.Check(sess, "another question", domain.CategoryDirect)
	if v.Has(domain.ViolationSummarizeDue) {
		t.Fatalf("advisory must reset after summarization, got %+v", v)
	}

	// Turns accrued after the marker count again.
	g = NewConversation(6, 3, 3)
	mark = time.Now().Add(-time.Minute)
	sess = sessionWithRepeats("q", domain.CategoryDirect, 3)
	sess.TurnCount = 30
	sess.LastSummarizedAt = &mark
	v = g.Check(sess, "another question", domain.CategoryDirect)
	if !v.Has(domain.ViolationSummarizeDue) {
		t.Fatalf("expected SUMMARIZE_DUE from turns after the marker, got %+v", v)
	}
}

func TestConversationNilSession(t *testing.T) {
	g := NewConversation(6, 3, 25)
	if v := g.Check(nil, "first message", domain.CategoryDirect); v.Outcome != domain.OutcomePass {
		t.Fatalf("expected PASS for fresh session, got %+v", v)
	}
}
