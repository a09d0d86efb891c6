package guardrail

import (
	"helmsman/internal/domain"
)

const msgLoopDetected = "We seem to be going in circles. Could you try asking something different?"

// Conversation inspects cross-turn state: repeated queries and
// conversations due for summarization.
type Conversation struct {
	window         int // recent turns to inspect
	loopThreshold  int // identical (query, category) repeats before LOOP_DETECTED
	summarizeAfter int // turn count before SUMMARIZE_DUE
}

// NewConversation creates the conversation guardrail.
func NewConversation(window, loopThreshold, summarizeAfter int) *Conversation {
	if window <= 0 {
		window = 6
	}
	if loopThreshold <= 0 {
		loopThreshold = 3
	}
	if summarizeAfter <= 0 {
		summarizeAfter = 25
	}
	return &Conversation{window: window, loopThreshold: loopThreshold, summarizeAfter: summarizeAfter}
}

// Check inspects the session's recent turn window for the incoming
// (query, category) pair. LOOP_DETECTED rejects; SUMMARIZE_DUE is a
// non-fatal advisory and may accompany any outcome.
func (g *Conversation) Check(sess *domain.Session, query string, category domain.Category) domain.Verdict {
	var codes []domain.ViolationCode

	if sess != nil && g.turnsSinceSummary(sess) >= g.summarizeAfter {
		codes = append(codes, domain.ViolationSummarizeDue)
	}

	if g.repeats(sess, query, category) >= g.loopThreshold {
		return domain.Reject(msgLoopDetected, append([]domain.ViolationCode{domain.ViolationLoopDetected}, codes...)...)
	}

	if len(codes) > 0 {
		return domain.Verdict{Outcome: domain.OutcomePass, Violations: codes}
	}
	return domain.Pass()
}

// turnsSinceSummary counts the turns accumulated after the last
// summarization marker; an unsummarized session counts all of them.
func (g *Conversation) turnsSinceSummary(sess *domain.Session) int {
	if sess.LastSummarizedAt == nil {
		return sess.TurnCount
	}
	count := 0
	for _, turn := range sess.Turns {
		if turn.CreatedAt.After(*sess.LastSummarizedAt) {
			count++
		}
	}
	return count
}

func (g *Conversation) repeats(sess *domain.Session, query string, category domain.Category) int {
	if sess == nil {
		return 0
	}
	count := 0
	for _, turn := range sess.RecentTurns(g.window) {
		if turn.UserText == query && turn.Category == category {
			count++
		}
	}
	return count
}
