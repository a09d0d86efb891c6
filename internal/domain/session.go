package domain

import "time"

// Turn is one complete user/assistant exchange within a session.
// Turns are append-only: once created they are never mutated.
type Turn struct {
	TurnID    string    `json:"turn_id"`
	UserText  string    `json:"user_text"`
	Assistant string    `json:"assistant_text"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Session groups the ordered turns of one conversation.
type Session struct {
	SessionID        string     `json:"session_id"`
	CreatedAt        time.Time  `json:"created_at"`
	Turns            []Turn     `json:"turns"`
	TurnCount        int        `json:"turn_count"`
	LastSummarizedAt *time.Time `json:"last_summarized_at,omitempty"`
}

// RecentTurns returns up to n of the most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if s == nil || n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// HistoryEntry is one message of a session history as exposed to clients.
type HistoryEntry struct {
	Role     string   `json:"role"` // user, assistant
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// History flattens the turn sequence into role-tagged entries.
func (s *Session) History() []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(s.Turns)*2)
	for _, t := range s.Turns {
		entries = append(entries,
			HistoryEntry{Role: "user", Text: t.UserText, Category: t.Category},
			HistoryEntry{Role: "assistant", Text: t.Assistant, Category: t.Category},
		)
	}
	return entries
}
