package router

import (
	"strings"

	"helmsman/internal/codec"
	"helmsman/internal/domain"
)

const promptHeader = `You are a query classifier. Read the user query and classify it into exactly one category.

Categories:
- CALCULATOR: arithmetic or mathematical expressions to evaluate
- RAG: questions about topics covered by the internal knowledge base
- WEB_SEARCH: questions needing current information from the web (news, recent events, live facts)
- DATETIME: current date or time, or arithmetic between dates
- DIRECT: general knowledge, conversation, or anything that fits no other category

Respond with tagged fields, one per line, nothing else:
<category>ONE OF: CALCULATOR, RAG, WEB_SEARCH, DATETIME, DIRECT</category>
<rationale>brief explanation</rationale>
<confident>yes or no</confident>`

const strictReminder = `Your previous answer could not be parsed. Respond ONLY with the tagged fields shown above. The first line MUST be the <category> field with one of the five labels. No prose, no code fences.`

var fewShot = []struct {
	query    string
	category domain.Category
	reason   string
}{
	{"Calculate 128 * 46", domain.CategoryCalculator, "arithmetic expression"},
	{"Tell me about the architecture docs", domain.CategoryRAG, "knowledge base topic"},
	{"What's in the news about AI today?", domain.CategoryWebSearch, "needs current information"},
	{"How many days between 2024-01-01 and 2024-12-31?", domain.CategoryDatetime, "date arithmetic"},
	{"Who was Albert Einstein?", domain.CategoryDirect, "general knowledge"},
}

// buildPrompt assembles the classification prompt: instruction, few-shot
// examples, a bounded slice of recent turns, and the query itself, with
// the dynamic parts framed in the wire encoding.
func (r *Router) buildPrompt(query string, recent []domain.Turn, strict bool) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nExamples:\n")
	for _, ex := range fewShot {
		m := codec.NewMessage()
		m.Set("query", ex.query)
		m.Set("category", string(ex.category))
		m.Set("rationale", ex.reason)
		b.WriteString(codec.Encode(m))
		b.WriteByte('\n')
	}

	if n := len(recent); n > 0 && r.recentTurns > 0 {
		if n > r.recentTurns {
			recent = recent[n-r.recentTurns:]
		}
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			m := codec.NewMessage()
			m.Set("user", turn.UserText)
			m.Set("assistant", turn.Assistant)
			b.WriteString(codec.Encode(m))
		}
		b.WriteByte('\n')
	}

	if strict {
		b.WriteString(strictReminder)
		b.WriteString("\n\n")
	}

	b.WriteString("Classify this query:\n")
	m := codec.NewMessage()
	m.Set("query", query)
	b.WriteString(codec.Encode(m))
	return b.String()
}
