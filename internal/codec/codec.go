// Package codec implements the tagged-text encoding exchanged with the
// language model. One field per line, <key>value</key>, insertion order
// preserved. The format replaces JSON for model I/O because models produce
// fewer malformed responses with it.
package codec

import (
	"fmt"
	"strings"
)

// DecodeError describes why a payload failed to decode.
type DecodeError struct {
	Line   int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decode error at line %d: %s", e.Line, e.Reason)
}

// Message is an ordered sequence of unique field name/value pairs.
type Message struct {
	keys   []string
	values map[string]string
}

// NewMessage returns an empty message.
func NewMessage() *Message {
	return &Message{values: make(map[string]string)}
}

// Set adds a field or overwrites an existing one without changing its position.
func (m *Message) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *Message) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of fields.
func (m *Message) Len() int {
	return len(m.keys)
}

// Fields returns the field names in insertion order.
func (m *Message) Fields() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Equal reports whether two messages hold the same fields in the same order.
func (m *Message) Equal(other *Message) bool {
	if other == nil || len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// unescaper reverses escaper. &amp; last so that "&amp;lt;" round-trips.
var unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

// Encode serializes the message, one <key>value</key> line per field.
// Reserved characters in values are always escaped, so the output is
// guaranteed to decode back to an equivalent message.
func Encode(m *Message) string {
	var b strings.Builder
	for _, k := range m.keys {
		b.WriteByte('<')
		b.WriteString(k)
		b.WriteByte('>')
		b.WriteString(escaper.Replace(m.values[k]))
		b.WriteString("</")
		b.WriteString(k)
		b.WriteString(">\n")
	}
	return b.String()
}

// Decode parses tagged text into a message. Blank lines and whitespace
// around a line are ignored. Any line that is not a well-formed
// <key>value</key> pair fails with a DecodeError. When a key repeats the
// first occurrence wins and later ones are skipped.
func Decode(text string) (*Message, error) {
	msg := NewMessage()
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		key, value, err := parseLine(line, i+1)
		if err != nil {
			return nil, err
		}
		if _, ok := msg.Get(key); ok {
			continue
		}
		msg.Set(key, unescaper.Replace(value))
	}
	return msg, nil
}

func parseLine(line string, lineno int) (key, value string, err error) {
	if line[0] != '<' {
		return "", "", &DecodeError{Line: lineno, Reason: "expected opening tag"}
	}
	end := strings.IndexByte(line, '>')
	if end < 0 {
		return "", "", &DecodeError{Line: lineno, Reason: "unterminated opening tag"}
	}
	key = line[1:end]
	if !validKey(key) {
		return "", "", &DecodeError{Line: lineno, Reason: fmt.Sprintf("invalid key %q", key)}
	}
	rest := line[end+1:]
	closing := "</" + key + ">"
	if !strings.HasSuffix(rest, closing) {
		// Distinguish a mismatched close tag from a missing one.
		if idx := strings.LastIndex(rest, "</"); idx >= 0 && strings.HasSuffix(rest, ">") {
			got := rest[idx+2 : len(rest)-1]
			return "", "", &DecodeError{Line: lineno, Reason: fmt.Sprintf("close tag %q does not match open tag %q", got, key)}
		}
		return "", "", &DecodeError{Line: lineno, Reason: fmt.Sprintf("missing close tag for %q", key)}
	}
	value = rest[:len(rest)-len(closing)]
	if strings.ContainsAny(value, "<>") {
		return "", "", &DecodeError{Line: lineno, Reason: "unescaped delimiter in value"}
	}
	return key, value, nil
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
