package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"helmsman/internal/domain"
)

// ParseError describes an invalid arithmetic expression.
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid expression %q: %s", e.Expr, e.Reason)
}

// Calculator evaluates arithmetic expressions extracted from the query.
// It is a closed evaluator over numbers, operators, and a small set of
// functions; it never executes anything else.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Execute(ctx context.Context, query string, sess *domain.Session) domain.ToolResult {
	expr := ExtractExpression(query)
	if expr == "" {
		return domain.ToolFailure((&ParseError{Expr: query, Reason: "no arithmetic expression found"}).Error())
	}

	value, err := Evaluate(expr)
	if err != nil {
		return domain.ToolFailure(err.Error())
	}
	return domain.ToolSuccess(FormatNumber(value))
}

// FormatNumber renders integral results without decimals and trims
// trailing zeros otherwise.
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

var calcFuncs = map[string]struct{ minArgs, maxArgs int }{
	"sqrt":  {1, 1},
	"abs":   {1, 1},
	"pow":   {2, 2},
	"min":   {2, -1},
	"max":   {2, -1},
	"round": {1, 1},
}

var calcConsts = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// ExtractExpression pulls the longest arithmetic span out of free text, so
// "What is 128 * 46?" evaluates "128 * 46". Returns "" when the text holds
// no evaluable span.
func ExtractExpression(text string) string {
	tokens := lex(text)

	best := ""
	start := 0
	for start < len(tokens) {
		end := start
		for end < len(tokens) && tokens[end].kind != tokenJunk {
			end++
		}
		if span := strings.TrimSpace(renderSpan(tokens[start:end])); spanEvaluable(tokens[start:end]) && len(span) > len(best) {
			best = span
		}
		if end == start {
			end++
		}
		start = end
	}
	return best
}

// spanEvaluable requires at least one number and, unless it is a lone
// function call, an operator. A bare "46" in prose is not an expression.
func spanEvaluable(span []token) bool {
	hasNumber, hasOperator, hasFunc := false, false, false
	for _, t := range span {
		switch t.kind {
		case tokenNumber:
			hasNumber = true
		case tokenOperator:
			hasOperator = true
		case tokenFunc:
			hasFunc = true
		}
	}
	return (hasNumber || hasFunc) && (hasOperator || hasFunc)
}

func renderSpan(span []token) string {
	var b strings.Builder
	for i, t := range span {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

type tokenKind int

const (
	tokenJunk tokenKind = iota
	tokenNumber
	tokenOperator
	tokenParen
	tokenComma
	tokenFunc
	tokenConst
)

type token struct {
	kind tokenKind
	text string
}

func lex(text string) []token {
	var tokens []token
	words := strings.Fields(text)
	for _, word := range words {
		tokens = append(tokens, lexWord(word)...)
	}
	return tokens
}

// lexWord splits one whitespace-delimited word into expression tokens,
// or returns a single junk token when any part of it is not expression
// material. Trailing sentence punctuation is tolerated.
func lexWord(word string) []token {
	trimmed := strings.TrimRight(word, "?!.,;")
	if trimmed == "" {
		return []token{{kind: tokenJunk, text: word}}
	}

	var tokens []token
	i := 0
	for i < len(trimmed) {
		ch := trimmed[i]
		switch {
		case ch >= '0' && ch <= '9':
			j := i
			for j < len(trimmed) && (trimmed[j] >= '0' && trimmed[j] <= '9' || trimmed[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: trimmed[i:j]})
			i = j
		case ch == '+' || ch == '-' || ch == '/' || ch == '%' || ch == '^':
			tokens = append(tokens, token{kind: tokenOperator, text: string(ch)})
			i++
		case ch == '*':
			if i+1 < len(trimmed) && trimmed[i+1] == '*' {
				tokens = append(tokens, token{kind: tokenOperator, text: "**"})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokenOperator, text: "*"})
				i++
			}
		case ch == '(' || ch == ')':
			tokens = append(tokens, token{kind: tokenParen, text: string(ch)})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ","})
			i++
		case isAlpha(ch):
			j := i
			for j < len(trimmed) && isAlpha(trimmed[j]) {
				j++
			}
			name := strings.ToLower(trimmed[i:j])
			if _, ok := calcFuncs[name]; ok {
				tokens = append(tokens, token{kind: tokenFunc, text: name})
			} else if _, ok := calcConsts[name]; ok {
				tokens = append(tokens, token{kind: tokenConst, text: name})
			} else {
				return []token{{kind: tokenJunk, text: word}}
			}
			i = j
		default:
			return []token{{kind: tokenJunk, text: word}}
		}
	}
	return tokens
}

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}
