// Package policy evaluates input-guard decisions with OPA rego. The
// injection signatures and the length rule live in the policy document so
// they can be replaced without recompiling.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of a guard policy evaluation.
type Decision struct {
	Allow     bool
	Violation string // TOO_LONG or INJECTION when blocked
}

// GuardInput is the document evaluated against the policy.
type GuardInput struct {
	Text      string   `json:"text"`
	Length    int      `json:"length"`
	MaxLength int      `json:"max_length"`
	Patterns  []string `json:"patterns,omitempty"` // extra injection regexes from config
}

// Engine is a prepared rego query over the input guard policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the given policy content and prepares the guard query.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.input_guard.result"),
		rego.Module("input_guard.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the guard policy over one input text.
func (e *Engine) Evaluate(ctx context.Context, in GuardInput) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The default policy always produces a result; treat silence as allow.
		return Decision{Allow: true}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{Allow: true}, nil
	}

	d := Decision{Allow: true}
	if allow, ok := obj["allow"].(bool); ok {
		d.Allow = allow
	}
	if v, ok := obj["violation"].(string); ok {
		d.Violation = v
	}
	return d, nil
}

// DefaultPolicy carries the built-in injection signatures and length rule.
const DefaultPolicy = `
package input_guard

import rego.v1

builtin_patterns := [
	"(?i)<script[^>]*>",
	"(?i)</script>",
	"(?i)javascript:",
	"(?i)\\bon\\w+\\s*=",
	"(?i)union\\s+select",
	"(?i)drop\\s+table",
	"(?i);\\s*--",
	"(?i)'\\s+or\\s+'1'\\s*=\\s*'1",
]

default result := {"allow": true}

result := {"allow": false, "violation": "TOO_LONG"} if {
	input.length > input.max_length
}

result := {"allow": false, "violation": "INJECTION"} if {
	input.length <= input.max_length
	some p in builtin_patterns
	regex.match(p, input.text)
}

result := {"allow": false, "violation": "INJECTION"} if {
	input.length <= input.max_length
	some p in input.patterns
	regex.match(p, input.text)
}
`
