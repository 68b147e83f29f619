// Package policy evaluates the OPA admission policy for new runs.
package policy

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allow  bool
	Reason string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.run_admission.decision"),
		rego.Module("run_admission.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against input. The policy must produce an object
// {allow: bool, reason: string}; an undefined result allows.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true, Reason: "default"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Allow: allow, Reason: reason}, nil
}

// AdmitIdea checks whether a run may be created for idea.
func (e *Engine) AdmitIdea(ctx context.Context, idea string, maxLength int) (Decision, error) {
	return e.Evaluate(ctx, map[string]interface{}{
		"idea":            idea,
		"idea_length":     utf8.RuneCountInString(strings.TrimSpace(idea)),
		"max_idea_length": maxLength,
	})
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package run_admission

import rego.v1

decision := {"allow": false, "reason": "empty idea"} if {
	input.idea_length == 0
} else := {"allow": false, "reason": "idea too long"} if {
	input.max_idea_length > 0
	input.idea_length > input.max_idea_length
} else := {"allow": true, "reason": ""}
`
