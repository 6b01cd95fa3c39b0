package usecase

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
)

// PublishRule is a compiled boolean CEL expression over the variable doc.
type PublishRule struct {
	Expression string
	program    cel.Program
}

// PublishRules guard commits: every rule must evaluate to true for the
// sanitized document before it is written.
type PublishRules struct {
	rules []PublishRule
}

// CompilePublishRules compiles each expression. Blank expressions are skipped.
func CompilePublishRules(expressions []string) (*PublishRules, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("doc", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	out := &PublishRules{}
	for _, expr := range expressions {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, errors.NewConfigurationError("invalid publish rule").
				WithCause(fmt.Errorf("CEL compilation error: %w", issues.Err())).
				WithDetail("rule", expr)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL program: %w", err)
		}
		out.rules = append(out.rules, PublishRule{Expression: expr, program: program})
	}
	return out, nil
}

// Len returns the number of active rules.
func (p *PublishRules) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Check evaluates every rule against doc and returns the first violation.
// A rule that fails to evaluate, for example by reading a missing key,
// counts as a violation.
func (p *PublishRules) Check(doc model.Document) error {
	if p == nil {
		return nil
	}
	vars := map[string]interface{}{"doc": map[string]interface{}(doc)}
	for _, rule := range p.rules {
		out, _, err := rule.program.Eval(vars)
		if err != nil {
			return violation(rule, fmt.Sprintf("CEL evaluation error: %v", err))
		}
		result, ok := out.Value().(bool)
		if !ok {
			return violation(rule, "CEL expression did not return boolean value")
		}
		if !result {
			return violation(rule, "rule evaluated to false")
		}
	}
	return nil
}

func violation(rule PublishRule, reason string) error {
	return errors.NewValidationError("publish rule rejected the document").
		WithCause(errors.ErrPublishRuleViolation).
		WithDetail("rule", rule.Expression).
		WithDetail("reason", reason)
}
