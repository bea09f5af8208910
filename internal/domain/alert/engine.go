// Package alert provides CEL-based alert rules evaluated against ingested
// log entries. A matching rule opens an incident for the entry's service.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// maxExpressionLength is the maximum allowed length for rule conditions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit to prevent cost-exhaustion.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum allowed parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout is the maximum time allowed for a single rule evaluation.
const evalTimeout = 5 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked.
const interruptCheckFreq = 100

// Rule is a log alert rule. Condition is a CEL expression over the
// variables level, service, and message; when it evaluates to true for an
// ingested entry, an incident with the given severity is opened.
type Rule struct {
	Name      string
	Condition string
	Severity  monitor.Severity
}

// CompiledRule pairs a rule with its compiled CEL program.
type CompiledRule struct {
	Rule
	program cel.Program
}

// Engine compiles and evaluates alert rules.
type Engine struct {
	env   *cel.Env
	rules []CompiledRule
}

// newLogEnvironment creates a CEL environment exposing the log entry fields.
func newLogEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("level", cel.StringType),
		cel.Variable("service", cel.StringType),
		cel.Variable("message", cel.StringType),
	)
}

// NewEngine compiles the given rules. A rule that fails validation aborts
// engine construction; bad rules are configuration errors, not runtime ones.
func NewEngine(rules []Rule) (*Engine, error) {
	env, err := newLogEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create alert environment: %w", err)
	}

	e := &Engine{env: env}
	for _, r := range rules {
		if err := validateExpression(r.Condition); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		prg, err := e.compile(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		e.rules = append(e.rules, CompiledRule{Rule: r, program: prg})
	}
	return e, nil
}

// compile parses and type-checks a condition, returning a compiled program.
func (e *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to a boolean, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}
	return prg, nil
}

// validateExpression enforces safety limits before compilation.
func validateExpression(expr string) error {
	if expr == "" {
		return errors.New("condition is empty")
	}
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("condition too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}

	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("condition nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// Match evaluates every rule against the log entry and returns the rules
// that fire. serviceName is exposed as the "service" variable; the entry's
// ServiceID is an opaque reference the operator would not write rules over.
// A rule whose evaluation errors is skipped, not fatal.
func (e *Engine) Match(entry *monitor.LogEntry, serviceName string) []Rule {
	activation := map[string]any{
		"level":   string(entry.Level),
		"service": serviceName,
		"message": entry.Message,
	}

	var matched []Rule
	for _, cr := range e.rules {
		ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
		result, _, err := cr.program.ContextEval(ctx, activation)
		cancel()
		if err != nil {
			continue
		}
		if fired, ok := result.Value().(bool); ok && fired {
			matched = append(matched, cr.Rule)
		}
	}
	return matched
}

// Rules returns the compiled rule set.
func (e *Engine) Rules() []CompiledRule {
	return e.rules
}
