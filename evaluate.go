package prop

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("prop: evaluator not configured")

// Evaluate executes expr against a snapshot of the current value using the
// configured evaluator and wraps the result.
func (p *Property[T]) Evaluate(expr string) (Response[any], error) {
	return p.EvaluateWith(EvalContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to a snapshot of the
// current value when ctx.Snapshot is nil.
func (p *Property[T]) EvaluateWith(ctx EvalContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := p.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		if value, ok := p.Get(); ok {
			ctx.Snapshot = snapshotBinding(value)
		}
	}
	if ctx.Key == "" {
		ctx.Key = p.key
	}
	ctx = ctx.withDefaults()

	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError("", expr, ctx.keyLabel(), evalErr)
	p.cfg.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Key:      ctx.keyLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// resolveEvaluator returns the configured evaluator, lazily building and
// memoizing the expr default under the property lock on first use.
func (p *Property[T]) resolveEvaluator() (Evaluator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.evaluator != nil {
		return p.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := p.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := p.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	p.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func (p *Property[T]) currentEvaluator() Evaluator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.evaluator
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*prop.exprEvaluator":
		return "expr"
	case "*prop.celEvaluator":
		return "cel"
	case "*prop.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}

// snapshotBinding converts a typed value into the shape expression
// environments consume: maps pass through, everything else is round-tripped
// through JSON into a map so field access works across engines. Values that
// cannot round-trip are bound as-is.
func snapshotBinding(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	}
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return value
	}
	return out
}
