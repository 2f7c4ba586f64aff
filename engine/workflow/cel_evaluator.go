package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/cel-go/cel"
)

const (
	defaultCostLimit        = 1000
	interruptCheckFrequency = 100
	programCacheNumCounters = 10_000
	programCacheMaxCost     = 1_000
	programCacheBufferItems = 64
)

// CELEvaluator evaluates raw string condition expressions against workflow
// context data. Compiled programs are cached so hot expressions (executeIf
// guards evaluated once per loop iteration) compile only once; a cost limit
// bounds how much work any single expression can do.
type CELEvaluator struct {
	env          *cel.Env
	costLimit    uint64
	programCache *ristretto.Cache[string, cel.Program]
}

type CELOption func(*CELEvaluator)

// WithCostLimit overrides the default expression cost limit.
func WithCostLimit(limit uint64) CELOption {
	return func(e *CELEvaluator) {
		e.costLimit = limit
	}
}

func NewCELEvaluator(opts ...CELOption) (*CELEvaluator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, cel.Program]{
		NumCounters: programCacheNumCounters,
		MaxCost:     programCacheMaxCost,
		BufferItems: programCacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}
	evaluator := &CELEvaluator{
		env:          env,
		costLimit:    defaultCostLimit,
		programCache: cache,
	}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator, nil
}

// Evaluate compiles (or reuses) the expression and evaluates it against the
// given data; every top-level key of data is visible as a variable. The
// expression must produce a boolean.
func (e *CELEvaluator) Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, fmt.Errorf("expression cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	program, err := e.program(expression, data)
	if err != nil {
		return false, err
	}
	out, _, err := program.ContextEval(ctx, data)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must evaluate to a boolean, got %T", expression, out.Value())
	}
	return result, nil
}

func (e *CELEvaluator) program(expression string, data map[string]any) (cel.Program, error) {
	vars := make([]string, 0, len(data))
	for name := range data {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	cacheKey := expression + "\x00" + strings.Join(vars, ",")
	if program, ok := e.programCache.Get(cacheKey); ok {
		return program, nil
	}
	declarations := make([]cel.EnvOption, 0, len(vars))
	for _, name := range vars {
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}
	env, err := e.env.Extend(declarations...)
	if err != nil {
		return nil, fmt.Errorf("failed to extend CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", expression, issues.Err())
	}
	program, err := env.Program(ast,
		cel.CostLimit(e.costLimit),
		cel.InterruptCheckFrequency(interruptCheckFrequency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %q: %w", expression, err)
	}
	e.programCache.Set(cacheKey, program, 1)
	return program, nil
}

// ClearCache drops all cached programs.
func (e *CELEvaluator) ClearCache() {
	e.programCache.Clear()
}
