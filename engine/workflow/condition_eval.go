package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Evaluator evaluates conditions against a workflow execution context. The
// context is the document of inputs and prior step outputs; simple-condition
// fields are dotted gjson paths into it, raw string expressions go through
// the CEL evaluator.
type Evaluator struct {
	cel *CELEvaluator
}

func NewEvaluator() (*Evaluator, error) {
	celEval, err := NewCELEvaluator()
	if err != nil {
		return nil, err
	}
	return &Evaluator{cel: celEval}, nil
}

// EvalCondition evaluates cond against data. Mixed conditions (simple and
// logical fields on one node) evaluate as the conjunction of both halves,
// matching how they are validated.
func (e *Evaluator) EvalCondition(ctx context.Context, cond *Condition, data map[string]any) (bool, error) {
	if cond == nil {
		return false, fmt.Errorf("condition is required")
	}
	if cond.IsExpr() {
		return e.cel.Evaluate(ctx, cond.Expr, data)
	}
	doc, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to encode condition context: %w", err)
	}
	return e.eval(ctx, cond, data, doc)
}

func (e *Evaluator) eval(ctx context.Context, cond *Condition, data map[string]any, doc []byte) (bool, error) {
	if cond.IsExpr() {
		return e.cel.Evaluate(ctx, cond.Expr, data)
	}
	simple, complexCond := cond.IsSimple(), cond.IsComplex()
	if !simple && !complexCond {
		return false, fmt.Errorf("condition has neither simple nor logical fields")
	}
	result := true
	if simple {
		ok, err := evalSimple(cond, doc)
		if err != nil {
			return false, err
		}
		result = result && ok
	}
	if complexCond {
		ok, err := e.evalComplex(ctx, cond, data, doc)
		if err != nil {
			return false, err
		}
		result = result && ok
	}
	return result, nil
}

func (e *Evaluator) evalComplex(ctx context.Context, cond *Condition, data map[string]any, doc []byte) (bool, error) {
	if cond.And != nil {
		for i := range cond.And {
			ok, err := e.eval(ctx, &cond.And[i], data, doc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if cond.Or != nil {
		for i := range cond.Or {
			ok, err := e.eval(ctx, &cond.Or[i], data, doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	ok, err := e.eval(ctx, cond.Not, data, doc)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func evalSimple(cond *Condition, doc []byte) (bool, error) {
	field := gjson.GetBytes(doc, cond.Field)
	switch cond.Operator {
	case OpExists:
		return field.Exists(), nil
	case OpNotExists:
		return !field.Exists(), nil
	case OpEquals:
		return equalsValue(field, cond.Value), nil
	case OpNotEquals:
		return !equalsValue(field, cond.Value), nil
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return compareNumeric(cond.Operator, field, cond.Value)
	case OpContains:
		return containsValue(field, cond.Value), nil
	case OpNotContains:
		return !containsValue(field, cond.Value), nil
	case OpStartsWith:
		return strings.HasPrefix(field.String(), fmt.Sprint(cond.Value)), nil
	case OpEndsWith:
		return strings.HasSuffix(field.String(), fmt.Sprint(cond.Value)), nil
	case OpIn:
		return inValue(field, cond.Value), nil
	case OpNotIn:
		return !inValue(field, cond.Value), nil
	case OpMatches:
		pattern, ok := cond.Value.(string)
		if !ok {
			return false, fmt.Errorf("matches operator requires a string pattern, got %T", cond.Value)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid matches pattern %q: %w", pattern, err)
		}
		return re.MatchString(field.String()), nil
	default:
		return false, fmt.Errorf("unknown condition operator %q", cond.Operator)
	}
}

func equalsValue(field gjson.Result, value any) bool {
	switch v := value.(type) {
	case nil:
		return field.Type == gjson.Null || !field.Exists()
	case bool:
		return field.IsBool() && field.Bool() == v
	case float64:
		return field.Type == gjson.Number && field.Num == v
	case int:
		return field.Type == gjson.Number && field.Num == float64(v)
	case string:
		return field.Type == gjson.String && field.Str == v
	default:
		return field.String() == fmt.Sprint(value)
	}
}

func compareNumeric(op Operator, field gjson.Result, value any) (bool, error) {
	if field.Type != gjson.Number {
		return false, nil
	}
	var threshold float64
	switch v := value.(type) {
	case float64:
		threshold = v
	case int:
		threshold = float64(v)
	default:
		return false, fmt.Errorf("%s operator requires a numeric value, got %T", op, value)
	}
	left := field.Num
	switch op {
	case OpGreaterThan:
		return left > threshold, nil
	case OpLessThan:
		return left < threshold, nil
	case OpGreaterOrEqual:
		return left >= threshold, nil
	default:
		return left <= threshold, nil
	}
}

func containsValue(field gjson.Result, value any) bool {
	if field.IsArray() {
		for _, elem := range field.Array() {
			if equalsValue(elem, value) {
				return true
			}
		}
		return false
	}
	return strings.Contains(field.String(), fmt.Sprint(value))
}

func inValue(field gjson.Result, value any) bool {
	values, ok := value.([]any)
	if !ok {
		return false
	}
	for _, candidate := range values {
		if equalsValue(field, candidate) {
			return true
		}
	}
	return false
}
