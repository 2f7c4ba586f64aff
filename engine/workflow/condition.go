package workflow

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// Operators
// -----------------------------------------------------------------------------

type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpStartsWith     Operator = "starts_with"
	OpEndsWith       Operator = "ends_with"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "not_exists"
	OpMatches        Operator = "matches"
)

var knownOperators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {},
	OpGreaterThan: {}, OpLessThan: {},
	OpGreaterOrEqual: {}, OpLessOrEqual: {},
	OpContains: {}, OpNotContains: {},
	OpStartsWith: {}, OpEndsWith: {},
	OpIn: {}, OpNotIn: {},
	OpExists: {}, OpNotExists: {},
	OpMatches: {},
}

// unaryOperators legitimately take no value.
var unaryOperators = map[Operator]struct{}{
	OpExists:    {},
	OpNotExists: {},
}

// -----------------------------------------------------------------------------
// Condition
// -----------------------------------------------------------------------------

// Condition is the recursive condition grammar shared by conditional steps,
// executeIf guards and validation rules. A condition is one of:
//
//   - a raw string expression ("output.count > 3"), evaluated by the CEL
//     evaluator at runtime;
//   - a simple condition: field, operator and (for binary operators) value;
//   - a complex condition: and/or over child conditions, or a single not.
//
// The JSON forms are a bare string or an object; UnmarshalJSON accepts both.
// HasValue records whether the "value" key was present at all, since null is
// a legal comparison value.
type Condition struct {
	Expr string
	// fromString records that the JSON form was a bare string, so an empty
	// expression can be reported as such instead of as a malformed object.
	fromString bool

	Field    string
	Operator Operator
	Value    any
	HasValue bool

	And []Condition
	Or  []Condition
	Not *Condition
}

// IsExpr reports whether the condition is a raw string expression.
func (c *Condition) IsExpr() bool {
	return c.Expr != ""
}

// IsSimple reports whether any simple-condition field is present.
func (c *Condition) IsSimple() bool {
	return c.Field != "" || c.Operator != "" || c.HasValue
}

// IsComplex reports whether any logical combinator is present.
func (c *Condition) IsComplex() bool {
	return c.And != nil || c.Or != nil || c.Not != nil
}

type conditionJSON struct {
	Field    string          `json:"field,omitempty"`
	Operator Operator        `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	And      []Condition     `json:"and,omitempty"`
	Or       []Condition     `json:"or,omitempty"`
	Not      *Condition      `json:"not,omitempty"`
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var expr string
	if err := json.Unmarshal(data, &expr); err == nil {
		*c = Condition{Expr: expr, fromString: true}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition must be a string or an object: %w", err)
	}
	var obj conditionJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	cond := Condition{
		Field:    obj.Field,
		Operator: obj.Operator,
		And:      obj.And,
		Or:       obj.Or,
		Not:      obj.Not,
	}
	if rawValue, ok := raw["value"]; ok {
		cond.HasValue = true
		if err := json.Unmarshal(rawValue, &cond.Value); err != nil {
			return fmt.Errorf("invalid condition value: %w", err)
		}
	}
	*c = cond
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	if c.Expr != "" || c.fromString {
		return json.Marshal(c.Expr)
	}
	out := make(map[string]any)
	if c.Field != "" {
		out["field"] = c.Field
	}
	if c.Operator != "" {
		out["operator"] = c.Operator
	}
	if c.HasValue {
		out["value"] = c.Value
	}
	if c.And != nil {
		out["and"] = c.And
	}
	if c.Or != nil {
		out["or"] = c.Or
	}
	if c.Not != nil {
		out["not"] = c.Not
	}
	return json.Marshal(out)
}

// -----------------------------------------------------------------------------
// Structural validation
// -----------------------------------------------------------------------------

// ValidateCondition checks a condition's structure and returns one message
// per problem found. Raw string expressions are only checked for presence:
// their syntax is owned by the expression evaluator, and rejecting them here
// would couple validation to one expression dialect.
func ValidateCondition(cond *Condition, path string) []string {
	if cond == nil {
		return []string{fmt.Sprintf("%s: condition is required", path)}
	}
	if cond.IsExpr() {
		return nil
	}
	if cond.fromString {
		return []string{fmt.Sprintf("%s: condition expression cannot be empty", path)}
	}
	var errs []string
	simple := cond.IsSimple()
	complexCond := cond.IsComplex()
	if !simple && !complexCond {
		return []string{fmt.Sprintf("%s: condition must have field/operator/value or and/or/not", path)}
	}
	if simple {
		errs = append(errs, validateSimpleCondition(cond, path)...)
	}
	if complexCond {
		errs = append(errs, validateComplexCondition(cond, path)...)
	}
	return errs
}

func validateSimpleCondition(cond *Condition, path string) []string {
	var errs []string
	if cond.Field == "" {
		errs = append(errs, fmt.Sprintf("%s: condition field is required", path))
	}
	if cond.Operator == "" {
		errs = append(errs, fmt.Sprintf("%s: condition operator is required", path))
	} else if _, ok := knownOperators[cond.Operator]; !ok {
		errs = append(errs, fmt.Sprintf("%s: unknown condition operator %q", path, cond.Operator))
	}
	// value may legitimately be absent for unary operators like exists
	return errs
}

func validateComplexCondition(cond *Condition, path string) []string {
	var errs []string
	if cond.And != nil {
		if len(cond.And) == 0 {
			errs = append(errs, fmt.Sprintf("%s.and: must be a non-empty array", path))
		}
		for i := range cond.And {
			errs = append(errs, ValidateCondition(&cond.And[i], fmt.Sprintf("%s.and[%d]", path, i))...)
		}
	}
	if cond.Or != nil {
		if len(cond.Or) == 0 {
			errs = append(errs, fmt.Sprintf("%s.or: must be a non-empty array", path))
		}
		for i := range cond.Or {
			errs = append(errs, ValidateCondition(&cond.Or[i], fmt.Sprintf("%s.or[%d]", path, i))...)
		}
	}
	if cond.Not != nil {
		errs = append(errs, ValidateCondition(cond.Not, path+".not")...)
	}
	return errs
}
