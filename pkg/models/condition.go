// Package models provides condition evaluation for flow branching.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is one of the fixed comparison operators supported by condition nodes.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorContains    Operator = "contains"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Condition compares a stored session variable against a literal value.
type Condition struct {
	ID       string   `json:"id"`
	Variable string   `json:"variable" validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals contains starts_with ends_with greater_than less_than"`
	Value    string   `json:"value"`
}

// Evaluate reports whether the condition holds for the given variable bag.
// A missing variable is treated as the empty string. Numeric operators parse
// both operands as floats; non-numeric input evaluates to false, never errors.
func (c Condition) Evaluate(variables map[string]any) bool {
	stored := stringValue(variables[c.Variable])

	switch c.Operator {
	case OperatorEquals:
		return stored == c.Value
	case OperatorContains:
		return strings.Contains(stored, c.Value)
	case OperatorStartsWith:
		return strings.HasPrefix(stored, c.Value)
	case OperatorEndsWith:
		return strings.HasSuffix(stored, c.Value)
	case OperatorGreaterThan:
		left, right, ok := numericOperands(stored, c.Value)

		return ok && left > right
	case OperatorLessThan:
		left, right, ok := numericOperands(stored, c.Value)

		return ok && left < right
	default:
		return false
	}
}

func numericOperands(stored, literal string) (float64, float64, bool) {
	left, err := strconv.ParseFloat(strings.TrimSpace(stored), 64)
	if err != nil {
		return 0, 0, false
	}

	right, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
	if err != nil {
		return 0, 0, false
	}

	return left, right, true
}

// stringValue renders a variable value in its string form. Nil (including a
// missing map entry) becomes the empty string.
func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
