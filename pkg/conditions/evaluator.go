// Package conditions evaluates trigger conditions against event payloads.
package conditions

import (
	"log/slog"
	"reflect"

	"github.com/vantagecrm/automation/pkg/models"
)

// Evaluator applies a workflow's trigger conditions to an event payload.
// Malformed conditions never error: an unknown operator, an absent field or a
// type mismatch makes the condition false, so a bad workflow definition can
// only suppress its own firing.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With("module", "condition_evaluator")}
}

// Matches reports whether the payload satisfies every condition. An empty
// condition list matches unconditionally. Evaluation short-circuits on the
// first false condition.
func (e *Evaluator) Matches(conds []models.Condition, payload models.EventPayload) bool {
	for _, condition := range conds {
		if !e.matches(condition, payload) {
			return false
		}
	}

	return true
}

func (e *Evaluator) matches(condition models.Condition, payload models.EventPayload) bool {
	actual, ok := payload.Lookup(condition.Field)
	if !ok {
		return false
	}

	switch condition.Operator {
	case models.OperatorEquals:
		return equals(actual, condition.Value)
	case models.OperatorGreater:
		return compareNumeric(actual, condition.Value, func(a, b float64) bool { return a > b })
	case models.OperatorGreaterEqual:
		return compareNumeric(actual, condition.Value, func(a, b float64) bool { return a >= b })
	case models.OperatorLess:
		return compareNumeric(actual, condition.Value, func(a, b float64) bool { return a < b })
	case models.OperatorLessEqual:
		return compareNumeric(actual, condition.Value, func(a, b float64) bool { return a <= b })
	case models.OperatorIn:
		return contains(condition.Value, actual)
	default:
		e.logger.Warn("Unknown condition operator, treating condition as non-matching",
			"operator", condition.Operator,
			"field", condition.Field,
		)

		return false
	}
}

// equals compares numerically when both sides are numbers, so a payload
// float64 of 42 matches a condition int of 42 after JSON round-trips.
func equals(actual, expected any) bool {
	actualNum, actualOK := toFloat(actual)
	expectedNum, expectedOK := toFloat(expected)

	if actualOK && expectedOK {
		return actualNum == expectedNum
	}

	if actualOK != expectedOK {
		return false
	}

	return reflect.DeepEqual(actual, expected)
}

func compareNumeric(actual, expected any, compare func(a, b float64) bool) bool {
	actualNum, ok := toFloat(actual)
	if !ok {
		return false
	}

	expectedNum, ok := toFloat(expected)
	if !ok {
		return false
	}

	return compare(actualNum, expectedNum)
}

// contains reports whether the payload value is a member of the condition's
// list value. A non-list condition value is a malformed condition.
func contains(listValue, actual any) bool {
	switch list := listValue.(type) {
	case []any:
		for _, member := range list {
			if equals(actual, member) {
				return true
			}
		}
	case []string:
		for _, member := range list {
			if equals(actual, member) {
				return true
			}
		}
	}

	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
