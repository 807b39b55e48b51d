package chatflow

import (
	"regexp"
	"strings"
)

// ConditionType selects the predicate a condition node applies to the
// effective input.
type ConditionType string

// Supported condition types. Unknown types evaluate to false.
const (
	ConditionEquals     ConditionType = "equals"
	ConditionContains   ConditionType = "contains"
	ConditionStartsWith ConditionType = "startsWith"
	ConditionRegex      ConditionType = "regex"
)

// EvaluateCondition evaluates a condition node's predicate against the
// effective input. Both sides are case-folded before comparison.
//
// A regex compare value is compiled as a case-insensitive pattern. An
// invalid pattern evaluates to false and never propagates an error: one
// bad expression authored into a flow must not break a running
// conversation.
func EvaluateCondition(ct ConditionType, compareValue, input string) bool {
	compare := strings.ToLower(strings.TrimSpace(compareValue))
	input = strings.ToLower(input)

	switch ct {
	case ConditionEquals:
		return input == compare
	case ConditionContains:
		return strings.Contains(input, compare)
	case ConditionStartsWith:
		return strings.HasPrefix(input, compare)
	case ConditionRegex:
		re, err := regexp.Compile("(?i)" + compareValue)
		if err != nil {
			return false
		}
		return re.MatchString(input)
	default:
		return false
	}
}
