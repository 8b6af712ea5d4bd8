package engine

import (
	"sort"
	"strconv"
	"strings"
)

// ConditionOptions tunes condition evaluation. The contains family is
// case-insensitive by default; the visibility resolver opts into
// case-sensitive matching to preserve the behaviour forms were authored
// against.
type ConditionOptions struct {
	CaseSensitiveContains bool
}

// EvaluateCondition evaluates one atomic condition against the answer set
// using the default options. It is total: any condition and any answer set
// produce a boolean, never a panic.
func EvaluateCondition(cond Condition, answers Answers) bool {
	return EvaluateConditionWith(cond, answers, ConditionOptions{})
}

// EvaluateConditionWith evaluates one atomic condition with explicit options.
func EvaluateConditionWith(cond Condition, answers Answers, opts ConditionOptions) bool {
	target, present := answers[cond.TargetID]

	if !present || isMissing(target) {
		// An unanswered field satisfies only the negative operators: a
		// condition requiring it to differ from a concrete value, or to
		// not contain one.
		switch cond.Operator {
		case OpNotEquals:
			return cond.Value != ""
		case OpNotContains:
			return true
		}
		return false
	}

	if arr, ok := asStringSlice(target); ok {
		return evaluateArrayCondition(cond, arr)
	}
	return evaluateScalarCondition(cond, stringifyAnswer(target), opts)
}

func evaluateArrayCondition(cond Condition, values []string) bool {
	switch cond.Operator {
	case OpContains:
		return sliceContains(values, cond.Value)
	case OpNotContains:
		return !sliceContains(values, cond.Value)
	case OpEquals:
		return sortedJoin(values) == sortedJoinCSV(cond.Value)
	case OpNotEquals:
		return sortedJoin(values) != sortedJoinCSV(cond.Value)
	}
	// Remaining operators are undefined for multi-value answers.
	return false
}

func evaluateScalarCondition(cond Condition, value string, opts ConditionOptions) bool {
	switch cond.Operator {
	case OpEquals:
		return value == cond.Value
	case OpNotEquals:
		return value != cond.Value
	case OpContains, OpNotContains:
		haystack, needle := value, cond.Value
		if !opts.CaseSensitiveContains {
			haystack = strings.ToLower(haystack)
			needle = strings.ToLower(needle)
		}
		found := strings.Contains(haystack, needle)
		if cond.Operator == OpContains {
			return found
		}
		return !found
	case OpStartsWith:
		return strings.HasPrefix(value, cond.Value)
	case OpEndsWith:
		return strings.HasSuffix(value, cond.Value)
	case OpIsEmpty:
		return strings.TrimSpace(value) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(value) != ""
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return compareNumeric(cond.Operator, value, cond.Value)
	}
	return false
}

func compareNumeric(op Operator, left, right string) bool {
	a, errA := strconv.ParseFloat(strings.TrimSpace(left), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if errA != nil || errB != nil {
		return false
	}
	switch op {
	case OpGreaterThan:
		return a > b
	case OpGreaterThanOrEqual:
		return a >= b
	case OpLessThan:
		return a < b
	case OpLessThanOrEqual:
		return a <= b
	}
	return false
}

func isMissing(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// asStringSlice coerces multi-value answers (checkbox groups) to a string
// slice. JSON decoding yields []any; in-process callers may pass []string.
func asStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringifyAnswer(item))
		}
		return out, true
	}
	return nil, false
}

func sliceContains(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

func sortedJoin(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// sortedJoinCSV normalizes an authored comparison value the same way the
// answer side is normalized, so member order in the authored list never
// matters.
func sortedJoinCSV(value string) string {
	return sortedJoin(strings.Split(value, ","))
}

// stringifyAnswer renders a scalar answer as the string the comparison
// operators work on. Floats drop their trailing zeros so a numeric answer
// of 2 compares equal to the literal "2".
func stringifyAnswer(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
