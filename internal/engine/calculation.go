package engine

import (
	"math"
	"strconv"
	"strings"
)

const defaultDecimalPlaces = 2

// EvaluateCalculation walks the formula left to right, seeding an
// accumulator from the first operand and applying each step's operator
// between the accumulator and the following operand. There is no operator
// precedence. Division and modulo by zero yield 0. The result is rounded
// to the configured decimal places (default 2).
func EvaluateCalculation(calc *Calculation, answers Answers) float64 {
	if calc == nil || !calc.Enabled || len(calc.Formula) == 0 {
		return 0
	}

	acc := operandValue(calc.Formula[0].Operand, answers)
	for i := 1; i < len(calc.Formula); i++ {
		operand := operandValue(calc.Formula[i].Operand, answers)
		acc = applyOperator(acc, calc.Formula[i-1].Operator, operand)
	}

	if math.IsNaN(acc) || math.IsInf(acc, 0) {
		acc = 0
	}
	return roundTo(acc, calc.decimalPlaces())
}

// FormatCalculation renders a calculation result for display, applying
// the configured prefix, suffix and fixed decimal places.
func FormatCalculation(calc *Calculation, value float64) string {
	places := defaultDecimalPlaces
	prefix, suffix := "", ""
	if calc != nil {
		places = calc.decimalPlaces()
		prefix, suffix = calc.Prefix, calc.Suffix
	}
	return prefix + strconv.FormatFloat(value, 'f', places, 64) + suffix
}

// FieldIDs returns the ids of the fields the formula reads, in formula
// order without duplicates. A calculation must be recomputed whenever any
// of these fields' answers change.
func (c *Calculation) FieldIDs() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.Formula))
	var out []string
	for _, step := range c.Formula {
		if step.Operand.Type != OperandField || step.Operand.FieldID == "" {
			continue
		}
		if _, dup := seen[step.Operand.FieldID]; dup {
			continue
		}
		seen[step.Operand.FieldID] = struct{}{}
		out = append(out, step.Operand.FieldID)
	}
	return out
}

func (c *Calculation) decimalPlaces() int {
	if c == nil || c.DecimalPlaces == nil || *c.DecimalPlaces < 0 {
		return defaultDecimalPlaces
	}
	return *c.DecimalPlaces
}

func operandValue(op Operand, answers Answers) float64 {
	if op.Type == OperandConstant {
		return op.Value
	}
	return numericAnswer(answers[op.FieldID])
}

// numericAnswer resolves an answer to a float, treating anything
// unparseable as 0.
func numericAnswer(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	}
	return 0
}

func applyOperator(acc float64, operator string, operand float64) float64 {
	switch operator {
	case "+":
		return acc + operand
	case "-":
		return acc - operand
	case "*":
		return acc * operand
	case "/":
		if operand == 0 {
			return 0
		}
		return acc / operand
	case "%":
		if operand == 0 {
			return 0
		}
		return math.Mod(acc, operand)
	}
	// A step without an operator contributes nothing past the seed.
	return acc
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
