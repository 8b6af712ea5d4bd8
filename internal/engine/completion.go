package engine

import "math"

// ComputeCompletion reports how much of the form is complete as a
// percentage. Only elements that are visible, required and of an
// answerable type count; each contributes when its answer is non-empty and
// passes validation. A form with no visible required fields is trivially
// complete.
func ComputeCompletion(elements []Element, answers Answers, visible map[string]bool) int {
	total := 0
	filled := 0

	for i := range elements {
		el := &elements[i]
		if !el.Required || !el.Type.IsAnswerable() || !visible[el.ID] {
			continue
		}
		total++

		value := answers[el.ID]
		if isEmptyAnswer(value) {
			continue
		}
		if ValidateField(*el, value) == nil {
			filled++
		}
	}

	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(filled) / float64(total)))
}
