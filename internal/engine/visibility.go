package engine

// DefaultMaxPasses bounds the visibility fixed-point iteration. Conditions
// may reference elements whose own visibility is still being resolved, so
// the resolver re-evaluates until a pass changes nothing or the cap is hit.
const DefaultMaxPasses = 8

// VisibilityOptions tunes the visibility resolver.
type VisibilityOptions struct {
	// MaxPasses caps the number of full re-evaluation passes. Zero or
	// negative means DefaultMaxPasses.
	MaxPasses int
	// Condition controls how leaf conditions are evaluated. Visibility
	// logic matches option values exactly, so the contains family runs
	// case-sensitive here.
	Condition ConditionOptions
}

func defaultVisibilityOptions() VisibilityOptions {
	return VisibilityOptions{
		MaxPasses: DefaultMaxPasses,
		Condition: ConditionOptions{CaseSensitiveContains: true},
	}
}

// ComputeVisible returns the set of element ids visible for the given
// answers, using the default options.
func ComputeVisible(elements []Element, answers Answers) map[string]bool {
	return ComputeVisibleWith(elements, answers, defaultVisibilityOptions())
}

// ComputeVisibleWith computes the visible set by bounded fixed-point
// iteration. Each pass re-evaluates every element: an element is visible
// when its parent section (if any) is visible and its logic conditions
// hold against the answers. The loop exits early once a full pass changes
// nothing; with cyclic condition graphs the cap guarantees termination and
// the result is the state after the final pass.
func ComputeVisibleWith(elements []Element, answers Answers, opts VisibilityOptions) map[string]bool {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	visible := make(map[string]bool, len(elements))

	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := range elements {
			el := &elements[i]
			want := shouldBeVisible(el, answers, visible, opts.Condition)
			if want != visible[el.ID] {
				if want {
					visible[el.ID] = true
				} else {
					delete(visible, el.ID)
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return visible
}

func shouldBeVisible(el *Element, answers Answers, visible map[string]bool, condOpts ConditionOptions) bool {
	// A hidden section hides every descendant, regardless of their own logic.
	if el.ParentID != "" && !visible[el.ParentID] {
		return false
	}
	if el.Logic == nil || len(el.Logic.Conditions) == 0 {
		return true
	}

	if el.Logic.Combinator == CombinatorOr {
		for _, cond := range el.Logic.Conditions {
			if EvaluateConditionWith(cond, answers, condOpts) {
				return true
			}
		}
		return false
	}

	for _, cond := range el.Logic.Conditions {
		if !EvaluateConditionWith(cond, answers, condOpts) {
			return false
		}
	}
	return true
}
