package engine

// CalculationResult carries a calculated field's raw value and its display
// rendering.
type CalculationResult struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Result is one full evaluation pass over a form: the visible set, the
// per-field validation errors, derived calculation values, overall
// completion and the labels resolved for the requested language.
type Result struct {
	Visible      []string                     `json:"visible"`
	Errors       map[string]*ValidationError  `json:"errors"`
	Calculations map[string]CalculationResult `json:"calculations"`
	Completion   int                          `json:"completion"`
	Labels       map[string]string            `json:"labels"`
}

// VisibleSet rebuilds the visible ids as a membership map.
func (r *Result) VisibleSet() map[string]bool {
	set := make(map[string]bool, len(r.Visible))
	for _, id := range r.Visible {
		set[id] = true
	}
	return set
}

// Evaluate runs one evaluation pass: visibility first, then validation of
// the visible elements, then calculations over visible valid contributors,
// then completion. Data flows one direction; the pass is pure and can be
// re-run on every answer change.
func Evaluate(def *Definition, answers Answers, language string) *Result {
	if def == nil {
		return &Result{
			Errors:       map[string]*ValidationError{},
			Calculations: map[string]CalculationResult{},
			Completion:   100,
			Labels:       map[string]string{},
		}
	}
	if language == "" {
		language = def.DefaultLanguage()
	}

	visible := ComputeVisible(def.Elements, answers)

	result := &Result{
		Visible:      make([]string, 0, len(visible)),
		Errors:       make(map[string]*ValidationError),
		Calculations: make(map[string]CalculationResult),
		Labels:       make(map[string]string, len(def.Elements)),
	}

	for i := range def.Elements {
		el := &def.Elements[i]
		result.Labels[el.ID] = el.Label.Resolve(language)
		if !visible[el.ID] {
			continue
		}
		result.Visible = append(result.Visible, el.ID)

		if el.Type.IsAnswerable() {
			if verr := ValidateField(*el, answers[el.ID]); verr != nil {
				result.Errors[el.ID] = verr
			}
		}
	}

	// Calculations read only contributors that are visible and valid;
	// hidden or failing fields fall back to their zero contribution.
	calcAnswers := contributingAnswers(def.Elements, answers, visible, result.Errors)
	for i := range def.Elements {
		el := &def.Elements[i]
		if !visible[el.ID] || el.Calculation == nil || !el.Calculation.Enabled || len(el.Calculation.Formula) == 0 {
			continue
		}
		value := EvaluateCalculation(el.Calculation, calcAnswers)
		result.Calculations[el.ID] = CalculationResult{
			Value:     value,
			Formatted: FormatCalculation(el.Calculation, value),
		}
	}

	result.Completion = ComputeCompletion(def.Elements, answers, visible)
	return result
}

// contributingAnswers masks out answers of hidden or invalid fields so
// calculations only see usable numeric inputs.
func contributingAnswers(elements []Element, answers Answers, visible map[string]bool, errs map[string]*ValidationError) Answers {
	masked := make(Answers, len(answers))
	byID := make(map[string]struct{}, len(elements))
	for i := range elements {
		id := elements[i].ID
		byID[id] = struct{}{}
		if !visible[id] {
			continue
		}
		if _, invalid := errs[id]; invalid {
			continue
		}
		if v, ok := answers[id]; ok {
			masked[id] = v
		}
	}
	// Answers with no backing element (editor scratch values) pass through.
	for id, v := range answers {
		if _, known := byID[id]; !known {
			masked[id] = v
		}
	}
	return masked
}
