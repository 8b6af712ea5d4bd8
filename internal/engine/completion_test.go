package engine

import "testing"

func visibleAll(elements []Element) map[string]bool {
	set := make(map[string]bool, len(elements))
	for _, e := range elements {
		set[e.ID] = true
	}
	return set
}

func TestCompletionNoRequiredFields(t *testing.T) {
	elements := []Element{el("a", TypeText), el("b", TypeSelect)}
	if got := ComputeCompletion(elements, Answers{}, visibleAll(elements)); got != 100 {
		t.Fatalf("no required fields: %d, want 100", got)
	}
}

func TestCompletionBoundary(t *testing.T) {
	required := Element{ID: "a", Type: TypeText, Required: true}
	elements := []Element{required}
	visible := visibleAll(elements)

	if got := ComputeCompletion(elements, Answers{}, visible); got != 0 {
		t.Fatalf("unfilled required: %d, want 0", got)
	}
	if got := ComputeCompletion(elements, Answers{"a": "done"}, visible); got != 100 {
		t.Fatalf("filled required: %d, want 100", got)
	}
}

func TestCompletionExcludesHiddenRequired(t *testing.T) {
	elements := []Element{
		{ID: "a", Type: TypeText, Required: true},
		{ID: "b", Type: TypeText, Required: true},
	}
	visible := map[string]bool{"a": true} // b hidden by failing condition

	if got := ComputeCompletion(elements, Answers{"a": "x"}, visible); got != 100 {
		t.Fatalf("hidden required counted: %d, want 100", got)
	}
}

func TestCompletionExcludesLayoutTypes(t *testing.T) {
	elements := []Element{
		{ID: "s", Type: TypeSection, Required: true},
		{ID: "p", Type: TypeParagraph, Required: true},
		{ID: "i", Type: TypeImage, Required: true},
	}
	if got := ComputeCompletion(elements, Answers{}, visibleAll(elements)); got != 100 {
		t.Fatalf("layout types counted: %d, want 100", got)
	}
}

func TestCompletionRequiresValidity(t *testing.T) {
	elements := []Element{
		{ID: "email", Type: TypeEmail, Required: true},
		{ID: "name", Type: TypeText, Required: true},
	}
	visible := visibleAll(elements)

	answers := Answers{"email": "not-an-address", "name": "Alice"}
	if got := ComputeCompletion(elements, answers, visible); got != 50 {
		t.Fatalf("invalid filled field counted: %d, want 50", got)
	}

	answers["email"] = "a@b.co"
	if got := ComputeCompletion(elements, answers, visible); got != 100 {
		t.Fatalf("all valid: %d, want 100", got)
	}
}

func TestCompletionMultiValueFilled(t *testing.T) {
	elements := []Element{{ID: "c", Type: TypeCheckbox, Required: true}}
	visible := visibleAll(elements)

	if got := ComputeCompletion(elements, Answers{"c": []string{}}, visible); got != 0 {
		t.Fatalf("empty checkbox answer: %d, want 0", got)
	}
	if got := ComputeCompletion(elements, Answers{"c": []string{"x"}}, visible); got != 100 {
		t.Fatalf("checked answer: %d, want 100", got)
	}
}

func TestCompletionRounds(t *testing.T) {
	elements := []Element{
		{ID: "a", Type: TypeText, Required: true},
		{ID: "b", Type: TypeText, Required: true},
		{ID: "c", Type: TypeText, Required: true},
	}
	answers := Answers{"a": "x"}
	if got := ComputeCompletion(elements, answers, visibleAll(elements)); got != 33 {
		t.Fatalf("1/3 rounded: %d, want 33", got)
	}
	answers["b"] = "y"
	if got := ComputeCompletion(elements, answers, visibleAll(elements)); got != 67 {
		t.Fatalf("2/3 rounded: %d, want 67", got)
	}
}
