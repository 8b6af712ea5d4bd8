package engine

import "testing"

func intPtr(v int) *int         { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestValidateRequired(t *testing.T) {
	required := Element{ID: "f", Type: TypeText, Required: true}

	for _, value := range []any{nil, "", "   ", []string{}, []any{}} {
		if err := ValidateField(required, value); err == nil || err.Rule != RuleRequired {
			t.Fatalf("value %#v: expected required error, got %v", value, err)
		}
	}
	if err := ValidateField(required, "hello"); err != nil {
		t.Fatalf("filled required field failed: %v", err)
	}

	optional := Element{ID: "f", Type: TypeText}
	if err := ValidateField(optional, ""); err != nil {
		t.Fatalf("empty optional field failed: %v", err)
	}
}

func TestValidateEmptySkipsRemainingRules(t *testing.T) {
	e := Element{ID: "f", Type: TypeEmail, Validation: &Validation{MinLength: intPtr(100)}}
	if err := ValidateField(e, ""); err != nil {
		t.Fatalf("empty optional email should be valid, got %v", err)
	}
}

func TestValidateCustomErrorMessage(t *testing.T) {
	e := Element{ID: "f", Type: TypeText, Required: true, CustomErrorMsg: "กรุณากรอกข้อมูล"}
	err := ValidateField(e, nil)
	if err == nil || err.Message != "กรุณากรอกข้อมูล" {
		t.Fatalf("custom message not applied: %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	byType := Element{ID: "f", Type: TypeEmail}
	byValidationType := Element{ID: "f", Type: TypeText, Validation: &Validation{ValidationType: "email"}}

	for _, e := range []Element{byType, byValidationType} {
		if err := ValidateField(e, "user@example.com"); err != nil {
			t.Fatalf("valid address rejected: %v", err)
		}
		for _, bad := range []string{"plain", "a@b", "a @b.com", "a@b .com"} {
			if err := ValidateField(e, bad); err == nil || err.Rule != RuleEmail {
				t.Fatalf("address %q: expected email error, got %v", bad, err)
			}
		}
	}
}

func TestValidateLengthBounds(t *testing.T) {
	e := Element{ID: "f", Type: TypeText, Validation: &Validation{MinLength: intPtr(3), MaxLength: intPtr(5)}}

	if err := ValidateField(e, "ab"); err == nil || err.Rule != RuleMinLength {
		t.Fatalf("short value: %v", err)
	}
	if err := ValidateField(e, "abcdef"); err == nil || err.Rule != RuleMaxLength {
		t.Fatalf("long value: %v", err)
	}
	if err := ValidateField(e, "abcd"); err != nil {
		t.Fatalf("in-bounds value: %v", err)
	}

	// Length bounds apply to text types only.
	num := Element{ID: "f", Type: TypeNumber, Validation: &Validation{MinLength: intPtr(10)}}
	if err := ValidateField(num, "42"); err != nil {
		t.Fatalf("length bound leaked onto number type: %v", err)
	}
}

func TestValidatePattern(t *testing.T) {
	e := Element{ID: "f", Type: TypeText, Validation: &Validation{Pattern: `^\d{4}$`}}
	if err := ValidateField(e, "1234"); err != nil {
		t.Fatalf("matching value: %v", err)
	}
	if err := ValidateField(e, "12x4"); err == nil || err.Rule != RulePattern {
		t.Fatalf("non-matching value: %v", err)
	}
}

func TestValidateMalformedPatternIsSkipped(t *testing.T) {
	e := Element{ID: "f", Type: TypeText, Validation: &Validation{Pattern: `([unclosed`}}
	if err := ValidateField(e, "anything"); err != nil {
		t.Fatalf("malformed pattern must be inert, got %v", err)
	}
}

func TestValidateNumericBounds(t *testing.T) {
	e := Element{ID: "f", Type: TypeNumber, Validation: &Validation{Min: floatPtr(1), Max: floatPtr(10)}}

	if err := ValidateField(e, "0.5"); err == nil || err.Rule != RuleMin {
		t.Fatalf("below min: %v", err)
	}
	if err := ValidateField(e, "11"); err == nil || err.Rule != RuleMax {
		t.Fatalf("above max: %v", err)
	}
	if err := ValidateField(e, float64(5)); err != nil {
		t.Fatalf("in-range numeric answer: %v", err)
	}
	// Unparseable input passes the bounds check untouched.
	if err := ValidateField(e, "not-a-number"); err != nil {
		t.Fatalf("unparseable value should skip bounds: %v", err)
	}
}

func TestValidateFileTypes(t *testing.T) {
	e := Element{ID: "f", Type: TypeFile, Validation: &Validation{AcceptedFileTypes: []string{".pdf", "PNG"}}}

	if err := ValidateField(e, "scan.pdf"); err != nil {
		t.Fatalf("accepted extension rejected: %v", err)
	}
	if err := ValidateField(e, "photo.png"); err != nil {
		t.Fatalf("case-insensitive extension rejected: %v", err)
	}
	if err := ValidateField(e, []string{"a.pdf", "b.exe"}); err == nil || err.Rule != RuleFileType {
		t.Fatalf("unaccepted extension in list: %v", err)
	}
	if err := ValidateField(e, "noextension"); err == nil || err.Rule != RuleFileType {
		t.Fatalf("extensionless name: %v", err)
	}
	if err := ValidateField(e, "data:image/png;base64,iVBOR"); err != nil {
		t.Fatalf("data URI should not be rejected by extension check: %v", err)
	}
}

func TestValidateNeverPanics(t *testing.T) {
	e := Element{ID: "f", Type: TypeNumber, Required: true, Validation: &Validation{Min: floatPtr(0), Pattern: `\d+`}}
	for _, value := range []any{nil, "", 3.14, true, []any{map[string]any{}}, map[string]any{"x": 1}} {
		_ = ValidateField(e, value)
	}
}
