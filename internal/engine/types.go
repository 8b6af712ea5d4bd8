package engine

// ElementType identifies the kind of input or layout unit an element renders as.
type ElementType string

const (
	TypeText      ElementType = "text"
	TypeEmail     ElementType = "email"
	TypePhone     ElementType = "phone"
	TypeNumber    ElementType = "number"
	TypeTextarea  ElementType = "textarea"
	TypeRadio     ElementType = "radio"
	TypeCheckbox  ElementType = "checkbox"
	TypeSelect    ElementType = "select"
	TypeSection   ElementType = "section"
	TypeSignature ElementType = "signature"
	TypeImage     ElementType = "image"
	TypeDate      ElementType = "date"
	TypeTime      ElementType = "time"
	TypeFile      ElementType = "file"
	TypeRating    ElementType = "rating"
	TypeParagraph ElementType = "paragraph"
	TypePhoneOTP  ElementType = "phone_otp"
	TypeEmailOTP  ElementType = "email_otp"
)

// layoutTypes never hold an answer and are excluded from completion tracking.
var layoutTypes = map[ElementType]struct{}{
	TypeSection:   {},
	TypeParagraph: {},
	TypeImage:     {},
}

// IsAnswerable reports whether the element type can hold a user answer.
func (t ElementType) IsAnswerable() bool {
	_, layout := layoutTypes[t]
	return !layout
}

// Combinator aggregates multiple conditions within a logic block.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Operator compares a target field's answer against a literal value.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
)

// Condition is one atomic comparison inside a logic block. TargetID may
// reference any element in the form, including elements defined later.
type Condition struct {
	ID       string   `json:"id"`
	TargetID string   `json:"targetId"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Logic controls an element's visibility based on other elements' answers.
type Logic struct {
	Combinator Combinator  `json:"combinator"`
	Conditions []Condition `json:"conditions"`
}

// Option is one selectable choice of a radio, checkbox or select element.
type Option struct {
	ID    string `json:"id"`
	Label Text   `json:"label"`
	Value string `json:"value"`
}

// Validation holds the constraints checked by ValidateField. Pointer fields
// distinguish "not configured" from a zero bound.
type Validation struct {
	Min               *float64 `json:"min,omitempty"`
	Max               *float64 `json:"max,omitempty"`
	MinLength         *int     `json:"minLength,omitempty"`
	MaxLength         *int     `json:"maxLength,omitempty"`
	Pattern           string   `json:"pattern,omitempty"`
	ValidationType    string   `json:"validationType,omitempty"`
	AcceptedFileTypes []string `json:"acceptedFileTypes,omitempty"`
}

// OperandType distinguishes field references from literal constants.
type OperandType string

const (
	OperandField    OperandType = "field"
	OperandConstant OperandType = "constant"
)

// Operand is one input of a calculation step.
type Operand struct {
	Type    OperandType `json:"type"`
	FieldID string      `json:"fieldId,omitempty"`
	Value   float64     `json:"value,omitempty"`
}

// CalculationStep pairs an operand with the operator that joins it to the
// NEXT step's operand. The last step carries no operator.
type CalculationStep struct {
	Operand  Operand `json:"operand"`
	Operator string  `json:"operator,omitempty"`
}

// Calculation derives a numeric value from other fields. The formula is
// evaluated strictly left to right, with no operator precedence.
type Calculation struct {
	Enabled       bool              `json:"enabled"`
	Formula       []CalculationStep `json:"formula"`
	DecimalPlaces *int              `json:"decimalPlaces,omitempty"`
	Prefix        string            `json:"prefix,omitempty"`
	Suffix        string            `json:"suffix,omitempty"`
}

// OTPConfig points an OTP element at its externally configured endpoints.
type OTPConfig struct {
	SendEndpoint       string            `json:"sendOtpEndpoint"`
	VerifyEndpoint     string            `json:"verifyOtpEndpoint"`
	ValueFieldName     string            `json:"valueFieldName,omitempty"`
	OTPFieldName       string            `json:"otpFieldName,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
	CodeLength         int               `json:"codeLength,omitempty"`
	ResendDelaySeconds int               `json:"resendDelaySeconds,omitempty"`
	MaxAttempts        int               `json:"maxAttempts,omitempty"`
}

// Element is the atomic unit of a form. Elements form a tree through
// ParentID back-references; the collection itself stays flat.
type Element struct {
	ID             string       `json:"id"`
	Type           ElementType  `json:"type"`
	Label          Text         `json:"label"`
	Description    Text         `json:"description,omitempty"`
	ParentID       string       `json:"parentId,omitempty"`
	Required       bool         `json:"required"`
	Options        []Option     `json:"options,omitempty"`
	Logic          *Logic       `json:"logic,omitempty"`
	Validation     *Validation  `json:"validation,omitempty"`
	Calculation    *Calculation `json:"calculation,omitempty"`
	OTP            *OTPConfig   `json:"otpConfig,omitempty"`
	CustomErrorMsg string       `json:"customErrorMsg,omitempty"`
}

// Metadata carries form-level presentation and localization settings.
type Metadata struct {
	Title              Text           `json:"title"`
	Description        Text           `json:"description,omitempty"`
	Footer             Text           `json:"footer,omitempty"`
	Styling            map[string]any `json:"styling,omitempty"`
	AvailableLanguages []string       `json:"availableLanguages,omitempty"`
	DefaultLanguage    string         `json:"defaultLanguage,omitempty"`
}

// Definition is the persisted form definition consumed by the engine.
type Definition struct {
	Metadata Metadata  `json:"metadata"`
	Elements []Element `json:"elements"`
}

// Answers maps element id to the current user-entered value. Values are
// scalars for most types and string arrays for checkbox groups.
type Answers map[string]any
