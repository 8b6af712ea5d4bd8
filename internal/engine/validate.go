package engine

import (
	"log"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError describes why an answer fails its element's constraints.
// Rule names the first constraint that failed.
type ValidationError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

const (
	RuleRequired  = "required"
	RuleEmail     = "email"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleFileType  = "fileType"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateField checks an element's current answer against its constraints
// and returns nil when valid. Rules apply in a fixed order and stop at the
// first failure: required, email format, length bounds, custom pattern,
// numeric bounds, accepted file types. Callers are expected to validate
// only elements in the current visible set; hidden elements are never
// validated. ValidateField is total and never panics.
func ValidateField(el Element, value any) *ValidationError {
	if isEmptyAnswer(value) {
		if el.Required {
			return el.fail(RuleRequired, "This field is required")
		}
		return nil
	}

	str := answerString(value)

	if el.Type == TypeEmail || (el.Validation != nil && el.Validation.ValidationType == "email") {
		if !emailPattern.MatchString(str) {
			return el.fail(RuleEmail, "Please enter a valid email address")
		}
	}

	v := el.Validation
	if v == nil {
		return nil
	}

	if el.Type == TypeText || el.Type == TypeTextarea {
		length := len([]rune(str))
		if v.MinLength != nil && length < *v.MinLength {
			return el.fail(RuleMinLength, "Must be at least "+strconv.Itoa(*v.MinLength)+" characters")
		}
		if v.MaxLength != nil && length > *v.MaxLength {
			return el.fail(RuleMaxLength, "Must be at most "+strconv.Itoa(*v.MaxLength)+" characters")
		}
	}

	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			// A malformed author-supplied pattern is a configuration
			// problem, not a user error; skip the constraint.
			log.Printf("engine: invalid validation pattern %q on element %s: %v", v.Pattern, el.ID, err)
		} else if !re.MatchString(str) {
			return el.fail(RulePattern, "Invalid format")
		}
	}

	if el.Type == TypeNumber {
		if n, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			if v.Min != nil && n < *v.Min {
				return el.fail(RuleMin, "Must be at least "+formatBound(*v.Min))
			}
			if v.Max != nil && n > *v.Max {
				return el.fail(RuleMax, "Must be at most "+formatBound(*v.Max))
			}
		}
	}

	if el.Type == TypeFile && len(v.AcceptedFileTypes) > 0 {
		for _, name := range answerStrings(value) {
			if !fileTypeAccepted(name, v.AcceptedFileTypes) {
				return el.fail(RuleFileType, "File type not accepted")
			}
		}
	}

	return nil
}

func (el Element) fail(rule, fallback string) *ValidationError {
	msg := fallback
	if el.CustomErrorMsg != "" {
		msg = el.CustomErrorMsg
	}
	return &ValidationError{Rule: rule, Message: msg}
}

// isEmptyAnswer reports whether the answer counts as unanswered: nil, an
// empty or blank string, or an empty array.
func isEmptyAnswer(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func answerString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return stringifyAnswer(value)
}

func answerStrings(value any) []string {
	if arr, ok := asStringSlice(value); ok {
		return arr
	}
	return []string{answerString(value)}
}

// fileTypeAccepted matches a candidate file name's extension against the
// accepted list. Accepted entries may carry a leading dot. Data URIs carry
// no file name and are not rejected here.
func fileTypeAccepted(name string, accepted []string) bool {
	if strings.HasPrefix(name, "data:") {
		return true
	}
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return false
	}
	ext := strings.ToLower(name[idx+1:])
	for _, a := range accepted {
		if strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), ".")) == ext {
			return true
		}
	}
	return false
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
