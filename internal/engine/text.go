package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a label or content value that is either a plain string or a
// mapping from language code to string. Language codes are an open set;
// new languages can be added at runtime without touching this type.
//
// When the value is a mapping, the original key order is preserved so the
// last-resort fallback ("first non-empty entry") stays deterministic.
type Text struct {
	plain     string
	values    map[string]string
	order     []string
	localized bool
}

// PlainText wraps a language-independent string.
func PlainText(s string) Text {
	return Text{plain: s}
}

// LocalizedText builds a mapping in the given key order. Pairs must
// alternate language code and value; a trailing unpaired code is ignored.
func LocalizedText(pairs ...string) Text {
	t := Text{values: make(map[string]string, len(pairs)/2), localized: true}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i], pairs[i+1])
	}
	return t
}

// Set stores the value for a language code, appending the code to the key
// order on first use. Setting a language promotes a plain Text to a mapping
// with the previous plain value preserved under the default language key.
func (t *Text) Set(lang, value string) {
	if !t.localized {
		t.localized = true
		if t.values == nil {
			t.values = make(map[string]string)
		}
		if t.plain != "" {
			t.values[languageEnglish] = t.plain
			t.order = append(t.order, languageEnglish)
			t.plain = ""
		}
	}
	if _, seen := t.values[lang]; !seen {
		t.order = append(t.order, lang)
	}
	t.values[lang] = value
}

// IsZero reports whether the text carries no content at all.
func (t Text) IsZero() bool {
	return !t.localized && t.plain == ""
}

const (
	languageEnglish = "en"
	languageThai    = "th"
)

// Resolve returns the display string for the requested language. Plain
// strings are returned as-is. For mappings the lookup order is: the
// requested language, each explicit fallback, English, Thai, then the first
// non-empty entry in insertion order. Entries are trimmed before the
// non-empty test. Resolve never fails; an unresolvable text is "".
func (t Text) Resolve(language string, fallbacks ...string) string {
	if !t.localized {
		return t.plain
	}

	chain := make([]string, 0, len(fallbacks)+3)
	chain = append(chain, language)
	chain = append(chain, fallbacks...)
	chain = append(chain, languageEnglish, languageThai)

	for _, lang := range chain {
		if v, ok := t.values[lang]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	for _, lang := range t.order {
		if v := t.values[lang]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Languages returns the language codes present in insertion order. Plain
// texts have none.
func (t Text) Languages() []string {
	if !t.localized {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// MarshalJSON encodes a plain Text as a JSON string and a localized Text
// as an object in insertion order.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.localized {
		return json.Marshal(t.plain)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lang := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lang)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.values[lang])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a string, an object of language/value pairs, or
// null. Object key order is retained.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = Text{}
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text{plain: s}
		return nil
	}

	if trimmed[0] != '{' {
		return fmt.Errorf("text must be a string or an object, got %s", string(trimmed))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}

	out := Text{values: make(map[string]string), localized: true}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		lang, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("text object key is not a string")
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("text value for %q is not a string: %w", lang, err)
		}
		out.Set(lang, value)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return err
	}

	*t = out
	return nil
}
