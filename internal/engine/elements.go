package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseDefinition decodes a persisted form definition. Element ids must be
// unique and parent references must point at section elements that exist;
// anything else is a malformed definition, reported as an error rather
// than silently evaluated.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks structural invariants of the definition.
func (d *Definition) Validate() error {
	byID := make(map[string]*Element, len(d.Elements))
	for i := range d.Elements {
		el := &d.Elements[i]
		if strings.TrimSpace(el.ID) == "" {
			return fmt.Errorf("element %d has no id", i)
		}
		if _, dup := byID[el.ID]; dup {
			return fmt.Errorf("duplicate element id %q", el.ID)
		}
		byID[el.ID] = el
	}
	for i := range d.Elements {
		el := &d.Elements[i]
		if el.ParentID == "" {
			continue
		}
		parent, ok := byID[el.ParentID]
		if !ok {
			return fmt.Errorf("element %q references missing parent %q", el.ID, el.ParentID)
		}
		if parent.Type != TypeSection {
			return fmt.Errorf("element %q has non-section parent %q", el.ID, el.ParentID)
		}
	}
	return nil
}

// Find returns the element with the given id, or nil.
func (d *Definition) Find(id string) *Element {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return &d.Elements[i]
		}
	}
	return nil
}

// Descendants returns the ids of all elements below the given element in
// the parent tree, computed transitively over ParentID back-references.
// Deleting a section must cascade over exactly this set.
func Descendants(elements []Element, id string) []string {
	doomed := map[string]struct{}{id: {}}
	var out []string

	// Elements reference parents, not children, so grow the doomed set
	// until a sweep adds nothing.
	for {
		grew := false
		for i := range elements {
			el := &elements[i]
			if _, gone := doomed[el.ID]; gone {
				continue
			}
			if el.ParentID == "" {
				continue
			}
			if _, parentGone := doomed[el.ParentID]; parentGone {
				doomed[el.ID] = struct{}{}
				out = append(out, el.ID)
				grew = true
			}
		}
		if !grew {
			return out
		}
	}
}

// RemoveElement deletes an element from the definition, cascading over all
// descendants when a section is removed. It returns the removed ids.
func (d *Definition) RemoveElement(id string) []string {
	if d.Find(id) == nil {
		return nil
	}

	removed := append([]string{id}, Descendants(d.Elements, id)...)
	gone := make(map[string]struct{}, len(removed))
	for _, r := range removed {
		gone[r] = struct{}{}
	}

	kept := d.Elements[:0]
	for _, el := range d.Elements {
		if _, dead := gone[el.ID]; !dead {
			kept = append(kept, el)
		}
	}
	d.Elements = kept
	return removed
}

// DefaultLanguage returns the metadata default language, falling back to
// English.
func (d *Definition) DefaultLanguage() string {
	if d != nil && strings.TrimSpace(d.Metadata.DefaultLanguage) != "" {
		return d.Metadata.DefaultLanguage
	}
	return languageEnglish
}
