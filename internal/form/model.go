package form

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
)

// Form is a persisted form definition: metadata plus the flat element
// collection the engine evaluates.
type Form struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	Definition  datatypes.JSON `json:"definition" gorm:"type:jsonb"`
	Published   bool           `json:"published" gorm:"index"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BeforeCreate ensures that a UUID is present for new records.
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// ParseDefinition decodes the stored definition for evaluation.
func (f Form) ParseDefinition() (*engine.Definition, error) {
	if len(f.Definition) == 0 {
		return &engine.Definition{}, nil
	}
	return engine.ParseDefinition(f.Definition)
}

// ToDTO converts the model into a response-friendly structure.
func (f Form) ToDTO() map[string]any {
	definition := json.RawMessage(`{}`)
	if len(f.Definition) > 0 {
		definition = json.RawMessage(f.Definition)
	}

	return map[string]any{
		"id":          f.ID,
		"name":        f.Name,
		"description": f.Description,
		"definition":  definition,
		"published":   f.Published,
		"createdAt":   f.CreatedAt,
		"updatedAt":   f.UpdatedAt,
	}
}
