package response

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository defines the persistence contract for collected responses.
type Repository interface {
	List(ctx context.Context, formID string) ([]FormResponse, error)
	Create(ctx context.Context, payload *FormResponse) error
	Find(ctx context.Context, id string) (*FormResponse, error)
	Delete(ctx context.Context, id string) error
}

// GormRepository persists responses to a relational database via GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new response repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// List returns responses, optionally restricted to one form, newest first.
func (r *GormRepository) List(ctx context.Context, formID string) ([]FormResponse, error) {
	query := r.db.WithContext(ctx).Model(&FormResponse{}).Order("created_at DESC")
	if formID != "" {
		query = query.Where("form_id = ?", formID)
	}

	var responses []FormResponse
	if err := query.Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

// Create persists a new response.
func (r *GormRepository) Create(ctx context.Context, payload *FormResponse) error {
	return r.db.WithContext(ctx).Create(payload).Error
}

// Find returns a response by ID.
func (r *GormRepository) Find(ctx context.Context, id string) (*FormResponse, error) {
	var entity FormResponse
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Delete removes a response by ID.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&FormResponse{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether an error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
