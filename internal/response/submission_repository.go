package response

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SubmissionMetrics exposes aggregated queue insights, optionally scoped
// to one form.
type SubmissionMetrics struct {
	Pending              int `json:"pending"`
	Processing           int `json:"processing"`
	Completed            int `json:"completed"`
	Failed               int `json:"failed"`
	OldestPendingSeconds int `json:"oldestPendingSeconds"`
}

// Total returns the number of submissions the metrics cover.
func (m SubmissionMetrics) Total() int {
	return m.Pending + m.Processing + m.Completed + m.Failed
}

// SubmissionStore handles persistence of response submissions.
type SubmissionStore interface {
	Create(ctx context.Context, submission *ResponseSubmission) error
	Save(ctx context.Context, submission *ResponseSubmission) error
	FindByID(ctx context.Context, id string) (*ResponseSubmission, error)
	FindByClientReference(ctx context.Context, ref string) (*ResponseSubmission, error)
	ListForForm(ctx context.Context, formID string, limit int) ([]ResponseSubmission, error)
	Metrics(ctx context.Context, formID string) (SubmissionMetrics, error)
}

// GormSubmissionRepository persists submissions via GORM.
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs a repository backed by the provided DB connection.
func NewSubmissionRepository(db *gorm.DB) *GormSubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

// Create inserts a new submission.
func (r *GormSubmissionRepository) Create(ctx context.Context, submission *ResponseSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// Save persists changes to a submission.
func (r *GormSubmissionRepository) Save(ctx context.Context, submission *ResponseSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// FindByID locates a submission by primary key.
func (r *GormSubmissionRepository) FindByID(ctx context.Context, id string) (*ResponseSubmission, error) {
	var entity ResponseSubmission
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindByClientReference locates a submission by idempotency key.
func (r *GormSubmissionRepository) FindByClientReference(ctx context.Context, ref string) (*ResponseSubmission, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var entity ResponseSubmission
	if err := r.db.WithContext(ctx).First(&entity, "client_reference = ?", ref).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListForForm returns a form's submissions, newest first, so a form owner
// can inspect what the queue did with their intake.
func (r *GormSubmissionRepository) ListForForm(ctx context.Context, formID string, limit int) ([]ResponseSubmission, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&ResponseSubmission{}).
		Order("created_at DESC").
		Limit(limit)
	if formID != "" {
		query = query.Where("form_id = ?", formID)
	}

	var submissions []ResponseSubmission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// Metrics aggregates submission counts per status and the age of the
// oldest unfinished submission. An empty formID covers the whole queue.
func (r *GormSubmissionRepository) Metrics(ctx context.Context, formID string) (SubmissionMetrics, error) {
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&ResponseSubmission{})
		if formID != "" {
			query = query.Where("form_id = ?", formID)
		}
		return query
	}

	var rows []struct {
		Status string
		Total  int
	}
	if err := scope().
		Select("status, COUNT(*) as total").
		Group("status").
		Find(&rows).Error; err != nil {
		return SubmissionMetrics{}, err
	}

	metrics := SubmissionMetrics{}
	counters := map[string]*int{
		SubmissionPending:    &metrics.Pending,
		SubmissionProcessing: &metrics.Processing,
		SubmissionCompleted:  &metrics.Completed,
		SubmissionFailed:     &metrics.Failed,
	}
	for _, row := range rows {
		if counter, ok := counters[row.Status]; ok {
			*counter += row.Total
		}
	}

	var oldest ResponseSubmission
	err := scope().
		Where("status IN ?", []string{SubmissionPending, SubmissionProcessing}).
		Order("created_at ASC").
		Limit(1).
		Find(&oldest).Error
	if err != nil {
		return metrics, err
	}
	if !oldest.CreatedAt.IsZero() {
		if wait := time.Since(oldest.CreatedAt); wait > 0 {
			metrics.OldestPendingSeconds = int(wait.Seconds())
		}
	}

	return metrics, nil
}
