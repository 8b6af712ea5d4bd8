package response

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
)

const (
	// SubmissionPending represents a queued submission.
	SubmissionPending = "pending"
	// SubmissionProcessing represents a submission currently being validated.
	SubmissionProcessing = "processing"
	// SubmissionCompleted marks a submission that produced a response.
	SubmissionCompleted = "completed"
	// SubmissionFailed marks a submission rejected by validation or a
	// permanent error.
	SubmissionFailed = "failed"
)

// FormResponse is one collected answer set for a published form.
type FormResponse struct {
	ID             string            `json:"id" gorm:"type:uuid;primaryKey"`
	FormID         string            `json:"formId" gorm:"type:uuid;not null;index"`
	Data           datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	Completion     int               `json:"completion"`
	CompletionTime int               `json:"completionTime"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ResponseSubmission captures an asynchronous response intake request.
type ResponseSubmission struct {
	ID              string            `json:"id" gorm:"type:uuid;primaryKey"`
	FormID          string            `json:"formId" gorm:"type:uuid;index"`
	ClientReference string            `json:"clientReference" gorm:"type:varchar(128);uniqueIndex"`
	Status          string            `json:"status" gorm:"not null;index"`
	ErrorMessage    string            `json:"errorMessage"`
	ResponseID      *string           `json:"responseId" gorm:"type:uuid;index"`
	RequestPayload  datatypes.JSONMap `json:"requestPayload" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	CompletedAt     *time.Time        `json:"completedAt"`
}

// BeforeCreate assigns a UUID when missing.
func (r *FormResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns defaults on submissions.
func (s *ResponseSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ClientReference == "" {
		s.ClientReference = s.ID
	}
	if s.Status == "" {
		s.Status = SubmissionPending
	}
	return nil
}

// ToDTO converts a response into a serialisable map.
func (r FormResponse) ToDTO() map[string]any {
	payload := map[string]any{
		"id":             r.ID,
		"formId":         r.FormID,
		"completion":     r.Completion,
		"completionTime": r.CompletionTime,
		"createdAt":      r.CreatedAt,
		"updatedAt":      r.UpdatedAt,
	}
	if r.Data != nil {
		payload["data"] = map[string]any(r.Data)
	} else {
		payload["data"] = map[string]any{}
	}
	if r.Metadata != nil {
		payload["metadata"] = map[string]any(r.Metadata)
	}
	return payload
}

// ToDTO exposes submission state for clients polling the queue.
func (s ResponseSubmission) ToDTO() map[string]any {
	dto := map[string]any{
		"id":              s.ID,
		"formId":          s.FormID,
		"clientReference": s.ClientReference,
		"status":          s.Status,
		"createdAt":       s.CreatedAt,
		"updatedAt":       s.UpdatedAt,
	}
	if s.ResponseID != nil {
		dto["responseId"] = *s.ResponseID
	}
	if s.CompletedAt != nil {
		dto["completedAt"] = s.CompletedAt
	}
	if s.ErrorMessage != "" {
		dto["errorMessage"] = s.ErrorMessage
	}
	return dto
}

// SubmissionPayload is the decoded intake request stored on a submission.
type SubmissionPayload struct {
	FormID         string         `json:"formId"`
	Data           engine.Answers `json:"data"`
	CompletionTime int            `json:"completionTime"`
	Language       string         `json:"language"`
	Metadata       map[string]any `json:"metadata"`
}

// Request decodes the stored payload back into its typed form.
func (s ResponseSubmission) Request() (*SubmissionPayload, error) {
	encoded, err := json.Marshal(map[string]any(s.RequestPayload))
	if err != nil {
		return nil, err
	}

	var payload SubmissionPayload
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.FormID) == "" {
		return nil, errors.New("submission missing formId")
	}
	if payload.Data == nil {
		payload.Data = engine.Answers{}
	}
	return &payload, nil
}
