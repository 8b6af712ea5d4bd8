package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Artsadthavud/form-builder-sub000/internal/mq"
)

// SubmissionRequest captures the normalized payload for asynchronous intake.
type SubmissionRequest struct {
	FormID          string
	ClientReference string
	Payload         map[string]any
}

// QueueCoordinator orchestrates submission persistence and queue publication.
type QueueCoordinator struct {
	store    SubmissionStore
	producer *mq.Producer
}

// NewQueueCoordinator constructs a queue-backed submission coordinator.
func NewQueueCoordinator(store SubmissionStore, producer *mq.Producer) *QueueCoordinator {
	return &QueueCoordinator{store: store, producer: producer}
}

// Submit persists a submission and enqueues it for asynchronous
// validation. Submissions carrying a known client reference are returned
// as-is instead of being enqueued twice.
func (c *QueueCoordinator) Submit(ctx context.Context, req SubmissionRequest) (*ResponseSubmission, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("submission coordinator not initialised")
	}

	if ref := strings.TrimSpace(req.ClientReference); ref != "" {
		existing, err := c.store.FindByClientReference(ctx, ref)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	submission := &ResponseSubmission{
		FormID:          strings.TrimSpace(req.FormID),
		ClientReference: strings.TrimSpace(req.ClientReference),
		Status:          SubmissionPending,
		RequestPayload:  datatypes.JSONMap(req.Payload),
	}
	if err := c.store.Create(ctx, submission); err != nil {
		return nil, err
	}

	message, err := json.Marshal(map[string]string{"submissionId": submission.ID})
	if err != nil {
		return nil, err
	}

	if err := c.producer.Publish(ctx, submission.ID, message); err != nil {
		submission.Status = SubmissionFailed
		submission.ErrorMessage = fmt.Sprintf("enqueue failed: %v", err)
		if saveErr := c.store.Save(ctx, submission); saveErr != nil {
			log.Printf("response queue: failed to persist enqueue failure: %v", saveErr)
		}
		return nil, err
	}

	return submission, nil
}

// Lookup returns a submission by id.
func (c *QueueCoordinator) Lookup(ctx context.Context, id string) (*ResponseSubmission, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("submission coordinator not initialised")
	}
	return c.store.FindByID(ctx, id)
}

// List returns recent submissions, optionally scoped to one form.
func (c *QueueCoordinator) List(ctx context.Context, formID string, limit int) ([]ResponseSubmission, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("submission coordinator not initialised")
	}
	return c.store.ListForForm(ctx, formID, limit)
}

// Metrics reports queue aggregates, optionally scoped to one form.
func (c *QueueCoordinator) Metrics(ctx context.Context, formID string) (SubmissionMetrics, error) {
	if c == nil || c.store == nil {
		return SubmissionMetrics{}, errors.New("submission coordinator not initialised")
	}
	return c.store.Metrics(ctx, formID)
}
