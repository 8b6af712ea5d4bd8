package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
	"github.com/Artsadthavud/form-builder-sub000/internal/form"
	"github.com/Artsadthavud/form-builder-sub000/internal/mq"
	"github.com/Artsadthavud/form-builder-sub000/internal/observability"
)

// QueueWorker validates queued submissions against their form definition
// and materialises accepted ones as responses.
type QueueWorker struct {
	store SubmissionStore
	repo  Repository
	forms form.Repository
}

// NewQueueWorker constructs a queue worker.
func NewQueueWorker(store SubmissionStore, repo Repository, forms form.Repository) *QueueWorker {
	return &QueueWorker{store: store, repo: repo, forms: forms}
}

// HandleMessage consumes one submission message from the queue.
func (w *QueueWorker) HandleMessage(ctx context.Context, msg mq.Message) error {
	if w == nil || w.store == nil || w.repo == nil || w.forms == nil {
		return fmt.Errorf("response worker not initialised")
	}

	var payload struct {
		SubmissionID string `json:"submissionId"`
	}
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("decode submission message: %w", err)
	}
	if strings.TrimSpace(payload.SubmissionID) == "" {
		return fmt.Errorf("submission id missing from message")
	}

	submission, err := w.store.FindByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("response worker: submission %s not found, skipping", payload.SubmissionID)
			return nil
		}
		return err
	}

	if submission.Status == SubmissionCompleted {
		return nil
	}

	submission.Status = SubmissionProcessing
	submission.ErrorMessage = ""
	if err := w.store.Save(ctx, submission); err != nil {
		return err
	}

	entity, err := w.process(ctx, submission)
	if err != nil {
		observability.SubmissionsProcessed.WithLabelValues("failed").Inc()
		submission.Status = SubmissionFailed
		submission.ErrorMessage = err.Error()
		if saveErr := w.store.Save(ctx, submission); saveErr != nil {
			log.Printf("response worker: failed to persist submission failure: %v", saveErr)
		}
		return err
	}

	submission.Status = SubmissionCompleted
	submission.ResponseID = &entity.ID
	now := time.Now()
	submission.CompletedAt = &now
	if err := w.store.Save(ctx, submission); err != nil {
		return err
	}

	observability.SubmissionsProcessed.WithLabelValues("completed").Inc()
	log.Printf("response worker: processed submission %s -> response %s", submission.ID, entity.ID)
	return nil
}

// process validates the submission's answers against the stored form and
// creates the response record.
func (w *QueueWorker) process(ctx context.Context, submission *ResponseSubmission) (*FormResponse, error) {
	request, err := submission.Request()
	if err != nil {
		return nil, err
	}

	stored, err := w.forms.Find(ctx, request.FormID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("form %s not found", request.FormID)
		}
		return nil, err
	}

	def, err := stored.ParseDefinition()
	if err != nil {
		return nil, err
	}

	result := engine.Evaluate(def, request.Data, request.Language)
	if result.Completion < 100 {
		return nil, fmt.Errorf("form incomplete: %s", firstValidationMessage(result))
	}

	entity := &FormResponse{
		FormID:         stored.ID,
		Data:           datatypes.JSONMap(request.Data),
		Completion:     result.Completion,
		CompletionTime: request.CompletionTime,
	}
	if request.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(request.Metadata)
	}

	if err := w.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// RunConsumer starts the provided consumer using the worker handler.
func (w *QueueWorker) RunConsumer(ctx context.Context, consumer *mq.Consumer) error {
	if consumer == nil {
		return fmt.Errorf("consumer is nil")
	}
	return consumer.Run(ctx)
}

func firstValidationMessage(result *engine.Result) string {
	for _, id := range result.Visible {
		if verr, ok := result.Errors[id]; ok && verr != nil {
			return fmt.Sprintf("%s: %s", id, verr.Message)
		}
	}
	return "required fields missing"
}
