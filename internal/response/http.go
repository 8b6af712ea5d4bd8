package response

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Artsadthavud/form-builder-sub000/internal/httpx"
)

// SubmissionCoordinator coordinates asynchronous submissions.
type SubmissionCoordinator interface {
	Submit(ctx context.Context, req SubmissionRequest) (*ResponseSubmission, error)
	Lookup(ctx context.Context, id string) (*ResponseSubmission, error)
	List(ctx context.Context, formID string, limit int) ([]ResponseSubmission, error)
	Metrics(ctx context.Context, formID string) (SubmissionMetrics, error)
}

// Handler exposes HTTP handlers for collected responses.
type Handler struct {
	repo        Repository
	coordinator SubmissionCoordinator
}

// HandlerOption customises the handler behaviour.
type HandlerOption func(*Handler)

// WithSubmissionCoordinator attaches an asynchronous submission coordinator to the handler.
func WithSubmissionCoordinator(coordinator SubmissionCoordinator) HandlerOption {
	return func(h *Handler) {
		h.coordinator = coordinator
	}
}

// NewHandler builds a response HTTP handler backed by the given repository.
func NewHandler(repo Repository, opts ...HandlerOption) *Handler {
	handler := &Handler{repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Mount registers the response routes on the provided router under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/responses"
	}

	router.Route(path, func(r chi.Router) {
		r.Get("/", h.listResponses)

		if h.coordinator != nil {
			r.Route("/submissions", func(r chi.Router) {
				r.Get("/", h.listSubmissions)
				r.Post("/", h.submitResponse)
				r.Get("/{id}", h.getSubmission)
			})
			r.Get("/queue-metrics", h.queueMetrics)
		}

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getResponse)
			r.Delete("/", h.deleteResponse)
		})
	})
}

type submitRequest struct {
	FormID          string         `json:"formId"`
	Data            map[string]any `json:"data"`
	CompletionTime  int            `json:"completionTime"`
	Language        string         `json:"language"`
	Metadata        map[string]any `json:"metadata"`
	ClientReference string         `json:"clientReference"`
}

func (h *Handler) listResponses(w http.ResponseWriter, r *http.Request) {
	formID := strings.TrimSpace(r.URL.Query().Get("formId"))
	responses, err := h.repo.List(r.Context(), formID)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(responses))
	for _, entity := range responses {
		items = append(items, entity.ToDTO())
	}

	httpx.Data(w, http.StatusOK, items)
}

func (h *Handler) getResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, err := h.repo.Find(r.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "response not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusOK, entity.ToDTO())
}

func (h *Handler) deleteResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "response not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitResponse(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.FormID) == "" {
		httpx.Error(w, http.StatusBadRequest, "formId is required")
		return
	}

	request := SubmissionRequest{
		FormID:          strings.TrimSpace(payload.FormID),
		ClientReference: strings.TrimSpace(payload.ClientReference),
		Payload: map[string]any{
			"formId":         payload.FormID,
			"data":           payload.Data,
			"completionTime": payload.CompletionTime,
			"language":       payload.Language,
		},
	}
	if payload.Metadata != nil {
		request.Payload["metadata"] = payload.Metadata
	}

	submission, err := h.coordinator.Submit(r.Context(), request)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusAccepted, submission.ToDTO())
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	submission, err := h.coordinator.Lookup(r.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "submission not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusOK, submission.ToDTO())
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := strings.TrimSpace(r.URL.Query().Get("formId"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	submissions, err := h.coordinator.List(r.Context(), formID, limit)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(submissions))
	for _, entity := range submissions {
		items = append(items, entity.ToDTO())
	}

	httpx.Data(w, http.StatusOK, items)
}

func (h *Handler) queueMetrics(w http.ResponseWriter, r *http.Request) {
	formID := strings.TrimSpace(r.URL.Query().Get("formId"))
	metrics, err := h.coordinator.Metrics(r.Context(), formID)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusOK, metrics)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
