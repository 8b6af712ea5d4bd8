package form

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
	"github.com/Artsadthavud/form-builder-sub000/internal/httpx"
	"github.com/Artsadthavud/form-builder-sub000/internal/observability"
)

// Handler exposes the form management and evaluation endpoints.
type Handler struct {
	repo Repository
}

// NewHandler constructs a Handler backed by the provided repository.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Mount registers the form routes on the provided router under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/forms"
	}

	router.Route(path, func(r chi.Router) {
		r.Get("/", h.listForms)
		r.Post("/", h.createForm)
		r.Post("/evaluate", h.evaluateInline)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getForm)
			r.Put("/", h.updateForm)
			r.Delete("/", h.deleteForm)
			r.Post("/publish", h.setPublished(true))
			r.Post("/unpublish", h.setPublished(false))
			r.Post("/evaluate", h.evaluateForm)
			r.Delete("/elements/{elementId}", h.deleteElement)
		})
	})
}

type createFormRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Definition  json.RawMessage `json:"definition"`
}

type updateFormRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Definition  json.RawMessage `json:"definition"`
}

type evaluateRequest struct {
	Answers    engine.Answers  `json:"answers"`
	Language   string          `json:"language"`
	Definition json.RawMessage `json:"definition,omitempty"`
}

func (h *Handler) listForms(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:        strings.TrimSpace(r.URL.Query().Get("search")),
		PublishedOnly: r.URL.Query().Get("published") == "true",
	}
	forms, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(forms))
	for _, entity := range forms {
		items = append(items, entity.ToDTO())
	}

	httpx.Data(w, http.StatusOK, items)
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	var payload createFormRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		httpx.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	entity := &Form{
		Name:        name,
		Description: strings.TrimSpace(payload.Description),
	}
	if len(payload.Definition) > 0 {
		if _, err := engine.ParseDefinition(payload.Definition); err != nil {
			httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		entity.Definition = datatypes.JSON(payload.Definition)
	}

	if err := h.repo.Create(r.Context(), entity); err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusCreated, entity.ToDTO())
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.Data(w, http.StatusOK, entity.ToDTO())
}

func (h *Handler) updateForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload updateFormRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := make(map[string]any)
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			httpx.Error(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		updates["name"] = name
	}
	if payload.Description != nil {
		updates["description"] = strings.TrimSpace(*payload.Description)
	}
	if len(payload.Definition) > 0 {
		if _, err := engine.ParseDefinition(payload.Definition); err != nil {
			httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		updates["definition"] = datatypes.JSON(payload.Definition)
	}
	if len(updates) == 0 {
		httpx.Error(w, http.StatusBadRequest, "no updates provided")
		return
	}

	entity, err := h.repo.Update(r.Context(), id, updates)
	if err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "form not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusOK, entity.ToDTO())
}

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "form not found")
			return
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPublished(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		entity, err := h.repo.Update(r.Context(), id, map[string]any{"published": published})
		if err != nil {
			if IsNotFound(err) {
				httpx.Error(w, http.StatusNotFound, "form not found")
				return
			}
			httpx.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		httpx.Data(w, http.StatusOK, entity.ToDTO())
	}
}

// deleteElement removes one element from the stored definition. Removing
// a section cascades over every descendant.
func (h *Handler) deleteElement(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.load(w, r)
	if !ok {
		return
	}

	def, err := entity.ParseDefinition()
	if err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	elementID := chi.URLParam(r, "elementId")
	removed := def.RemoveElement(elementID)
	if removed == nil {
		httpx.Error(w, http.StatusNotFound, "element not found")
		return
	}

	encoded, err := json.Marshal(def)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := h.repo.Update(r.Context(), entity.ID, map[string]any{"definition": datatypes.JSON(encoded)})
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.Data(w, http.StatusOK, map[string]any{
		"form":    updated.ToDTO(),
		"removed": removed,
	})
}

// evaluateForm runs one engine pass over a stored form's definition.
func (h *Handler) evaluateForm(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.load(w, r)
	if !ok {
		return
	}

	var payload evaluateRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := entity.ParseDefinition()
	if err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.respondEvaluation(w, def, payload)
}

// evaluateInline runs one engine pass over a definition supplied in the
// request, for editor previews of unsaved forms.
func (h *Handler) evaluateInline(w http.ResponseWriter, r *http.Request) {
	var payload evaluateRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload.Definition) == 0 {
		httpx.Error(w, http.StatusBadRequest, "definition is required")
		return
	}

	def, err := engine.ParseDefinition(payload.Definition)
	if err != nil {
		httpx.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.respondEvaluation(w, def, payload)
}

func (h *Handler) respondEvaluation(w http.ResponseWriter, def *engine.Definition, payload evaluateRequest) {
	answers := payload.Answers
	if answers == nil {
		answers = engine.Answers{}
	}

	result := engine.Evaluate(def, answers, payload.Language)
	observability.EvaluationsTotal.Inc()

	httpx.Data(w, http.StatusOK, result)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Form, bool) {
	id := chi.URLParam(r, "id")
	entity, err := h.repo.Find(r.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "form not found")
			return nil, false
		}
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return entity, true
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
