package otp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
	"github.com/Artsadthavud/form-builder-sub000/internal/httpx"
	"github.com/Artsadthavud/form-builder-sub000/internal/observability"
)

// DefinitionFunc loads the definition of a stored form, so OTP sessions
// pick up the endpoints configured on the element being verified.
type DefinitionFunc func(ctx context.Context, formID string) (*engine.Definition, error)

// Handler relays OTP send/verify calls for form elements. The actual
// endpoints come from each element's configuration; this handler only
// drives the session state machine.
type Handler struct {
	definitions DefinitionFunc
	manager     *Manager
	sender      Sender
}

// NewHandler constructs the OTP relay handler.
func NewHandler(definitions DefinitionFunc, manager *Manager, sender Sender) *Handler {
	return &Handler{definitions: definitions, manager: manager, sender: sender}
}

// Mount registers the OTP routes on the provided router under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/otp"
	}

	router.Route(path, func(r chi.Router) {
		r.Post("/sessions", h.startSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Post("/verify", h.verify)
			r.Post("/resend", h.resend)
		})
	})
}

type startSessionRequest struct {
	FormID    string `json:"formId"`
	ElementID string `json:"elementId"`
	Value     string `json:"value"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var payload startSessionRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.Value) == "" {
		httpx.Error(w, http.StatusBadRequest, "value is required")
		return
	}

	def, err := h.definitions(r.Context(), payload.FormID)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "form not found")
		return
	}

	element := def.Find(payload.ElementID)
	if element == nil {
		httpx.Error(w, http.StatusNotFound, "element not found")
		return
	}
	if element.Type != engine.TypePhoneOTP && element.Type != engine.TypeEmailOTP {
		httpx.Error(w, http.StatusBadRequest, "element is not an OTP field")
		return
	}
	if element.OTP == nil || strings.TrimSpace(element.OTP.SendEndpoint) == "" {
		// Missing endpoints leave the field inert rather than broken.
		httpx.Error(w, http.StatusUnprocessableEntity, "OTP API not configured")
		return
	}

	session := h.manager.Start(configFromElement(element.OTP), payload.Value)
	h.send(r.Context(), w, session, http.StatusCreated)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	httpx.Data(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var payload verifyRequest
	if err := decodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	err := session.Verify(r.Context(), h.sender, payload.Code)
	if status, msg, guard := guardStatus(err); guard {
		observability.OTPVerifies.WithLabelValues("blocked").Inc()
		httpx.Error(w, status, msg)
		return
	}

	switch {
	case err == nil:
		observability.OTPVerifies.WithLabelValues("verified").Inc()
	case isRejection(err):
		observability.OTPVerifies.WithLabelValues("rejected").Inc()
	default:
		observability.OTPVerifies.WithLabelValues("error").Inc()
	}

	// The session state, not the transport outcome, is the API surface.
	httpx.Data(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	h.send(r.Context(), w, session, http.StatusOK)
}

func (h *Handler) send(ctx context.Context, w http.ResponseWriter, session *Session, okStatus int) {
	err := session.Send(ctx, h.sender)
	if status, msg, guard := guardStatus(err); guard {
		observability.OTPSends.WithLabelValues("blocked").Inc()
		httpx.Error(w, status, msg)
		return
	}

	if err == nil {
		observability.OTPSends.WithLabelValues("sent").Inc()
	} else {
		observability.OTPSends.WithLabelValues("error").Inc()
	}

	httpx.Data(w, okStatus, session.Snapshot())
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	session, err := h.manager.Get(id)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

// guardStatus maps the session's precondition failures to HTTP statuses.
// Transport and rejection outcomes are not guards; they surface through
// the session snapshot instead.
func guardStatus(err error) (int, string, bool) {
	switch {
	case err == nil:
		return 0, "", false
	case errors.Is(err, ErrNoValue), errors.Is(err, ErrNoCode), errors.Is(err, ErrCodeLength):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, ErrNotConfigured):
		return http.StatusUnprocessableEntity, "OTP API not configured", true
	case errors.Is(err, ErrInFlight), errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrNotSent):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, ErrCooldown), errors.Is(err, ErrLockedOut):
		return http.StatusTooManyRequests, err.Error(), true
	}
	return 0, "", false
}

func isRejection(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

func configFromElement(cfg *engine.OTPConfig) Config {
	return Config{
		SendEndpoint:       cfg.SendEndpoint,
		VerifyEndpoint:     cfg.VerifyEndpoint,
		ValueFieldName:     cfg.ValueFieldName,
		OTPFieldName:       cfg.OTPFieldName,
		Headers:            cfg.Headers,
		CodeLength:         cfg.CodeLength,
		ResendDelaySeconds: cfg.ResendDelaySeconds,
		MaxAttempts:        cfg.MaxAttempts,
	}
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
