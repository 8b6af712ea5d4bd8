package otp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
)

func otpDefinition() *engine.Definition {
	return &engine.Definition{
		Elements: []engine.Element{
			{ID: "name", Type: engine.TypeText, Label: engine.PlainText("Name")},
			{
				ID:    "phone",
				Type:  engine.TypePhoneOTP,
				Label: engine.PlainText("Phone"),
				OTP: &engine.OTPConfig{
					SendEndpoint:   "https://api.example.com/otp/send",
					VerifyEndpoint: "https://api.example.com/otp/verify",
				},
			},
			{ID: "bare", Type: engine.TypeEmailOTP, Label: engine.PlainText("Email")},
		},
	}
}

func newOTPTestRouter(t *testing.T, sender Sender) (chi.Router, *Manager) {
	t.Helper()
	manager := NewManager(0)
	t.Cleanup(manager.Close)

	definitions := func(ctx context.Context, formID string) (*engine.Definition, error) {
		if formID != "f1" {
			return nil, errors.New("not found")
		}
		return otpDefinition(), nil
	}

	router := chi.NewRouter()
	NewHandler(definitions, manager, sender).Mount(router, "")
	return router, manager
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

type snapshotEnvelope struct {
	Data Snapshot `json:"data"`
}

func decodeSnapshot(t *testing.T, recorder *httptest.ResponseRecorder) Snapshot {
	t.Helper()
	var envelope snapshotEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode snapshot: %v body=%s", err, recorder.Body.String())
	}
	return envelope.Data
}

func TestStartSessionSendsCode(t *testing.T) {
	sender := &fakeSender{}
	router, _ := newOTPTestRouter(t, sender)

	recorder := doJSON(t, router, http.MethodPost, "/otp/sessions",
		`{"formId": "f1", "elementId": "phone", "value": "+66812345678"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	if sender.sends != 1 {
		t.Fatalf("sends = %d, want 1", sender.sends)
	}

	snapshot := decodeSnapshot(t, recorder)
	if snapshot.State != StateSent {
		t.Fatalf("state = %q, want sent", snapshot.State)
	}
	if snapshot.ID == "" {
		t.Fatal("snapshot carries no session id")
	}
}

func TestStartSessionGuards(t *testing.T) {
	router, _ := newOTPTestRouter(t, &fakeSender{})

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing value", `{"formId": "f1", "elementId": "phone"}`, http.StatusBadRequest},
		{"unknown form", `{"formId": "ghost", "elementId": "phone", "value": "x"}`, http.StatusNotFound},
		{"unknown element", `{"formId": "f1", "elementId": "ghost", "value": "x"}`, http.StatusNotFound},
		{"non-otp element", `{"formId": "f1", "elementId": "name", "value": "x"}`, http.StatusBadRequest},
		{"unconfigured element", `{"formId": "f1", "elementId": "bare", "value": "x"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doJSON(t, router, http.MethodPost, "/otp/sessions", tc.body)
			if recorder.Code != tc.status {
				t.Fatalf("status = %d, want %d (body=%s)", recorder.Code, tc.status, recorder.Body.String())
			}
		})
	}
}

func TestVerifyFlowOverHTTP(t *testing.T) {
	sender := &fakeSender{}
	router, _ := newOTPTestRouter(t, sender)

	recorder := doJSON(t, router, http.MethodPost, "/otp/sessions",
		`{"formId": "f1", "elementId": "phone", "value": "+66812345678"}`)
	sessionID := decodeSnapshot(t, recorder).ID

	recorder = doJSON(t, router, http.MethodPost, "/otp/sessions/"+sessionID+"/verify", `{"code": "123456"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", recorder.Code, recorder.Body.String())
	}
	if got := decodeSnapshot(t, recorder).State; got != StateVerified {
		t.Fatalf("state = %q, want verified", got)
	}

	// Verified sessions reject further verification attempts.
	recorder = doJSON(t, router, http.MethodPost, "/otp/sessions/"+sessionID+"/verify", `{"code": "123456"}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want conflict", recorder.Code)
	}
}

func TestVerifyRejectionStaysOK(t *testing.T) {
	sender := &fakeSender{verifyErr: &RejectedError{Message: "wrong code"}}
	router, _ := newOTPTestRouter(t, sender)

	recorder := doJSON(t, router, http.MethodPost, "/otp/sessions",
		`{"formId": "f1", "elementId": "phone", "value": "+66812345678"}`)
	sessionID := decodeSnapshot(t, recorder).ID

	recorder = doJSON(t, router, http.MethodPost, "/otp/sessions/"+sessionID+"/verify", `{"code": "000000"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, rejection should surface via the snapshot", recorder.Code)
	}
	snapshot := decodeSnapshot(t, recorder)
	if snapshot.State != StateError {
		t.Fatalf("state = %q, want error", snapshot.State)
	}
	if snapshot.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", snapshot.Attempts)
	}
}

func TestVerifyWithoutCode(t *testing.T) {
	router, _ := newOTPTestRouter(t, &fakeSender{})
	recorder := doJSON(t, router, http.MethodPost, "/otp/sessions",
		`{"formId": "f1", "elementId": "phone", "value": "+66812345678"}`)
	sessionID := decodeSnapshot(t, recorder).ID

	recorder = doJSON(t, router, http.MethodPost, "/otp/sessions/"+sessionID+"/verify", `{"code": ""}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestResendBlockedByCooldown(t *testing.T) {
	router, _ := newOTPTestRouter(t, &fakeSender{})
	recorder := doJSON(t, router, http.MethodPost, "/otp/sessions",
		`{"formId": "f1", "elementId": "phone", "value": "+66812345678"}`)
	sessionID := decodeSnapshot(t, recorder).ID

	recorder = doJSON(t, router, http.MethodPost, "/otp/sessions/"+sessionID+"/resend", "")
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 during cooldown", recorder.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	router, _ := newOTPTestRouter(t, &fakeSender{})
	recorder := doJSON(t, router, http.MethodGet, "/otp/sessions/ghost", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}
