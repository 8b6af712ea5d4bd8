package httpx

import (
	"encoding/json"
	"log"
	"net/http"
)

// The API speaks one envelope: successful responses carry their payload
// under "data", failures carry a message under "error".

// Data writes a success payload inside the data envelope.
func Data(w http.ResponseWriter, status int, payload any) {
	write(w, status, map[string]any{"data": payload})
}

// Error writes a failure message inside the error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, map[string]any{"error": message})
}

// write marshals before touching the ResponseWriter so an encoding
// failure can still produce a clean 500 instead of a half-written body.
func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("httpx: failed to encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}
