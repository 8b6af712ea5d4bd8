package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RejectedError signals that the verification endpoint refused the code.
// Rejections consume a verify attempt; transport failures do not.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "otp: code rejected"
	}
	return "otp: " + e.Message
}

// Client performs the outbound send/verify HTTP calls against the
// endpoints configured per element. No response shape is assumed beyond
// the status code and an optional {success, message} body.
type Client struct {
	http *http.Client
}

// NewClient constructs a client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Send requests code delivery: POST {valueFieldName: value} to the send
// endpoint. Any 2xx status counts as accepted.
func (c *Client) Send(ctx context.Context, cfg Config, value string) error {
	cfg = cfg.normalize()
	body := map[string]string{cfg.ValueFieldName: value}

	status, _, err := c.post(ctx, cfg.SendEndpoint, cfg.Headers, body)
	if err != nil {
		return fmt.Errorf("otp send: %w", err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("otp send: endpoint returned status %d", status)
	}
	return nil
}

// Verify submits a code: POST {valueFieldName: value, otpFieldName: code}.
// A 2xx response whose body does not carry success=false confirms the
// code; anything else is a rejection.
func (c *Client) Verify(ctx context.Context, cfg Config, value, code string) error {
	cfg = cfg.normalize()
	body := map[string]string{
		cfg.ValueFieldName: value,
		cfg.OTPFieldName:   code,
	}

	status, payload, err := c.post(ctx, cfg.VerifyEndpoint, cfg.Headers, body)
	if err != nil {
		return fmt.Errorf("otp verify: %w", err)
	}

	var result struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	// The body is optional and may not be JSON at all.
	_ = json.Unmarshal(payload, &result)

	if status < 200 || status > 299 {
		return &RejectedError{Message: result.Message}
	}
	if result.Success != nil && !*result.Success {
		return &RejectedError{Message: result.Message}
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, headers map[string]string, body any) (int, []byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, payload, nil
}
