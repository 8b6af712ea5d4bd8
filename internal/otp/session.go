package otp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// State names one phase of the verification lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateSent      State = "sent"
	StateVerifying State = "verifying"
	StateVerified  State = "verified"
	StateError     State = "error"
)

const (
	defaultCodeLength         = 6
	defaultResendDelaySeconds = 30
	defaultMaxAttempts        = 3
)

var (
	// ErrNotConfigured is returned when an endpoint is missing.
	ErrNotConfigured = errors.New("otp: API endpoint not configured")
	// ErrNoValue is returned when there is nothing to verify yet.
	ErrNoValue = errors.New("otp: no value to verify")
	// ErrInFlight is returned while a send or verify call is pending.
	ErrInFlight = errors.New("otp: request already in flight")
	// ErrCooldown is returned when resend is requested before the
	// cooldown elapsed.
	ErrCooldown = errors.New("otp: resend not available yet")
	// ErrAlreadyVerified is returned once the session reached its
	// terminal success state.
	ErrAlreadyVerified = errors.New("otp: already verified")
	// ErrNotSent is returned when verify is attempted before any code
	// was sent.
	ErrNotSent = errors.New("otp: no code has been sent")
	// ErrLockedOut is returned once the attempt budget is exhausted.
	// A successful re-send resets the budget.
	ErrLockedOut = errors.New("otp: too many attempts")
	// ErrNoCode is returned when verify is called with an empty code.
	ErrNoCode = errors.New("otp: code is required")
	// ErrCodeLength is returned when the entered code does not match the
	// configured length. Checked before the network call so a malformed
	// code never consumes an attempt.
	ErrCodeLength = errors.New("otp: code has the wrong length")
)

// Config describes the externally configured verification endpoints for
// one OTP element.
type Config struct {
	SendEndpoint       string
	VerifyEndpoint     string
	ValueFieldName     string
	OTPFieldName       string
	Headers            map[string]string
	CodeLength         int
	ResendDelaySeconds int
	MaxAttempts        int
}

func (cfg Config) normalize() Config {
	normalized := cfg
	normalized.SendEndpoint = strings.TrimSpace(normalized.SendEndpoint)
	normalized.VerifyEndpoint = strings.TrimSpace(normalized.VerifyEndpoint)
	if strings.TrimSpace(normalized.ValueFieldName) == "" {
		normalized.ValueFieldName = "value"
	}
	if strings.TrimSpace(normalized.OTPFieldName) == "" {
		normalized.OTPFieldName = "otp"
	}
	if normalized.CodeLength <= 0 {
		normalized.CodeLength = defaultCodeLength
	}
	if normalized.ResendDelaySeconds <= 0 {
		normalized.ResendDelaySeconds = defaultResendDelaySeconds
	}
	if normalized.MaxAttempts <= 0 {
		normalized.MaxAttempts = defaultMaxAttempts
	}
	return normalized
}

// Sender performs the outbound send/verify calls. *Client is the
// production implementation; tests substitute their own.
type Sender interface {
	Send(ctx context.Context, cfg Config, value string) error
	Verify(ctx context.Context, cfg Config, value, code string) error
}

// Session is the verification state machine for one OTP field instance.
// Sessions are independent of each other; all methods are safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	cfg        Config
	value      string
	state      State
	attempts   int
	lastSentAt time.Time
	touchedAt  time.Time
	lastError  string

	now func() time.Time
}

// NewSession builds an idle session for the given value. The now function
// may be nil, in which case time.Now is used; tests inject their own clock.
func NewSession(id string, cfg Config, value string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:        id,
		cfg:       cfg.normalize(),
		value:     strings.TrimSpace(value),
		state:     StateIdle,
		touchedAt: now(),
		now:       now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot is a point-in-time view of the session for API responses.
type Snapshot struct {
	ID              string `json:"id"`
	State           State  `json:"state"`
	Attempts        int    `json:"attempts"`
	MaxAttempts     int    `json:"maxAttempts"`
	CanResend       bool   `json:"canResend"`
	CooldownSeconds int    `json:"cooldownSeconds"`
	Message         string `json:"message,omitempty"`
}

// Snapshot reports the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:              s.id,
		State:           s.state,
		Attempts:        s.attempts,
		MaxAttempts:     s.cfg.MaxAttempts,
		CanResend:       s.resendAllowedLocked(),
		CooldownSeconds: s.cooldownRemainingLocked(),
		Message:         s.lastError,
	}
}

// Send requests a code delivery. Guards: a value must be present, the send
// endpoint must be configured, no call may be in flight, the session must
// not be verified, and the resend cooldown must have elapsed. A successful
// send starts a fresh cooldown and resets the attempt counter, so a locked
// out user recovers by requesting a new code.
func (s *Session) Send(ctx context.Context, sender Sender) error {
	s.mu.Lock()
	switch s.state {
	case StateVerified:
		s.mu.Unlock()
		return ErrAlreadyVerified
	case StateSending, StateVerifying:
		s.mu.Unlock()
		return ErrInFlight
	}
	if s.value == "" {
		s.mu.Unlock()
		return ErrNoValue
	}
	if s.cfg.SendEndpoint == "" {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	if !s.resendAllowedLocked() {
		s.mu.Unlock()
		return ErrCooldown
	}
	s.state = StateSending
	s.lastError = ""
	s.touch()
	cfg, value := s.cfg, s.value
	s.mu.Unlock()

	err := sender.Send(ctx, cfg, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err != nil {
		s.state = StateError
		s.lastError = errorMessage(err)
		return err
	}
	s.state = StateSent
	s.lastSentAt = s.now()
	s.attempts = 0
	return nil
}

// Verify submits an entered code. The session must have a sent code, the
// attempt budget must not be exhausted, and no other call may be pending.
// A server rejection consumes one attempt; a transport failure does not.
func (s *Session) Verify(ctx context.Context, sender Sender, code string) error {
	code = strings.TrimSpace(code)

	s.mu.Lock()
	switch s.state {
	case StateVerified:
		s.mu.Unlock()
		return ErrAlreadyVerified
	case StateSending, StateVerifying:
		s.mu.Unlock()
		return ErrInFlight
	case StateIdle:
		s.mu.Unlock()
		return ErrNotSent
	}
	if s.lastSentAt.IsZero() {
		s.mu.Unlock()
		return ErrNotSent
	}
	if code == "" {
		s.mu.Unlock()
		return ErrNoCode
	}
	if len(code) != s.cfg.CodeLength {
		s.mu.Unlock()
		return ErrCodeLength
	}
	if s.cfg.VerifyEndpoint == "" {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	if s.attempts >= s.cfg.MaxAttempts {
		s.mu.Unlock()
		return ErrLockedOut
	}
	s.state = StateVerifying
	s.lastError = ""
	s.touch()
	cfg, value := s.cfg, s.value
	s.mu.Unlock()

	err := sender.Verify(ctx, cfg, value, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err == nil {
		s.state = StateVerified
		return nil
	}

	s.state = StateError
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		s.attempts++
		s.lastError = rejected.Message
		return err
	}
	s.lastError = errorMessage(err)
	return err
}

// Verified reports whether the session reached its terminal success state.
// Once verified, edits to the underlying value are no longer meaningful.
func (s *Session) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateVerified
}

// IdleSince reports the last state change, used by the manager to expire
// abandoned sessions.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) touch() {
	s.touchedAt = s.now()
}

func (s *Session) resendAllowedLocked() bool {
	if s.state == StateVerified || s.state == StateSending || s.state == StateVerifying {
		return false
	}
	return s.cooldownRemainingLocked() == 0
}

func (s *Session) cooldownRemainingLocked() int {
	if s.lastSentAt.IsZero() {
		return 0
	}
	deadline := s.lastSentAt.Add(time.Duration(s.cfg.ResendDelaySeconds) * time.Second)
	remaining := deadline.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func errorMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	// Transport problems surface as a generic message; the real cause
	// stays in the logs.
	return "network error"
}
