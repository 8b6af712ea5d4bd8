package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSender scripts send/verify outcomes.
type fakeSender struct {
	sendErr   error
	verifyErr error
	sends     int
	verifies  int
}

func (f *fakeSender) Send(ctx context.Context, cfg Config, value string) error {
	f.sends++
	return f.sendErr
}

func (f *fakeSender) Verify(ctx context.Context, cfg Config, value, code string) error {
	f.verifies++
	return f.verifyErr
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(clock *fakeClock, cfg Config) *Session {
	return NewSession("s1", cfg, "+66812345678", clock.now)
}

func TestSessionHappyPath(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify"})

	if got := session.Snapshot().State; got != StateIdle {
		t.Fatalf("initial state = %s", got)
	}

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := session.Snapshot().State; got != StateSent {
		t.Fatalf("state after send = %s", got)
	}

	if err := session.Verify(context.Background(), sender, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.Verified() {
		t.Fatal("session should be verified")
	}
	if sender.sends != 1 || sender.verifies != 1 {
		t.Fatalf("calls: %d sends, %d verifies", sender.sends, sender.verifies)
	}
}

func TestSessionSendGuards(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}

	noValue := NewSession("s", Config{SendEndpoint: "http://send"}, "  ", clock.now)
	if err := noValue.Send(context.Background(), sender); !errors.Is(err, ErrNoValue) {
		t.Fatalf("expected ErrNoValue, got %v", err)
	}

	noEndpoint := NewSession("s", Config{}, "+66", clock.now)
	if err := noEndpoint.Send(context.Background(), sender); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	if sender.sends != 0 {
		t.Fatalf("guards must not reach the sender, got %d calls", sender.sends)
	}
}

func TestSessionResendCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", ResendDelaySeconds: 30})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Immediately after a send, resend is blocked.
	if err := session.Send(context.Background(), sender); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown, got %v", err)
	}
	snap := session.Snapshot()
	if snap.CanResend || snap.CooldownSeconds != 30 {
		t.Fatalf("snapshot during cooldown: %+v", snap)
	}

	clock.advance(29 * time.Second)
	if err := session.Send(context.Background(), sender); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown at 29s, got %v", err)
	}

	clock.advance(2 * time.Second)
	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	if sender.sends != 2 {
		t.Fatalf("sends = %d, want 2", sender.sends)
	}
}

func TestSessionSendFailureIsRetryable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{sendErr: errors.New("connection refused")}
	session := newTestSession(clock, Config{SendEndpoint: "http://send"})

	if err := session.Send(context.Background(), sender); err == nil {
		t.Fatal("expected send failure")
	}
	snap := session.Snapshot()
	if snap.State != StateError || snap.Message != "network error" {
		t.Fatalf("snapshot after failure: %+v", snap)
	}
	// A failed send never started the cooldown, so retry is immediate.
	if !snap.CanResend {
		t.Fatal("failed send must allow retry")
	}

	sender.sendErr = nil
	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := session.Snapshot().State; got != StateSent {
		t.Fatalf("state after retry = %s", got)
	}
}

func TestSessionVerifyBeforeSend(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify"})

	err := session.Verify(context.Background(), &fakeSender{}, "123456")
	if !errors.Is(err, ErrNotSent) {
		t.Fatalf("expected ErrNotSent, got %v", err)
	}
}

func TestSessionVerifyRejectsWrongLengthCode(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify", CodeLength: 4})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, code := range []string{"123", "12345"} {
		if err := session.Verify(context.Background(), sender, code); !errors.Is(err, ErrCodeLength) {
			t.Fatalf("code %q: expected ErrCodeLength, got %v", code, err)
		}
	}
	if sender.verifies != 0 {
		t.Fatalf("verifies = %d, a wrong-length code must not reach the endpoint", sender.verifies)
	}
	if got := session.Snapshot(); got.Attempts != 0 || got.State != StateSent {
		t.Fatalf("snapshot = %+v, wrong-length code must not spend an attempt", got)
	}

	if err := session.Verify(context.Background(), sender, "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestSessionRejectionCountsAttempts(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify", MaxAttempts: 2})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}

	sender.verifyErr = &RejectedError{Message: "wrong code"}
	for i := 0; i < 2; i++ {
		if err := session.Verify(context.Background(), sender, "000000"); !isRejection(err) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	snap := session.Snapshot()
	if snap.Attempts != 2 || snap.Message != "wrong code" {
		t.Fatalf("snapshot after rejections: %+v", snap)
	}

	// Attempt budget exhausted: further verifies are blocked.
	if err := session.Verify(context.Background(), sender, "000000"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
	if sender.verifies != 2 {
		t.Fatalf("locked-out verify reached the sender")
	}
}

func TestSessionResendResetsAttempts(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{verifyErr: &RejectedError{}}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify", MaxAttempts: 1, ResendDelaySeconds: 10})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := session.Verify(context.Background(), sender, "000000"); !isRejection(err) {
		t.Fatalf("verify: %v", err)
	}
	if err := session.Verify(context.Background(), sender, "000000"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected lockout, got %v", err)
	}

	// A fresh code unlocks the session.
	clock.advance(11 * time.Second)
	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if got := session.Snapshot().Attempts; got != 0 {
		t.Fatalf("attempts after resend = %d, want 0", got)
	}

	sender.verifyErr = nil
	if err := session.Verify(context.Background(), sender, "123456"); err != nil {
		t.Fatalf("verify after resend: %v", err)
	}
	if !session.Verified() {
		t.Fatal("session should be verified")
	}
}

func TestSessionNetworkErrorDoesNotCountAttempt(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify", MaxAttempts: 1})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}

	sender.verifyErr = errors.New("timeout")
	if err := session.Verify(context.Background(), sender, "123456"); err == nil {
		t.Fatal("expected verify failure")
	}
	snap := session.Snapshot()
	if snap.Attempts != 0 {
		t.Fatalf("transport failure consumed an attempt: %+v", snap)
	}
	if snap.Message != "network error" {
		t.Fatalf("message = %q", snap.Message)
	}

	// Retry after the transient failure succeeds.
	sender.verifyErr = nil
	if err := session.Verify(context.Background(), sender, "123456"); err != nil {
		t.Fatalf("retry verify: %v", err)
	}
}

func TestSessionVerifiedIsTerminal(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sender := &fakeSender{}
	session := newTestSession(clock, Config{SendEndpoint: "http://send", VerifyEndpoint: "http://verify"})

	if err := session.Send(context.Background(), sender); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := session.Verify(context.Background(), sender, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := session.Send(context.Background(), sender); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("send after verified: %v", err)
	}
	if err := session.Verify(context.Background(), sender, "123456"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("verify after verified: %v", err)
	}
}

func TestManagerLifecycle(t *testing.T) {
	manager := NewManager(time.Minute)
	defer manager.Close()

	session := manager.Start(Config{SendEndpoint: "http://send"}, "+66")
	if session.ID() == "" {
		t.Fatal("session id missing")
	}

	got, err := manager.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("Get = %v, %v", got, err)
	}

	manager.Remove(session.ID())
	if _, err := manager.Get(session.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	manager := NewManager(time.Minute)
	defer manager.Close()

	clock := &fakeClock{t: time.Now()}
	manager.now = clock.now

	session := manager.Start(Config{SendEndpoint: "http://send"}, "+66")
	clock.advance(2 * time.Minute)
	manager.expire()

	if _, err := manager.Get(session.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session survived sweep: %v", err)
	}
}
