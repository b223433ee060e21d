package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestGate(t *testing.T, clock Clock, passwords ...string) *AdminAuthGate {
	t.Helper()
	return NewAdminAuthGate(passwords, NewSessionManager(24*time.Hour, clock))
}

func TestAuthenticate_PlainPassword(t *testing.T) {
	gate := newTestGate(t, nil, "correct-horse", "temp-pass")

	if _, err := gate.Authenticate("wrong-password", "1.2.3.4", "ua"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}

	for _, pw := range []string{"correct-horse", "temp-pass"} {
		s, err := gate.Authenticate(pw, "1.2.3.4", "ua")
		if err != nil {
			t.Fatalf("Authenticate(%q) failed: %v", pw, err)
		}
		got, err := gate.RequireSession(s.ID)
		if err != nil {
			t.Fatalf("RequireSession failed: %v", err)
		}
		if got.IP != "1.2.3.4" {
			t.Errorf("Expected ip 1.2.3.4, got %s", got.IP)
		}
	}
}

func TestAuthenticate_BcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword failed: %v", err)
	}
	gate := newTestGate(t, nil, string(hash))

	if _, err := gate.Authenticate("s3cret", "ip", "ua"); err != nil {
		t.Errorf("Expected bcrypt entry to match, got %v", err)
	}
	if _, err := gate.Authenticate(string(hash), "ip", "ua"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("The hash itself must not be accepted as a password, got %v", err)
	}
}

func TestAuthenticate_EmptyPassword(t *testing.T) {
	gate := newTestGate(t, nil, "pw")

	_, err := gate.Authenticate("", "ip", "ua")
	if !errors.Is(err, ErrPasswordRequired) || !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrPasswordRequired wrapping ErrInvalidInput, got %v", err)
	}
}

func TestAuthenticate_NoConfiguredPasswords(t *testing.T) {
	gate := newTestGate(t, nil)

	if _, err := gate.Authenticate("anything", "ip", "ua"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials with no passwords configured, got %v", err)
	}
}

func TestRequireSession_RejectedAfterTTL(t *testing.T) {
	clock := NewFakeClock(testStart)
	gate := newTestGate(t, clock, "pw")

	s, err := gate.Authenticate("pw", "ip", "ua")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := gate.RequireSession(s.ID); err != nil {
		t.Fatalf("Expected session to be valid immediately, got %v", err)
	}

	clock.Advance(24*time.Hour + time.Second)
	if _, err := gate.RequireSession(s.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated after TTL, got %v", err)
	}
}

func TestLogoutAndClearAll(t *testing.T) {
	gate := newTestGate(t, nil, "pw")

	a, _ := gate.Authenticate("pw", "ip", "ua")
	b, _ := gate.Authenticate("pw", "ip", "ua")

	gate.Logout(a.ID)
	if _, err := gate.RequireSession(a.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected logged-out session to fail, got %v", err)
	}
	if _, err := gate.RequireSession(b.ID); err != nil {
		t.Errorf("Expected other session to survive logout, got %v", err)
	}

	if n := gate.Sessions().ClearAll(); n != 1 {
		t.Errorf("Expected 1 cleared, got %d", n)
	}
	if _, err := gate.RequireSession(b.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected cleared session to fail, got %v", err)
	}
}
