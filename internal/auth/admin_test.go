package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestGate(t *testing.T) *AdminGate {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	gate, err := NewAdminGate("Admin@Example.com", string(hash))
	if err != nil {
		t.Fatalf("failed to construct gate: %v", err)
	}
	return gate
}

func TestAdminGateAcceptsConfiguredCredentials(t *testing.T) {
	gate := newTestGate(t)
	if err := gate.Verify("admin@example.com", "open-sesame-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Email comparison is case-insensitive.
	if err := gate.Verify(" ADMIN@example.COM ", "open-sesame-1"); err != nil {
		t.Fatalf("unexpected error for case variant: %v", err)
	}
}

func TestAdminGateRejectsBadCredentials(t *testing.T) {
	gate := newTestGate(t)
	if err := gate.Verify("admin@example.com", "wrong"); !errors.Is(err, ErrAdminUnauthorized) {
		t.Fatalf("expected ErrAdminUnauthorized for bad password, got %v", err)
	}
	if err := gate.Verify("other@example.com", "open-sesame-1"); !errors.Is(err, ErrAdminUnauthorized) {
		t.Fatalf("expected ErrAdminUnauthorized for wrong email, got %v", err)
	}
}

func TestNewAdminGateValidatesInputs(t *testing.T) {
	if _, err := NewAdminGate("", "$2a$10$abcdefghijklmnopqrstuv"); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if _, err := NewAdminGate("admin@example.com", ""); err == nil {
		t.Fatalf("expected error for missing hash")
	}
	if _, err := NewAdminGate("admin@example.com", "plaintext-password"); err == nil {
		t.Fatalf("expected error for non-bcrypt hash")
	}
}
