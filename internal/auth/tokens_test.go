package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager("test-secret-at-least-decent", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	userID := uuid.New()
	token, err := m.Issue(userID, "user@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuer, _ := NewTokenManager("secret-one-secret-one", time.Hour)
	verifier, _ := NewTokenManager("secret-two-secret-two", time.Hour)

	token, err := issuer.Issue(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Error("expected verification failure with a different secret")
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	t.Parallel()

	m, _ := NewTokenManager("test-secret-at-least-decent", time.Hour)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return start })

	token, err := m.Issue(uuid.New(), "user@example.com")
	if err != nil {
		t.Fatal(err)
	}

	m.SetClock(func() time.Time { return start.Add(2 * time.Hour) })
	if _, err := m.Verify(token); err == nil {
		t.Error("expected verification failure for expired token")
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	t.Parallel()

	m, _ := NewTokenManager("test-secret-at-least-decent", time.Hour)
	if _, err := m.Verify("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
