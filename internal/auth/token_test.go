package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/Esscraye/conformit/internal/model"
)

func newTestService() *TokenService {
	return NewTokenService("test-secret-32-bytes-long-enough!", 30*time.Minute, "test-issuer")
}

func TestIssueThenValidate_ReturnsSubject(t *testing.T) {
	svc := newTestService()

	token, expiresAt, err := svc.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 29*time.Minute || remaining > 30*time.Minute {
		t.Errorf("expiry %v not ~30m out", remaining)
	}

	subject, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if subject != "alice@example.com" {
		t.Errorf("subject = %q, want %q", subject, "alice@example.com")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	svc := newTestService()

	token, _, err := svc.IssueWithTTL("alice@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithTTL() error = %v", err)
	}

	if _, err := svc.Validate(token); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("Validate(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _, err := newTestService().Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewTokenService("a-completely-different-secret!!!", 30*time.Minute, "test-issuer")
	if _, err := other.Validate(token); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("Validate(wrong secret) error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_Malformed(t *testing.T) {
	svc := newTestService()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Validate(token); !errors.Is(err, model.ErrInvalidToken) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
