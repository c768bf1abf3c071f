package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", "issuer", time.Minute)
	token, expiresAt, err := issuer.Issue("user-1", 0)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining <= 0 || remaining > time.Minute {
		t.Fatalf("expected default ttl to apply, got %s", remaining)
	}

	claims, err := issuer.Decode(token)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestTokensAreUnique(t *testing.T) {
	issuer := NewIssuer("secret", "issuer", time.Minute)
	first, _, err := issuer.Issue("user-1", time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	second, _, err := issuer.Issue("user-1", time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens for back-to-back logins")
	}
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	token, _, err := NewIssuer("other", "issuer", time.Minute).Issue("user-1", 0)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := NewIssuer("secret", "issuer", time.Minute).Decode(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := NewIssuer("secret", "issuer", time.Minute).Decode("not-a-token"); err == nil {
		t.Fatalf("expected malformed token error")
	}
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", "issuer", time.Minute)
	token, _, err := issuer.Issue("user-1", time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Decode(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
