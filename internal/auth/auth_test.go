package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewJWTService("secret")
	token, err := s.GenerateToken(42, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "42" || claims.Issuer != "subbot" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	s := NewJWTService("secret")
	now := time.Now()
	s.now = func() time.Time { return now }
	expiring, err := s.GenerateToken(1, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewJWTService("other").GenerateToken(1, 0)
	if err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	tests := map[string]string{
		"expired":      expiring,
		"wrong secret": other,
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		if _, err := s.ValidateToken(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	if _, err := s.GenerateToken(0, 0); err == nil {
		t.Error("expected error for user id 0")
	}
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("credential-secret")
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := s.Seal("AIzaSyExample")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, "v1:") || strings.Contains(sealed, "AIzaSyExample") {
		t.Errorf("sealed = %q", sealed)
	}
	again, _ := s.Seal("AIzaSyExample")
	if again == sealed {
		t.Error("two seals of the same value should differ")
	}

	plain, err := s.Open(sealed)
	if err != nil || plain != "AIzaSyExample" {
		t.Errorf("Open = %q, %v", plain, err)
	}

	// Plain values from before sealing was enabled pass through
	if plain, err := s.Open("AIzaLegacy"); err != nil || plain != "AIzaLegacy" {
		t.Errorf("Open legacy = %q, %v", plain, err)
	}
}

func TestSealerRejectsForeignValues(t *testing.T) {
	a, _ := NewSealer("one")
	b, _ := NewSealer("two")
	sealed, err := a.Seal("key")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected decrypt failure with another secret")
	}
	if _, err := NewSealer(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
