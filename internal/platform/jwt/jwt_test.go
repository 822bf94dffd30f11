package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	m := NewManager("secret", "votify-test", time.Hour)
	tok, err := m.Generate(9, "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 9 || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsForeignIssuerAndSecret(t *testing.T) {
	tok, _ := NewManager("secret", "other", time.Hour).Generate(1, "user")
	if _, err := NewManager("secret", "votify-test", time.Hour).Parse(tok); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	tok, _ = NewManager("secret", "votify-test", time.Hour).Generate(1, "user")
	if _, err := NewManager("different", "votify-test", time.Hour).Parse(tok); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}
