package auth

import (
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash must not equal plaintext")
	}

	if !VerifyPassword(hash, "s3cret-pass") {
		t.Errorf("expected password to verify against its own hash")
	}
	if VerifyPassword(hash, "wrong-pass") {
		t.Errorf("expected wrong password to fail verification")
	}
	if VerifyPassword("not-a-bcrypt-hash", "s3cret-pass") {
		t.Errorf("expected invalid hash to fail verification, not error")
	}
}

func TestGenerateAndParseJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateJWT("op-1", "admin")
	if err != nil {
		t.Fatalf("GenerateJWT returned error: %v", err)
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT returned error: %v", err)
	}
	if claims.OperatorID != "op-1" {
		t.Errorf("expected operator_id op-1, got %q", claims.OperatorID)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role admin, got %q", claims.Role)
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		t.Errorf("expected token expiry in the future")
	}
}

func TestParseJWT_RejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := ParseJWT(""); err == nil {
		t.Errorf("expected error for empty token")
	}
	if _, err := ParseJWT("not.a.jwt"); err == nil {
		t.Errorf("expected error for malformed token")
	}
}

func TestParseJWTExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Duration(DefaultJWTExpiry) * time.Hour},
		{"12", 12 * time.Hour},
		{"garbage", time.Duration(DefaultJWTExpiry) * time.Hour},
	}
	for _, tt := range tests {
		if got := parseJWTExpiry(tt.in); got != tt.want {
			t.Errorf("parseJWTExpiry(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
