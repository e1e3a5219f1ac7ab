package auth

import (
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("test-signing-secret")

func TestVerificationTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := SignVerificationToken(testSecret, "a@x.com", "user-1", "abc123", now)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims, err := ParseVerificationToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Email != "a@x.com" || claims.UserID != "user-1" || claims.Code != "abc123" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerificationTokenExpires(t *testing.T) {
	issued := time.Now().Add(-VerificationTokenTTL - time.Minute)
	token, err := SignVerificationToken(testSecret, "a@x.com", "user-1", "abc123", issued)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ParseVerificationToken(testSecret, token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerificationTokenFailsClosed(t *testing.T) {
	token, err := SignVerificationToken(testSecret, "a@x.com", "user-1", "abc123", time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"tampered":     token[:len(token)-2] + "xx",
		"wrong secret": mustSign(t, []byte("other-secret")),
	}
	for name, tok := range cases {
		if _, err := ParseVerificationToken(testSecret, tok); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func mustSign(t *testing.T, secret []byte) string {
	t.Helper()
	token, err := SignVerificationToken(secret, "a@x.com", "user-1", "abc123", time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestGenerateVerificationCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := GenerateVerificationCode()
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6-character code, got %q", code)
		}
		if strings.ToLower(code) != code {
			t.Fatalf("expected lowercase code, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("unexpected character %q in code %q", c, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected codes to vary across calls")
	}
}
