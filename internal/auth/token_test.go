package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		Sub:   "usr_1",
		Name:  "Dana",
		Email: "dana@example.com",
		JTI:   "jti-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	}
	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Email != claims.Email || parsed.JTI != claims.JTI {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("secret-a"), Claims{Sub: "u", JTI: "j", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken([]byte("secret-b"), token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := IssueToken([]byte("s"), Claims{Sub: "u", JTI: "j", Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken([]byte("s"), token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "abc", "a.b.c", "!!!.???"} {
		if _, err := ParseToken([]byte("s"), token); err != ErrInvalidToken {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("refresh-1") != HashToken("refresh-1") {
		t.Fatalf("hash not stable")
	}
	if HashToken("refresh-1") == HashToken("refresh-2") {
		t.Fatalf("distinct inputs hashed equal")
	}
}
