package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/google/uuid"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret: "secret",
		Issuer: "bookstore",
		TTL:    time.Hour,
	}
}

func TestMintAndParseSessionToken(t *testing.T) {
	cfg := testSessionConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintSessionToken(cfg, now, SessionTokenPayload{UserID: userID, SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("mint session token: %v", err)
	}

	claims, err := ParseSessionToken(cfg, token)
	if err != nil {
		t.Fatalf("parse session token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.SessionID() != "sess-1" {
		t.Fatalf("expected jti sess-1, got %q", claims.SessionID())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		t.Fatalf("expected expiry in the future")
	}
}

func TestParseSessionTokenRejectsTampering(t *testing.T) {
	cfg := testSessionConfig()
	token, err := MintSessionToken(cfg, time.Now(), SessionTokenPayload{UserID: uuid.New(), SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseSessionToken(other, token); err == nil {
		t.Fatal("expected signature error with wrong secret")
	}

	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseSessionToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}

	parts := strings.Split(token, ".")
	if _, err := ParseSessionToken(cfg, parts[0]+"."+parts[1]+".bad"); err == nil {
		t.Fatal("expected error for corrupted signature")
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	cfg := testSessionConfig()
	token, err := MintSessionToken(cfg, time.Now().Add(-2*time.Hour), SessionTokenPayload{UserID: uuid.New(), SessionID: "old"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseSessionToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestMintSessionTokenValidation(t *testing.T) {
	cfg := testSessionConfig()
	now := time.Now()

	if _, err := MintSessionToken(config.SessionConfig{Issuer: "x", TTL: time.Hour}, now, SessionTokenPayload{UserID: uuid.New(), SessionID: "s"}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := MintSessionToken(cfg, now, SessionTokenPayload{SessionID: "s"}); err == nil {
		t.Fatal("expected missing user error")
	}
	if _, err := MintSessionToken(cfg, now, SessionTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatal("expected missing session error")
	}
}
