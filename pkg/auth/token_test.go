package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/config"
)

func testSandboxConfig() config.SandboxConfig {
	return config.SandboxConfig{
		JWTSecret: "secret",
		JWTIssuer: "grocerycart-sandbox",
		TokenTTL:  30 * time.Minute,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testSandboxConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{CustomerID: 42, Email: "demo@grocerycart.local"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.CustomerID != 42 {
		t.Fatalf("expected customer 42, got %d", claims.CustomerID)
	}
	if claims.Email != "demo@grocerycart.local" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Subject != "42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Issuer != cfg.JWTIssuer {
		t.Fatalf("expected issuer %s, got %s", cfg.JWTIssuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}

	exp := now.Add(cfg.TokenTTL)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testSandboxConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{CustomerID: 1})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.JWTSecret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testSandboxConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{CustomerID: 1})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testSandboxConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected invalid customer error")
	}
	noSecret := cfg
	noSecret.JWTSecret = ""
	if _, err := MintAccessToken(noSecret, time.Now(), AccessTokenPayload{CustomerID: 1}); err == nil {
		t.Fatal("expected missing secret error")
	}
	noTTL := cfg
	noTTL.TokenTTL = 0
	if _, err := MintAccessToken(noTTL, time.Now(), AccessTokenPayload{CustomerID: 1}); err == nil {
		t.Fatal("expected ttl error")
	}
}
