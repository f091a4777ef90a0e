package config

import (
	"testing"
	"time"
)

func newLoadedViperConfig(t *testing.T, overrides map[string]any) (AppConfig, error) {
	t.Helper()
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("admin.email", "admin@example.com")
	configViper.Set("admin.password_hash", "$2a$10$abcdefghijklmnopqrstuv")
	for key, value := range overrides {
		configViper.Set(key, value)
	}
	return Load(configViper)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := newLoadedViperConfig(t, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address: %s", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "confessions.db" {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
	if cfg.RateLimitBurst != 3 {
		t.Fatalf("unexpected rate limit burst: %d", cfg.RateLimitBurst)
	}
}

func TestLoadRejectsMissingSigningSecret(t *testing.T) {
	_, err := newLoadedViperConfig(t, map[string]any{"auth.signing_secret": ""})
	if err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
}

func TestLoadRejectsMissingAdminCredentials(t *testing.T) {
	if _, err := newLoadedViperConfig(t, map[string]any{"admin.email": " "}); err == nil {
		t.Fatalf("expected error for missing admin email")
	}
	if _, err := newLoadedViperConfig(t, map[string]any{"admin.password_hash": ""}); err == nil {
		t.Fatalf("expected error for missing admin password hash")
	}
}

func TestLoadRejectsNonPositiveTokenTTL(t *testing.T) {
	if _, err := newLoadedViperConfig(t, map[string]any{"token.ttl_minutes": 0}); err == nil {
		t.Fatalf("expected error for zero token ttl")
	}
}
