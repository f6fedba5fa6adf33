package config

import (
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	// Clear any existing env vars
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STATE_DIR", "")
	t.Setenv("PORT", "")
	t.Setenv("API_TOKEN", "")
	t.Setenv("API_RATE_LIMIT", "")
	t.Setenv("PLATFORM_URL", "")
	t.Setenv("OTEL_ENDPOINT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check defaults
	if cfg.DatabaseURL != "" {
		t.Errorf("expected empty DatabaseURL, got %s", cfg.DatabaseURL)
	}
	if cfg.StateDir != "./state" {
		t.Errorf("expected StateDir ./state, got %s", cfg.StateDir)
	}
	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("expected RateLimit 0, got %d", cfg.RateLimit)
	}
	if cfg.OTELEndpoint != "localhost:4317" {
		t.Errorf("expected OTELEndpoint localhost:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("STATE_DIR", "/var/lib/simplane")
	t.Setenv("PORT", "9999")
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("API_RATE_LIMIT", "25")
	t.Setenv("PLATFORM_URL", "https://taskflow.example.com")
	t.Setenv("OTEL_ENDPOINT", "otel-collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.StateDir != "/var/lib/simplane" {
		t.Errorf("expected StateDir /var/lib/simplane, got %s", cfg.StateDir)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.APIToken != "secret" {
		t.Errorf("expected APIToken secret, got %s", cfg.APIToken)
	}
	if cfg.RateLimit != 25 {
		t.Errorf("expected RateLimit 25, got %d", cfg.RateLimit)
	}
	if cfg.PlatformURL != "https://taskflow.example.com" {
		t.Errorf("expected PlatformURL from env, got %s", cfg.PlatformURL)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid PORT")
	}
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("API_RATE_LIMIT", "many")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid API_RATE_LIMIT")
	}
}

func TestParsePlatformTokens(t *testing.T) {
	cfg := &Config{PlatformTokens: "mia=tok-1, noah=tok-2,broken,=tok-3,empty="}

	tokens := cfg.ParsePlatformTokens()
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2: %v", len(tokens), tokens)
	}
	if tokens["mia"] != "tok-1" {
		t.Errorf("got token %q for mia, want tok-1", tokens["mia"])
	}
	if tokens["noah"] != "tok-2" {
		t.Errorf("got token %q for noah, want tok-2", tokens["noah"])
	}
}

func TestParsePlatformTokens_Empty(t *testing.T) {
	cfg := &Config{}

	if tokens := cfg.ParsePlatformTokens(); len(tokens) != 0 {
		t.Errorf("got %v, want empty map", tokens)
	}
}
