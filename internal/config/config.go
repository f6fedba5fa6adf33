// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string. Empty means the JSON file store is used instead.
	DatabaseURL string

	// Directory for the file-backed job store (used when DatabaseURL is empty).
	StateDir string

	// HTTP server port for the controller
	HTTPPort int

	// Static bearer token for the control API. Empty disables auth (local dev).
	APIToken string

	// Requests per second allowed per client on the control API (0 = unlimited).
	RateLimit int

	// Base URL of the external platform driven by the REST generator.
	// Empty means jobs run against the synthetic generator.
	PlatformURL string

	// Bearer tokens for the simulated platform users, comma separated "name=token" pairs.
	PlatformTokens string

	// OTLP collector endpoint for traces
	OTELEndpoint string
}

// ParsePlatformTokens splits the PLATFORM_TOKENS value into a user->token
// map. Malformed pairs are skipped.
func (c *Config) ParsePlatformTokens() map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(c.PlatformTokens, ",") {
		name, token, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || token == "" {
			continue
		}
		tokens[name] = token
	}
	return tokens
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	stateDir := os.Getenv("STATE_DIR")
	if stateDir == "" {
		stateDir = "./state"
	}

	portStr := os.Getenv("PORT")
	port := 6161 // Default
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	rateLimit := 0
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		rl, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
		}
		rateLimit = rl
	}

	otelEndpoint := os.Getenv("OTEL_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       stateDir,
		HTTPPort:       port,
		APIToken:       os.Getenv("API_TOKEN"),
		RateLimit:      rateLimit,
		PlatformURL:    os.Getenv("PLATFORM_URL"),
		PlatformTokens: os.Getenv("PLATFORM_TOKENS"),
		OTELEndpoint:   otelEndpoint,
	}, nil
}
