package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/llmrelay/llmrelay/internal/models"
)

// Config holds runtime configuration for the relay tools.
type Config struct {
	Provider string
	Model    string
	Verbose  bool
	LogLevel slog.Level
}

// DefaultFromEnv creates a Config with defaults from environment variables.
func DefaultFromEnv() *Config {
	return &Config{
		Provider: strings.TrimSpace(os.Getenv("LLMRELAY_PROVIDER")),
		Model:    strings.TrimSpace(os.Getenv("LLMRELAY_MODEL")),
		Verbose:  envBool("LLMRELAY_VERBOSE"),
		LogLevel: parseLevel(os.Getenv("LLMRELAY_LOG_LEVEL")),
	}
}

// ProviderAPIKey returns the API key configured for a provider, resolved
// through the registry's env-var mapping. Empty when unknown or unset.
func ProviderAPIKey(providerID string) string {
	p, ok := models.LookupProvider(providerID)
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(p.EnvVar))
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
