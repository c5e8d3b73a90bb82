package config

import (
	"log/slog"
	"os"
	"testing"
)

// setenv sets an env var for the duration of a test, restoring the original on cleanup.
func setenv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	os.Setenv(key, value) //nolint:errcheck
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original) //nolint:errcheck
		} else {
			os.Unsetenv(key) //nolint:errcheck
		}
	})
}

func TestDefaultFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"LLMRELAY_PROVIDER",
		"LLMRELAY_MODEL",
		"LLMRELAY_VERBOSE",
		"LLMRELAY_LOG_LEVEL",
	} {
		os.Unsetenv(key) //nolint:errcheck
	}

	cfg := DefaultFromEnv()

	if cfg.Provider != "" || cfg.Model != "" {
		t.Errorf("Provider/Model: got %q/%q, want empty", cfg.Provider, cfg.Model)
	}
	if cfg.Verbose {
		t.Error("Verbose should be false by default")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: got %v, want info", cfg.LogLevel)
	}
}

func TestDefaultFromEnvOverrides(t *testing.T) {
	setenv(t, "LLMRELAY_PROVIDER", " anthropic ")
	setenv(t, "LLMRELAY_MODEL", "claude-sonnet-4")
	setenv(t, "LLMRELAY_VERBOSE", "yes")
	setenv(t, "LLMRELAY_LOG_LEVEL", "DEBUG")

	cfg := DefaultFromEnv()

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want trimmed anthropic", cfg.Provider)
	}
	if cfg.Model != "claude-sonnet-4" {
		t.Errorf("Model: got %q", cfg.Model)
	}
	if !cfg.Verbose {
		t.Error("Verbose: got false, want true")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: got %v, want debug", cfg.LogLevel)
	}
}

func TestProviderAPIKey(t *testing.T) {
	setenv(t, "LLM_GROQ_API_KEY", " sk-groq-123 ")

	if got := ProviderAPIKey("groq"); got != "sk-groq-123" {
		t.Errorf("key: got %q", got)
	}
	if got := ProviderAPIKey("not-a-provider"); got != "" {
		t.Errorf("unknown provider key: got %q, want empty", got)
	}
}
