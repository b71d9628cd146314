package config

import (
	"os"
	"strings"
)

func LoadDebugConfigFromEnv(cfg DebugConfig) DebugConfig {
	if os.Getenv("PARLEY_DEBUG_LOG_REQUESTS") == "1" {
		cfg.LogRequests = true
	}
	if os.Getenv("PARLEY_DEBUG_LOG_RESPONSES") == "1" {
		cfg.LogResponses = true
	}
	if level := strings.TrimSpace(os.Getenv("PARLEY_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
	return cfg
}

// ApplyEnv overlays credentials and debug settings from the environment onto cfg.
func ApplyEnv(cfg Config) Config {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		cfg.APIKey = key
	}
	if baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.Debug = LoadDebugConfigFromEnv(cfg.Debug)
	return cfg
}
