package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath      string
	StoreDir    string
	InboxDir    string
	OutputDir   string
	CatalogFile string

	ClassifierPreset string
	ProcessBatch     int
	LogLevel         string

	LLMFallbackEnabled bool
	LLMProvider        string
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	GeminiAPIKey       string
	GeminiBaseURL      string
	LLMModel           string
	LLMRateLimitRPS    int
	LLMTimeoutMs       int
	LLMMaxAttempts     int
	LLMMinConfidence   float64
	AppURL             string
	AppTitle           string

	ListenerIntervalSec int
	ListenerAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		StoreDir:    getEnv("STORE_DIR", filepath.Join(cwd, "data", "raw")),
		InboxDir:    getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		CatalogFile: getEnv("CATALOG_FILE", ""),

		ClassifierPreset: getEnv("CLASSIFIER_PRESET", "strict"),
		ProcessBatch:     getEnvInt("PROCESS_BATCH", 10),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		LLMFallbackEnabled: getEnvBool("LLM_FALLBACK_ENABLED", false),
		LLMProvider:        getEnv("LLM_PROVIDER", "openrouter"),
		OpenRouterAPIKey:   getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		LLMModel:           getEnv("LLM_MODEL", "google/gemini-flash-1.5"),
		LLMRateLimitRPS:    getEnvInt("LLM_RATE_LIMIT_RPS", 2),
		LLMTimeoutMs:       getEnvInt("LLM_TIMEOUT_MS", 60000),
		LLMMaxAttempts:     getEnvInt("LLM_MAX_ATTEMPTS", 3),
		LLMMinConfidence:   getEnvFloat("LLM_MIN_CONFIDENCE", 0.5),
		AppURL:             getEnv("APP_URL", "http://localhost:3000"),
		AppTitle:           getEnv("APP_TITLE", "WOTC Tax Credit App"),

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 30),
		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// ZerologLevel maps LOG_LEVEL onto a zerolog level, falling back to info.
func (c Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
