package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port    string
	JobsDir string

	// Gemini API keys pool (x-gemini-key header overrides per request)
	GeminiAPIKeys []string

	// Timeouts
	RemoteCallTimeout time.Duration
	MediaFetchTimeout time.Duration
	FFmpegTimeout     time.Duration

	// How long a failing API key stays blacklisted
	KeyRetryDelay time.Duration

	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		JobsDir: getEnv("JOBS_DIR", "./jobs"),

		GeminiAPIKeys: parseAPIKeys(getEnv("GEMINI_API_KEYS", "")),

		RemoteCallTimeout: time.Duration(getEnvAsInt("REMOTE_CALL_TIMEOUT_SECONDS", 600)) * time.Second,
		MediaFetchTimeout: time.Duration(getEnvAsInt("MEDIA_FETCH_TIMEOUT_SECONDS", 300)) * time.Second,
		FFmpegTimeout:     time.Duration(getEnvAsInt("FFMPEG_TIMEOUT_SECONDS", 300)) * time.Second,

		KeyRetryDelay: time.Duration(getEnvAsInt("KEY_RETRY_DELAY_SECONDS", 120)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid. An empty key pool is allowed
// because every request may carry its own x-gemini-key header.
func (c *Config) Validate() error {
	if c.JobsDir == "" {
		return errors.New("JOBS_DIR must not be empty")
	}
	if c.RemoteCallTimeout <= 0 {
		return errors.New("REMOTE_CALL_TIMEOUT_SECONDS must be positive")
	}
	if c.MediaFetchTimeout <= 0 {
		return errors.New("MEDIA_FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.FFmpegTimeout <= 0 {
		return errors.New("FFMPEG_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseAPIKeys(keysStr string) []string {
	if keysStr == "" {
		return []string{}
	}
	keys := strings.Split(keysStr, ",")
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, JobsDir: %s, Gemini Keys: %d, RemoteTimeout: %s}",
		c.Port, c.JobsDir, len(c.GeminiAPIKeys), c.RemoteCallTimeout)
}
