// ABOUTME: Centralized configuration for the comment classifier
// ABOUTME: Loads from environment variables (and .env) with validation and defaults
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/harper/comment-classifier/internal/models"
)

// Config holds all run settings; CLI flags override these after Load
type Config struct {
	// Provider settings
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	// Retry settings
	RetryAttempts  int
	RetryDelay     time.Duration
	RetryMalformed bool

	// Run settings
	Task              string
	TaskFile          string
	MaxTokens         int
	Concurrency       int
	RequestsPerMinute int
	Tokenizer         string
	PricePerMillion   float64
	TieBreak          string

	LogLevel string
	LogFile  string
}

const (
	defaultProvider  = "gemini"
	defaultMaxTokens = 20000
)

// Load reads the configuration with Read and validates it
func Load() (*Config, error) {
	cfg := Read()
	return cfg, cfg.Validate()
}

// Read reads a .env file if present, then configuration from the environment,
// without validating it. Callers that apply command-line overrides validate
// afterwards.
func Read() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:          strings.ToLower(getEnv("CLASSIFY_PROVIDER", defaultProvider)),
		Model:             os.Getenv("CLASSIFY_MODEL"),
		BaseURL:           os.Getenv("CLASSIFY_BASE_URL"),
		Timeout:           getEnvDuration("CLASSIFY_TIMEOUT", 60*time.Second),
		RetryAttempts:     getEnvInt("CLASSIFY_RETRY_ATTEMPTS", 3),
		RetryDelay:        getEnvDuration("CLASSIFY_RETRY_DELAY", 2*time.Second),
		RetryMalformed:    getEnvBool("CLASSIFY_RETRY_MALFORMED", false),
		Task:              os.Getenv("CLASSIFY_TASK"),
		TaskFile:          os.Getenv("CLASSIFY_TASK_FILE"),
		MaxTokens:         getEnvInt("CLASSIFY_MAX_TOKENS", defaultMaxTokens),
		Concurrency:       getEnvInt("CLASSIFY_CONCURRENCY", 1),
		RequestsPerMinute: getEnvInt("CLASSIFY_REQUESTS_PER_MINUTE", 0),
		Tokenizer:         getEnv("CLASSIFY_TOKENIZER", "auto"),
		PricePerMillion:   getEnvFloat("CLASSIFY_PRICE_PER_MILLION", 0),
		TieBreak:          os.Getenv("CLASSIFY_TIE_BREAK"),
		LogLevel:          getEnv("CLASSIFY_LOG_LEVEL", "info"),
		LogFile:           os.Getenv("CLASSIFY_LOG_FILE"),
	}
	cfg.APIKey = APIKeyFor(cfg.Provider)
	return cfg
}

// APIKeyFor returns the credential for a provider from its usual variables
func APIKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// Validate checks ranges; a missing API key is checked later since dry runs
// never need one
func (c *Config) Validate() error {
	if c.Provider != "openai" && c.Provider != "gemini" {
		return models.NewConfigError("CLASSIFY_PROVIDER must be openai or gemini, got %q", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return models.NewConfigError("CLASSIFY_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.RetryAttempts < 1 || c.RetryAttempts > 10 {
		return models.NewConfigError("CLASSIFY_RETRY_ATTEMPTS must be 1-10, got %d", c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return models.NewConfigError("CLASSIFY_RETRY_DELAY must not be negative, got %v", c.RetryDelay)
	}
	if c.Concurrency < 1 {
		return models.NewConfigError("CLASSIFY_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.RequestsPerMinute < 0 {
		return models.NewConfigError("CLASSIFY_REQUESTS_PER_MINUTE must not be negative, got %d", c.RequestsPerMinute)
	}
	if c.PricePerMillion < 0 {
		return models.NewConfigError("CLASSIFY_PRICE_PER_MILLION must not be negative, got %f", c.PricePerMillion)
	}
	switch strings.ToLower(c.Tokenizer) {
	case "auto", "tiktoken", "approx":
	default:
		return models.NewConfigError("CLASSIFY_TOKENIZER must be auto, tiktoken or approx, got %q", c.Tokenizer)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
