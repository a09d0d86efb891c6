// Package config provides configuration for the helmsman service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Model provider
	ProviderBaseURL string
	ProviderAPIKey  string
	Model           string
	ProviderTimeout time.Duration
	ProviderRetries int
	RetryBackoff    time.Duration
	MaxTokens       int

	// Router
	RouterRetries   int // extra attempts after the first round-trip
	RouterMaxTokens int
	RecentTurns     int // turns embedded in the classification prompt

	// Guardrails
	MaxInputLength int
	LoopWindow     int
	LoopThreshold  int
	SummarizeAfter int
	ExtraPatterns  []string

	// Session store
	SessionBackend string // sqlite, redis
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration

	// Search collaborators
	VectorIndexURL string
	VectorTopK     int
	SerpAPIKey     string
	SerpBaseURL    string

	// Logging
	LogLevel string
}

// GuardFile is the optional YAML overlay for guardrail settings.
type GuardFile struct {
	MaxInputLength int      `yaml:"max_input_length"`
	LoopWindow     int      `yaml:"loop_window"`
	LoopThreshold  int      `yaml:"loop_threshold"`
	SummarizeAfter int      `yaml:"summarize_after"`
	Patterns       []string `yaml:"patterns"`
}

// Load loads configuration from environment variables, then applies the
// guard config file named by HELMSMAN_GUARD_CONFIG if present.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "http://localhost:4000"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		Model:           getEnv("PROVIDER_MODEL", "gpt-4o-mini"),
		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 30000)) * time.Millisecond,
		ProviderRetries: getEnvInt("PROVIDER_RETRIES", 2),
		RetryBackoff:    time.Duration(getEnvInt("RETRY_BACKOFF_MS", 250)) * time.Millisecond,
		MaxTokens:       getEnvInt("PROVIDER_MAX_TOKENS", 1024),
		RouterRetries:   getEnvInt("ROUTER_RETRIES", 2),
		RouterMaxTokens: getEnvInt("ROUTER_MAX_TOKENS", 200),
		RecentTurns:     getEnvInt("ROUTER_RECENT_TURNS", 6),
		MaxInputLength:  getEnvInt("GUARD_MAX_INPUT_LENGTH", 10000),
		LoopWindow:      getEnvInt("GUARD_LOOP_WINDOW", 6),
		LoopThreshold:   getEnvInt("GUARD_LOOP_THRESHOLD", 3),
		SummarizeAfter:  getEnvInt("GUARD_SUMMARIZE_AFTER", 25),
		SessionBackend:  getEnv("SESSION_BACKEND", "sqlite"),
		DatabaseURL:     getEnv("DATABASE_URL", "file:helmsman.db?cache=shared&mode=rwc"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_S", 0)) * time.Second,
		VectorIndexURL:  getEnv("VECTOR_INDEX_URL", "http://localhost:8090"),
		VectorTopK:      getEnvInt("VECTOR_TOP_K", 3),
		SerpAPIKey:      getEnv("SERPAPI_KEY", ""),
		SerpBaseURL:     getEnv("SERPAPI_BASE_URL", "https://serpapi.com/search"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("HELMSMAN_GUARD_CONFIG"); path != "" {
		if err := cfg.applyGuardFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyGuardFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read guard config: %w", err)
	}
	var gf GuardFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return fmt.Errorf("failed to parse guard config: %w", err)
	}
	if gf.MaxInputLength > 0 {
		c.MaxInputLength = gf.MaxInputLength
	}
	if gf.LoopWindow > 0 {
		c.LoopWindow = gf.LoopWindow
	}
	if gf.LoopThreshold > 0 {
		c.LoopThreshold = gf.LoopThreshold
	}
	if gf.SummarizeAfter > 0 {
		c.SummarizeAfter = gf.SummarizeAfter
	}
	c.ExtraPatterns = append(c.ExtraPatterns, gf.Patterns...)
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
