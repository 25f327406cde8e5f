// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Upstream assistant settings
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AssistantID       string
	AssistantMode     string // "persistent" or "ephemeral"
	VectorStoreID     string
	AssistantModel    string
	RelayTimeout      time.Duration

	// Persona completion settings
	AnthropicAPIKey string
	DefaultLLM      string

	// Input validation ceilings
	MaxPayloadSize   int64
	MaxMessages      int
	MaxMessageLength int

	// Chat rate limiting
	RateLimitBackend  string // "memory" or "redis"
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Coarse per-IP throttle over the whole API
	ThrottleRequests int
	ThrottleWindow   time.Duration

	// Storage
	DatabaseURL string
	RedisURL    string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute),

		// Upstream assistant
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AssistantID:    getEnv("OPENAI_ASSISTANT_ID", ""),
		AssistantMode:  getEnv("ASSISTANT_MODE", "persistent"),
		VectorStoreID:  getEnv("OPENAI_VECTOR_STORE_ID", ""),
		AssistantModel: getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		RelayTimeout:   getDurationEnv("RELAY_TIMEOUT", 2*time.Minute),

		// Persona completion
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),

		// Validation ceilings
		MaxPayloadSize:   int64(getIntEnv("MAX_PAYLOAD_SIZE", 100000)),
		MaxMessages:      getIntEnv("MAX_MESSAGES", 20),
		MaxMessageLength: getIntEnv("MAX_MESSAGE_LENGTH", 4000),

		// Chat rate limiting
		RateLimitBackend:  getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Coarse throttle
		ThrottleRequests: getIntEnv("THROTTLE_REQUESTS", 120),
		ThrottleWindow:   getDurationEnv("THROTTLE_WINDOW", time.Minute),

		// Storage
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
