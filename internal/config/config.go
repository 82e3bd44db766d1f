package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	BaseURL     string
	FrontendURL string

	DatabaseURL string
	RedisURL    string
	RabbitMQURL string

	OpenAIKey string
	AIModel   string
	AIBaseURL string

	EphemerisURL string
	GeoBaseURL   string
	GeoTimeout   time.Duration

	StripeKey           string
	StripeWebhookSecret string
	StripePriceID       string

	JWTSecret string
	JWTTTL    time.Duration

	PromptOverridesPath string

	EnableHSTS       bool
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables. Every value has a
// default that lets the server start in degraded/test mode: without an LLM
// key generations fail as "AI unavailable", without a database the auth and
// billing routes are disabled, and geocoding falls back to the default
// location.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OpenAIKey: getEnv("OPENAI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", ""),
		AIBaseURL: getEnv("AI_BASE_URL", ""),

		EphemerisURL: getEnv("EPHEMERIS_URL", "http://localhost:8100"),
		GeoBaseURL:   getEnv("GEO_BASE_URL", "https://geocoding-api.open-meteo.com"),
		GeoTimeout:   getEnvDurationMS("GEO_TIMEOUT_MS", 3500*time.Millisecond),

		StripeKey:           getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceID:       getEnv("STRIPE_PRICE_ID", ""),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-do-not-use-in-production"),
		JWTTTL:    getEnvDurationMS("JWT_TTL_MS", 7*24*time.Hour),

		PromptOverridesPath: getEnv("PROMPT_OVERRIDES_FILE", ""),

		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.GeoTimeout <= 0 {
		return nil, fmt.Errorf("GEO_TIMEOUT_MS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationMS(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
