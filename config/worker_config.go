package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"intake_server/pkg/apperr"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// OpenAI
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	LLMModel             string
	LLMMaxTokens         int
	LLMTemperature       float64
	LLMTimeoutSec        int
	LLMRequestsPerMinute int

	// Extraction
	HybridModeEnabled   bool
	AIFallbackEnabled   bool
	ConfidenceThreshold float64
	CustomerThreshold   float64
	LineItemThreshold   float64

	// Cache
	CustomerCacheTTL time.Duration
	LocalCacheTTL    time.Duration

	// Intake stream
	IntakeStream        string
	IntakeConsumerGroup string
	WorkerID            string
	WorkerCount         int
	ReclaimIdle         time.Duration
	ReclaimInterval     time.Duration

	// HTTP
	RateLimitPerMin int
	MaxBodyBytes    int
	AllowedOrigins  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
		LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:         getEnvInt("LLM_MAX_TOKENS", 500),
		LLMTemperature:       getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:        getEnvInt("LLM_TIMEOUT_SEC", 30),
		LLMRequestsPerMinute: getEnvInt("LLM_REQUESTS_PER_MINUTE", 60),

		// Extraction
		HybridModeEnabled:   getEnvBool("HYBRID_MODE_ENABLED", true),
		AIFallbackEnabled:   getEnvBool("AI_FALLBACK_ENABLED", true),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.7),
		CustomerThreshold:   getEnvFloat("CUSTOMER_CONFIDENCE_THRESHOLD", 0.5),
		LineItemThreshold:   getEnvFloat("LINE_ITEM_CONFIDENCE_THRESHOLD", 0.6),

		// Cache
		CustomerCacheTTL: time.Duration(getEnvInt("CUSTOMER_CACHE_TTL_MIN", 30)) * time.Minute,
		LocalCacheTTL:    time.Duration(getEnvInt("LOCAL_CACHE_TTL_SEC", 60)) * time.Second,

		// Intake stream
		IntakeStream:        getEnv("INTAKE_STREAM", "inbound:emails"),
		IntakeConsumerGroup: getEnv("INTAKE_CONSUMER_GROUP", "intake-workers"),
		WorkerID:            getEnv("WORKER_ID", generateWorkerID()),
		WorkerCount:         getEnvInt("WORKER_COUNT", 2),
		ReclaimIdle:         time.Duration(getEnvInt("RECLAIM_IDLE_SEC", 300)) * time.Second,
		ReclaimInterval:     time.Duration(getEnvInt("RECLAIM_INTERVAL_SEC", 60)) * time.Second,

		// HTTP
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 600),
		MaxBodyBytes:    getEnvInt("MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env parsing alone cannot.
func (c *Config) Validate() error {
	thresholds := map[string]float64{
		"CONFIDENCE_THRESHOLD":           c.ConfidenceThreshold,
		"CUSTOMER_CONFIDENCE_THRESHOLD":  c.CustomerThreshold,
		"LINE_ITEM_CONFIDENCE_THRESHOLD": c.LineItemThreshold,
	}
	for key, v := range thresholds {
		if v < 0 || v > 1 {
			return apperr.ConfigError(fmt.Sprintf("%s must be within [0,1], got %v", key, v))
		}
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return apperr.ConfigError(fmt.Sprintf("LLM_TEMPERATURE must be within [0,2], got %v", c.LLMTemperature))
	}
	if c.LLMMaxTokens <= 0 {
		return apperr.ConfigError("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMTimeoutSec <= 0 {
		return apperr.ConfigError("LLM_TIMEOUT_SEC must be positive")
	}
	return nil
}

// AIConfigured reports whether an OpenAI key is present.
func (c *Config) AIConfigured() bool {
	return c.OpenAIAPIKey != ""
}

// LLMTimeout returns the per-request generative tier timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
