package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	UseMemoryStores    bool
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	CORSAllowedOrigins []string

	// Idle-session reclaim sweep
	ReclaimerEnabled   bool
	ReclaimerInterval  time.Duration
	ReclaimerIdleAfter time.Duration

	// Company defaults used to seed the in-memory config store in dev
	CompanyName     string
	CompanyOwnerID  string
	FallbackMessage string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		UseMemoryStores:    getEnvAsBool("USE_MEMORY_STORES", false),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ReclaimerEnabled:   getEnvAsBool("RECLAIMER_ENABLED", true),
		ReclaimerInterval:  getEnvAsDuration("RECLAIMER_INTERVAL", 2*time.Minute),
		ReclaimerIdleAfter: getEnvAsDuration("RECLAIMER_IDLE_AFTER", 2*time.Minute),

		CompanyName:     getEnv("COMPANY_NAME", ""),
		CompanyOwnerID:  getEnv("COMPANY_OWNER_ID", ""),
		FallbackMessage: getEnv("FALLBACK_MESSAGE", ""),
	}
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
