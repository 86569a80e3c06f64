package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the train tracker
type Config struct {
	// Storage: SQLite by default, Postgres when DatabaseURL is set
	DatabasePath string
	DatabaseURL  string

	// HTTP server
	Port           string
	AllowedOrigins []string

	// Live enquiry source
	EnquiryURL     string
	EnquiryTimeout time.Duration

	// Bulk refresh
	FetchDelay time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		DatabasePath: getEnv("SQLITE_DATABASE", "data/trains.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		Port:           getEnv("PORT", "3000"),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "*")},

		EnquiryURL:     getEnv("ENQUIRY_URL", "https://enquiry.indianrail.gov.in/mntes/q"),
		EnquiryTimeout: time.Duration(getEnvInt("ENQUIRY_TIMEOUT_SECONDS", 10)) * time.Second,

		FetchDelay: time.Duration(getEnvInt("FETCH_DELAY_MS", 500)) * time.Millisecond,
	}
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
