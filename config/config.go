package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	ServerPort    string

	// InviteExpiration bounds how long a signup invite stays redeemable.
	InviteExpiration time.Duration

	// RetainReviewOnResubmit controls whether a resubmission after rejection
	// keeps the previous reviewer/feedback for audit or clears them.
	RetainReviewOnResubmit bool
}

func Load() *Config {
	return &Config{
		DatabaseURL:            getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/questline"),
		JWTSecret:              getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:          24 * time.Hour,
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		InviteExpiration:       time.Duration(getEnvInt("INVITE_EXPIRATION_DAYS", 7)) * 24 * time.Hour,
		RetainReviewOnResubmit: getEnvBool("REVIEW_RETAIN_ON_RESUBMIT", true),
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
