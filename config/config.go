// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server needs at startup. Every field has a
// development default; production overrides via environment variables.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	JWTSecret     string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Cron specs for the daily jobs.
	SweepSchedule      string
	LimitResetSchedule string

	CORSOrigins []string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		DBPath:   getEnv("DB_PATH", "./data/easyplan.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret:     getEnv("JWT_SECRET", "dev-access-secret"),
		RefreshSecret: getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AccessTTL:     time.Duration(getEnvInt("ACCESS_TTL_MINUTES", 30)) * time.Minute,
		RefreshTTL:    time.Duration(getEnvInt("REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,

		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "5 0 * * *"),
		LimitResetSchedule: getEnv("LIMIT_RESET_SCHEDULE", "0 0 * * *"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
