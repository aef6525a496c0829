package config

import (
	"os"

	"shelfwatch/internal/models"
)

// Load returns the server configuration from environment variables
func Load() models.Config {
	return models.Config{
		Port:          getEnv("PORT", "9080"),
		DBPath:        getEnv("DB_PATH", "shelfwatch.db"),
		BotToken:      getEnv("BOT_TOKEN", ""),
		SMTPURL:       getEnv("SMTP_URL", ""),
		ScanSchedule:  getEnv("SCAN_SCHEDULE", "@every 1h"),
		DrainSchedule: getEnv("DRAIN_SCHEDULE", "@every 5m"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
