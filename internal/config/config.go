// Package config loads process configuration from the environment once at
// startup. The resulting struct is immutable and passed explicitly to the
// components that need it.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	Port string

	SlackBotToken      string
	SlackSigningSecret string
	CronSecret         string

	FinanceChannelID string
	TestChannelID    string

	Timezone string
	Location *time.Location

	// ReminderCooldown is the minimum gap between repeat reminders on the
	// same pending step.
	ReminderCooldown time.Duration
	// AfternoonCutoffHour suppresses new initial alerts from this local
	// hour onward; reminder-only processing still runs.
	AfternoonCutoffHour int

	// History scan windows: a shallow one for the existing-alert check and
	// a deeper one for the incomplete-instance scan. Alerts older than the
	// window are treated as not found; that false-negative risk is accepted.
	AlertScanLimit      int
	IncompleteScanLimit int

	// MySQLDSN enables the write-through state cache when set. Empty DSN
	// disables caching; chat history alone then carries all state.
	MySQLDSN string

	// RunScheduler embeds the daily trigger job in the server process.
	RunScheduler bool
	CronSpec     string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Look for .env in the working directory and one level up, the same
	// walk the operational scripts use.
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			log.Printf("📦 Loaded environment from %s", p)
			break
		}
	}

	cfg := &Config{
		Port:                getEnv("PORT", "3001"),
		SlackBotToken:       os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret:  os.Getenv("SLACK_SIGNING_SECRET"),
		CronSecret:          os.Getenv("CRON_SECRET"),
		FinanceChannelID:    getEnv("FINANCE_CHANNEL_ID", "C02DA0GK8MC"),
		TestChannelID:       getEnv("TEST_CHANNEL_ID", "C096PH0906N"),
		Timezone:            getEnv("TIMEZONE", "Asia/Seoul"),
		ReminderCooldown:    getEnvDuration("REMINDER_COOLDOWN", 12*time.Hour),
		AfternoonCutoffHour: getEnvInt("AFTERNOON_CUTOFF_HOUR", 12),
		AlertScanLimit:      getEnvInt("ALERT_SCAN_LIMIT", 50),
		IncompleteScanLimit: getEnvInt("INCOMPLETE_SCAN_LIMIT", 200),
		MySQLDSN:            os.Getenv("MYSQL_DSN"),
		RunScheduler:        os.Getenv("RUN_SCHEDULER") == "true",
		CronSpec:            getEnv("CRON_SPEC", "0 9 * * *"),
	}

	if cfg.SlackBotToken == "" || cfg.SlackSigningSecret == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_SIGNING_SECRET are required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}
