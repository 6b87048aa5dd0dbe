package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"taskstack/internal/repository"
)

const (
	defaultReminderInterval = time.Hour
	defaultReminderWindow   = 24 * time.Hour
	defaultSessionIdle      = 12 * time.Hour
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken    string
	DatabaseURL      string
	ReminderInterval time.Duration
	ReminderWindow   time.Duration
	SessionIdle      time.Duration
	DigestTime       string
}

// Load reads configuration from an optional .env file and environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken:    get("TELEGRAM_TOKEN"),
		DatabaseURL:      get("DATABASE_URL"),
		ReminderInterval: parseDuration(get("REMINDER_INTERVAL_MINUTES"), time.Minute),
		ReminderWindow:   parseDuration(get("REMINDER_WINDOW_HOURS"), time.Hour),
		SessionIdle:      parseDuration(get("SESSION_IDLE_HOURS"), time.Hour),
		DigestTime:       get("DIGEST_TIME"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = repository.DefaultDSN
	}
	if cfg.ReminderInterval == 0 {
		cfg.ReminderInterval = defaultReminderInterval
	}
	if cfg.ReminderWindow == 0 {
		cfg.ReminderWindow = defaultReminderWindow
	}
	if cfg.SessionIdle == 0 {
		cfg.SessionIdle = defaultSessionIdle
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if !repository.IsMemoryDSN(cfg.DatabaseURL) {
		return cfg, fmt.Errorf("DATABASE_URL must be an in-memory sqlite DSN, got %q", cfg.DatabaseURL)
	}

	return cfg, nil
}

// parseDuration reads a positive integer count of unit. Anything else yields 0.
func parseDuration(raw string, unit time.Duration) time.Duration {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * unit
}
