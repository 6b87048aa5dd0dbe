package config

import (
	"testing"
	"time"

	"taskstack/internal/repository"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"TELEGRAM_TOKEN": " tok "}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TelegramToken != "tok" {
		t.Errorf("token = %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != repository.DefaultDSN {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReminderInterval != time.Hour || cfg.ReminderWindow != 24*time.Hour || cfg.SessionIdle != 12*time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DigestTime != "" {
		t.Errorf("DigestTime = %q, want empty", cfg.DigestTime)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"TELEGRAM_TOKEN":            "tok",
		"DATABASE_URL":              "file::memory:?cache=shared",
		"REMINDER_INTERVAL_MINUTES": "15",
		"REMINDER_WINDOW_HOURS":     "48",
		"SESSION_IDLE_HOURS":        "-3",
		"DIGEST_TIME":               "09:00",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReminderInterval != 15*time.Minute {
		t.Errorf("ReminderInterval = %v", cfg.ReminderInterval)
	}
	if cfg.ReminderWindow != 48*time.Hour {
		t.Errorf("ReminderWindow = %v", cfg.ReminderWindow)
	}
	if cfg.SessionIdle != 12*time.Hour {
		t.Errorf("negative idle should fall back to default, got %v", cfg.SessionIdle)
	}
	if cfg.DigestTime != "09:00" {
		t.Errorf("DigestTime = %q", cfg.DigestTime)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	if _, err := FromEnv(envOf(nil)); err == nil {
		t.Error("expected error without TELEGRAM_TOKEN")
	}
	_, err := FromEnv(envOf(map[string]string{
		"TELEGRAM_TOKEN": "tok",
		"DATABASE_URL":   "planner.db",
	}))
	if err == nil {
		t.Error("expected error for on-disk DATABASE_URL")
	}
}
