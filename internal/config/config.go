package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Token          string
	DatabasePath   string
	LogLevel       string
	LogFile        string
	DailyResetTime string
	DefaultCourts  int
}

// FromEnv reads the environment, loading .env first when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	cfg := Config{
		Token:          strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		DatabasePath:   os.Getenv("DATABASE_PATH"),
		LogLevel:       strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFile:        os.Getenv("LOG_FILE"),
		DailyResetTime: os.Getenv("DAILY_RESET_TIME"),
		DefaultCourts:  2,
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./data/courtshuffle.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DailyResetTime == "" {
		cfg.DailyResetTime = "05:00"
	}
	if v := os.Getenv("DEFAULT_COURTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEFAULT_COURTS: %w", err)
		}
		if n < 1 {
			return cfg, fmt.Errorf("DEFAULT_COURTS must be at least 1, got %d", n)
		}
		cfg.DefaultCourts = n
	}
	return cfg, nil
}
