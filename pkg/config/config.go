// Package config loads bot settings from a YAML file with environment
// overrides (ROADMAPBOT_* variables win over the file, which wins over
// defaults).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the process configuration.
type Settings struct {
	// Token is the Telegram bot token.
	Token string `yaml:"token"`

	// DatabaseDSN is a PostgreSQL DSN; when empty, SQLitePath is used.
	DatabaseDSN string `yaml:"database_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// DefaultTimezone applies to users without a stored zone.
	DefaultTimezone string `yaml:"default_timezone"`

	// SweepInterval controls the periodic rehydration scan.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// AdminTgID is the bootstrap admin's Telegram id.
	AdminTgID int64 `yaml:"admin_tg_id"`
}

// Defaults returns the baseline settings.
func Defaults() Settings {
	return Settings{
		SQLitePath:      "roadmapbot.db",
		RedisAddr:       "localhost:6379",
		DefaultTimezone: "Europe/Moscow",
		SweepInterval:   10 * time.Minute,
	}
}

// Load reads settings from the YAML file at path (skipped when path is
// empty or the file is absent) and applies environment overrides.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return s, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &s); err != nil {
			return s, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&s)

	if s.Token == "" {
		return s, fmt.Errorf("config: bot token is required")
	}
	return s, nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv("ROADMAPBOT_TOKEN"); v != "" {
		s.Token = v
	}
	if v := os.Getenv("ROADMAPBOT_DATABASE_DSN"); v != "" {
		s.DatabaseDSN = v
	}
	if v := os.Getenv("ROADMAPBOT_SQLITE_PATH"); v != "" {
		s.SQLitePath = v
	}
	if v := os.Getenv("ROADMAPBOT_REDIS_ADDR"); v != "" {
		s.RedisAddr = v
	}
	if v := os.Getenv("ROADMAPBOT_REDIS_PASSWORD"); v != "" {
		s.RedisPassword = v
	}
	if v := os.Getenv("ROADMAPBOT_DEFAULT_TIMEZONE"); v != "" {
		s.DefaultTimezone = v
	}
	if v := os.Getenv("ROADMAPBOT_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.SweepInterval = d
		}
	}
	if v := os.Getenv("ROADMAPBOT_ADMIN_TG_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.AdminTgID = id
		}
	}
}
