package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envConfigPath overrides the config file location when set.
const envConfigPath = "VOUCHER_CONFIG"

// Config is the server configuration loaded from YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Redemption RedemptionConfig `yaml:"redemption"`
	Sweep      SweepConfig      `yaml:"sweep"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the storage DSN; both PostgreSQL and SQLite DSNs are
// accepted.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds the notification dispatch channel settings. An empty
// address disables dispatch.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// RedemptionConfig controls the approval protocol.
type RedemptionConfig struct {
	ApprovalWindowMinutes int `yaml:"approval_window_minutes"`
}

// SweepConfig controls the expiration sweeper.
type SweepConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	ReminderDays    int `yaml:"reminder_days"`
}

// JWTConfig holds bearer-token validation settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

// LogConfig holds logging settings. File enables rotated file output next to
// stdout.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ResolveConfigPath picks the config file path from the explicit argument or
// the environment, falling back to the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv(envConfigPath)); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and validates the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	cfg := &Config{}
	if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "notifications"
	}
	if c.Redemption.ApprovalWindowMinutes <= 0 {
		c.Redemption.ApprovalWindowMinutes = 5
	}
	if c.Sweep.IntervalMinutes <= 0 {
		c.Sweep.IntervalMinutes = 60
	}
	if c.Sweep.ReminderDays <= 0 {
		c.Sweep.ReminderDays = 7
	}
	if c.JWT.ExpiryHours <= 0 {
		c.JWT.ExpiryHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
}

// ApprovalWindow returns the redemption approval window as a duration.
func (c *Config) ApprovalWindow() time.Duration {
	return time.Duration(c.Redemption.ApprovalWindowMinutes) * time.Minute
}

// SweepInterval returns the sweeper cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}
