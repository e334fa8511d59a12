package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig selects the document store. URI is required at the first
// connection attempt, not at load time.
type DatabaseConfig struct {
	Type string `json:"type"` // "mongodb" or "sqlite"
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type Config struct {
	Port        int            `json:"port"`
	Development bool           `json:"development"`
	LogDir      string         `json:"logDir"`
	LogLevel    string         `json:"logLevel"`
	Timezone    string         `json:"timezone"` // IANA name used to read event date/time; empty means local
	Database    DatabaseConfig `json:"database"`
	Storage     StorageConfig  `json:"storage"`
	Security    SecurityConfig `json:"security"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present
func DefaultConfig() *Config {
	return &Config{
		Port:     3000,
		LogDir:   "./logs",
		LogLevel: "info",
		Database: DatabaseConfig{
			Type: "mongodb",
			Name: "Sibya",
		},
		Storage:  *DefaultStorageConfig(),
		Security: *DefaultSecurityConfig(),
	}
}

// Load reads <configDir>/config.json when present, then .env, then the
// process environment. Later sources win.
func Load(configDir string) (*Config, error) {
	cfg := DefaultConfig()

	configFile := filepath.Join(configDir, "config.json")
	if data, err := os.ReadFile(configFile); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", configFile, err)
	}

	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Storage.applyDefaults()
	if cfg.Database.Type == "" {
		cfg.Database.Type = "mongodb"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "Sibya"
	}
	if cfg.Security.JWTExpiration == "" {
		cfg.Security.JWTExpiration = "24h"
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SIBYA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SIBYA_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("SIBYA_DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SIBYA_DEV %q: %w", v, err)
		}
		c.Development = dev
	}

	setString(&c.LogDir, "LOG_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Timezone, "TZ_EVENTS")
	setString(&c.Database.Type, "DATABASE_TYPE")
	setString(&c.Database.URI, "MONGODB_URI")
	setString(&c.Database.Name, "MONGODB_DB")
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.Local.BasePath, "UPLOADS_DIR")
	setString(&c.Storage.S3.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.S3.AccessKeyID, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.S3.SecretAccessKey, "STORAGE_SECRET_KEY")
	setString(&c.Security.JWTSecret, "JWT_SECRET")
	setString(&c.Security.JWTIssuer, "JWT_ISSUER")
	setString(&c.Security.WebhookSecret, "WEBHOOK_SECRET")

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Location returns the zone event date/time strings are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetConfigDir returns the default configuration directory
func GetConfigDir() string {
	return ".sibya"
}
