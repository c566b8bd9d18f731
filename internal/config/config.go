// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cloudbudget/internal/errors"
	"cloudbudget/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Server contains HTTP server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Database contains storage settings
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Auth contains token verification settings
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Advice contains LLM advice settings
	Advice AdviceConfig `json:"advice" yaml:"advice"`

	// Rates contains rate-table cache settings
	Rates RatesConfig `json:"rates" yaml:"rates"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr"`
}

// DatabaseConfig contains storage settings
type DatabaseConfig struct {
	// DSN selects the database: a SQLite path or a postgres URL
	DSN string `json:"dsn" yaml:"dsn"`
}

// AuthConfig contains token verification settings
type AuthConfig struct {
	// JWTSecret signs and verifies bearer tokens (HS256)
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
}

// AdviceConfig contains LLM advice settings
type AdviceConfig struct {
	// Endpoint is the chat-completions URL of the advice backend
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent with each request
	Model string `json:"model" yaml:"model"`

	// APIKey authorizes requests to the advice backend
	APIKey string `json:"api_key" yaml:"api_key"`

	// TimeoutSeconds bounds one advice call
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// RatesConfig contains rate-table cache settings
type RatesConfig struct {
	// RefreshSchedule is a cron expression for cache refresh
	RefreshSchedule string `json:"refresh_schedule" yaml:"refresh_schedule"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "cloudbudget.db"},
		Advice: AdviceConfig{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
		},
		Rates:   RatesConfig{RefreshSchedule: "@every 5m"},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from a JSON or YAML file, chosen by extension,
// and applies environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.TypeConfig, "read config file", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.TypeConfig, "parse yaml config", err)
			}
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.TypeConfig, "parse json config", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets deployments inject secrets without writing them to disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("CLOUDBUDGET_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CLOUDBUDGET_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("CLOUDBUDGET_ADVICE_API_KEY"); v != "" {
		c.Advice.APIKey = v
	}
	if v := os.Getenv("CLOUDBUDGET_ADDR"); v != "" {
		c.Server.Addr = v
	}
}
