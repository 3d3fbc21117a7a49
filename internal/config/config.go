// Package config loads the server configuration: backend selection,
// gateway listen address, and gateway credentials. Values come from a
// YAML file with environment-variable overrides for the deployment
// knobs that differ per host.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opline/bomcat/internal/backend"
	"github.com/opline/bomcat/internal/gateway"
)

// Config is the full server configuration.
type Config struct {
	// Database selects and parameterizes the backend driver.
	Database backend.Config `yaml:"database"`

	// Listen is the gateway's TCP listen address.
	Listen string `yaml:"listen"`

	// Users maps gateway login names to credentials.
	Users map[string]gateway.User `yaml:"users"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration: an embedded SQLite file
// next to the working directory and a localhost listener with no users.
func Default() Config {
	return Config{
		Database: backend.Config{Kind: backend.KindSQLite, DSN: "bomcat.db"},
		Listen:   "127.0.0.1:8309",
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file and applies environment
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment overrides, applied after the file.
const (
	envKind   = "BOMCAT_DB_KIND"
	envDSN    = "BOMCAT_DB_DSN"
	envListen = "BOMCAT_LISTEN"
	envLevel  = "BOMCAT_LOG_LEVEL"
)

func applyEnv(cfg *Config) {
	if v := os.Getenv(envKind); v != "" {
		cfg.Database.Kind = backend.Kind(v)
	}
	if v := os.Getenv(envDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(envListen); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(envLevel); v != "" {
		cfg.LogLevel = v
	}
}

func (c Config) validate() error {
	switch c.Database.Kind {
	case backend.KindSQLite, backend.KindPostgres, backend.KindMySQL,
		backend.KindSQLServer, backend.KindOracle:
	default:
		return fmt.Errorf("config: unknown database kind %q", c.Database.Kind)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database dsn is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	for name, u := range c.Users {
		switch u.Role {
		case gateway.RoleReadOnly, gateway.RoleReadWrite:
		default:
			return fmt.Errorf("config: user %s has unknown role %q", name, u.Role)
		}
		if len(u.PasswordSHA256) != 64 {
			return fmt.Errorf("config: user %s needs a hex SHA-256 password digest", name)
		}
	}
	return nil
}
