package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings. The values are
// injected into the position store at construction; nothing global.
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// AuthConfig contains the API token handed to the auth middleware.
type AuthConfig struct {
	APIToken string `toml:"api_token"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns the built-in defaults for a local run.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "crayon",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			APIToken: "dev-token",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path skips the file stage.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies CRAYON_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if host := os.Getenv("CRAYON_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("CRAYON_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CRAYON_DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("CRAYON_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if user := os.Getenv("CRAYON_DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("CRAYON_DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if name := os.Getenv("CRAYON_DB_NAME"); name != "" {
		config.Database.Name = name
	}
	if sslmode := os.Getenv("CRAYON_DB_SSLMODE"); sslmode != "" {
		config.Database.SSLMode = sslmode
	}
	if token := os.Getenv("CRAYON_API_TOKEN"); token != "" {
		config.Auth.APIToken = token
	}
	if level := os.Getenv("CRAYON_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
