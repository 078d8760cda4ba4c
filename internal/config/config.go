// Package config loads the remodel.yaml project file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level remodel configuration file.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Tables  string        `yaml:"tables"`
	Naming  NamingConfig  `yaml:"naming"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig identifies the database to introspect.
type SourceConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
	Schema  string `yaml:"schema"`
	// PrivateKeyPath switches Snowflake connections to key pair auth.
	PrivateKeyPath string      `yaml:"private_key_path"`
	Pool           *PoolConfig `yaml:"pool,omitempty"`
}

// PoolConfig controls the connection pool. Durations are strings like "5m".
type PoolConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

// NamingConfig picks how database names become entity and field names.
type NamingConfig struct {
	Strategy string `yaml:"strategy"`
	IntWidth int    `yaml:"int_width"`
}

// OutputConfig names the files the generate command writes.
type OutputConfig struct {
	Mapping  string `yaml:"mapping"`
	Entities string `yaml:"entities"`
	Package  string `yaml:"package"`
	OpenAPI  string `yaml:"openapi"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
}

// RateLimitConfig caps requests per client IP within a window.
type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses a YAML configuration file. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Dialect: "postgres",
		},
		Tables: "*",
		Naming: NamingConfig{
			Strategy: "default",
			IntWidth: 64,
		},
		Output: OutputConfig{
			Mapping:  "remodel.mapping.yaml",
			Entities: "entities.gen.go",
			Package:  "entities",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: "15s",
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET", "HEAD", "OPTIONS"},
			},
			RateLimit: RateLimitConfig{
				Requests: 120,
				Window:   "1m",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefault writes the default configuration to a YAML file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
