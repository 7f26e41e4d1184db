// Package config provides configuration management for mygrate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is mygrate's top-level configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Target  TargetConfig  `yaml:"target"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig is the live MySQL server mygrate introspects as db_from.
type SourceConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	TLS             string `yaml:"tls"` // true, false, skip-verify, preferred
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// DSN renders the MySQL data source name go-sql-driver/mysql expects.
func (s SourceConfig) DSN() string {
	tls := s.TLS
	if tls == "" {
		tls = "preferred"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?tls=%s&parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Database, tls)
}

// TargetConfig points at the directory of declarative `.sql` schema files
// that make up db_to.
type TargetConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig is the optional HTTP preview service's listen address.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

// Address returns the server's listen address string.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls the slog handler main wires up.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // empty means stderr
}

// MetricsConfig toggles the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies MYGRATE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MYGRATE_SOURCE_HOST"); v != "" {
		c.Source.Host = v
	}
	if v := os.Getenv("MYGRATE_SOURCE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Source.Port = port
		}
	}
	if v := os.Getenv("MYGRATE_SOURCE_DATABASE"); v != "" {
		c.Source.Database = v
	}
	if v := os.Getenv("MYGRATE_SOURCE_USER"); v != "" {
		c.Source.User = v
	}
	if v := os.Getenv("MYGRATE_SOURCE_PASSWORD"); v != "" {
		c.Source.Password = v
	}
	if v := os.Getenv("MYGRATE_SOURCE_TLS"); v != "" {
		c.Source.TLS = v
	}
	if v := os.Getenv("MYGRATE_TARGET_DIR"); v != "" {
		c.Target.Dir = v
	}
	if v := os.Getenv("MYGRATE_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("MYGRATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MYGRATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MYGRATE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MYGRATE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("MYGRATE_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Source.Port < 0 || c.Source.Port > 65535 {
		return fmt.Errorf("invalid source port: %d", c.Source.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if c.Logging.Format != "" && !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
