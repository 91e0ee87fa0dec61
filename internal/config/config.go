// Package config loads application configuration from a YAML file and
// environment variables. Environment variables take precedence, using the
// MAILROOM_ prefix with underscores as section separators, e.g.
// MAILROOM_DATABASE_URL overrides database.url.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration object. It is built once at process
// start and passed explicitly into each component.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	CORS      CORSConfig      `koanf:"cors"`
	Queue     QueueConfig     `koanf:"queue"`
	Digest    DigestConfig    `koanf:"digest"`
	Transport TransportConfig `koanf:"transport"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

// AuthConfig contains settings for authenticating scheduler callers.
// Invocations carry a bearer JWT signed with SecretKey and a
// role=service_role claim, matching how the platform scheduler signs
// its requests.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// CORSConfig contains CORS settings for the invocation surface.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// QueueConfig contains queue worker settings.
type QueueConfig struct {
	DefaultBatchSize  int           `koanf:"default_batch_size"`
	MaxBatchSize      int           `koanf:"max_batch_size"`
	VisibilityTimeout time.Duration `koanf:"visibility_timeout"`
}

// DigestConfig contains weekly digest builder settings.
type DigestConfig struct {
	// WindowDays is the length of the completed/spend lookback and the
	// upcoming-due lookahead, in days.
	WindowDays int `koanf:"window_days"`
}

// TransportConfig contains settings for the external send API.
type TransportConfig struct {
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond int           `koanf:"rate_per_second"`
}

// Default returns a Config populated with defaults. Database URL,
// auth secret and transport base URL have no defaults and must be set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Queue: QueueConfig{
			DefaultBatchSize:  50,
			MaxBatchSize:      500,
			VisibilityTimeout: 5 * time.Minute,
		},
		Digest: DigestConfig{
			WindowDays: 7,
		},
		Transport: TransportConfig{
			Timeout:       30 * time.Second,
			RatePerSecond: 10,
		},
	}
}

// Load reads configuration from the optional YAML file at path (skipped
// when path is empty or the file does not exist) and from MAILROOM_*
// environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	// MAILROOM_DATABASE_URL -> database.url. Only the first underscore
	// separates the section; the rest of the key keeps its underscores.
	err := k.Load(env.Provider("MAILROOM_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "MAILROOM_"))
		return strings.Replace(s, "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("auth.secret_key is required"))
	}
	if c.Transport.BaseURL == "" {
		errs = append(errs, errors.New("transport.base_url is required"))
	}
	if c.Queue.DefaultBatchSize <= 0 {
		errs = append(errs, errors.New("queue.default_batch_size must be positive"))
	}
	if c.Queue.MaxBatchSize < c.Queue.DefaultBatchSize {
		errs = append(errs, errors.New("queue.max_batch_size must be >= queue.default_batch_size"))
	}
	if c.Digest.WindowDays <= 0 {
		errs = append(errs, errors.New("digest.window_days must be positive"))
	}

	return errors.Join(errs...)
}
