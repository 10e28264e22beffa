// Package config handles application configuration from environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/tba/cache"
	"github.com/briangreenhill/tba/tba"
)

// FileEnv names the variable pointing at an optional YAML config file.
const FileEnv = "TBA_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	AuthKey     string        `env:"TBA_AUTH_KEY" yaml:"auth_key"`
	BaseURL     string        `env:"TBA_BASE_URL" yaml:"base_url"`
	HTTPTimeout time.Duration `env:"TBA_HTTP_TIMEOUT" yaml:"http_timeout"`
	LogLevel    string        `env:"TBA_LOG_LEVEL" yaml:"log_level"`
	RedisAddr   string        `env:"TBA_REDIS_ADDR" yaml:"redis_addr"`

	Cache CacheConfig `yaml:"cache"`

	Port           string `env:"PORT" yaml:"port"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" yaml:"metrics_enabled"`
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Enabled     bool    `env:"TBA_CACHE" yaml:"enabled"`
	Force       bool    `env:"TBA_FORCE_CACHE" yaml:"force"`
	Multiplier  float64 `env:"TBA_CACHE_MULTIPLIER" yaml:"multiplier"`
	Backend     string  `env:"TBA_CACHE_BACKEND" yaml:"backend"`
	Dir         string  `env:"TBA_CACHE_DIR" yaml:"dir"`
	DatabaseURL string  `env:"TBA_DATABASE_URL" yaml:"database_url"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		BaseURL:     tba.DefaultBaseURL,
		HTTPTimeout: 20 * time.Second,
		LogLevel:    "info",
		Port:        "8080",
		Cache: CacheConfig{
			Enabled:    true,
			Multiplier: 1,
			Backend:    cache.BackendSQLite,
		},
	}
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return load(env.ToMap(os.Environ()))
}

// load applies defaults, then the YAML file named by FileEnv, then the
// environment, so variables always win over the file.
func load(environ map[string]string) (*Config, error) {
	cfg := Default()

	if path := environ[FileEnv]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is usable by the client
func (c *Config) Validate() error {
	var errs []error
	if c.AuthKey == "" {
		errs = append(errs, errors.New("TBA_AUTH_KEY is required"))
	}
	if c.Cache.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("TBA_CACHE_MULTIPLIER must be positive, got %v", c.Cache.Multiplier))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("TBA_LOG_LEVEL: %w", err))
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case cache.BackendSQLite, cache.BackendFile, cache.BackendMemory:
		case cache.BackendPostgres:
			if c.Cache.DatabaseURL == "" {
				errs = append(errs, errors.New("TBA_DATABASE_URL is required for the postgres cache backend"))
			}
		case cache.BackendRedis:
			if c.RedisAddr == "" {
				errs = append(errs, errors.New("TBA_REDIS_ADDR is required for the redis cache backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown TBA_CACHE_BACKEND %q", c.Cache.Backend))
		}
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, info when unparsable.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// CacheOptions describes the store to open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:     c.Cache.Backend,
		Dir:         c.Cache.Dir,
		DatabaseURL: c.Cache.DatabaseURL,
		RedisAddr:   c.RedisAddr,
	}
}
