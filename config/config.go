// Package config handles configuration loading and validation for paydash.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/habedi/paydash/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Credential store backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Environment variables that override the config file.
const (
	EnvBaseURL   = "PAYDASH_BASE_URL"
	EnvStore     = "PAYDASH_STORE"
	EnvRedisAddr = "PAYDASH_REDIS_ADDR"
)

// Config holds the application configuration.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	SingleFlight bool          `yaml:"single_flight"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	MetricsFile  string        `yaml:"metrics_file"`
	HTTP         HTTPConfig    `yaml:"http"`
	Store        StoreConfig   `yaml:"store"`
}

// HTTPConfig holds transport settings.
type HTTPConfig struct {
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

// StoreConfig selects and configures the credential store.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"` // sqlite database or JSON file, depending on Backend
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// Dir returns the directory paydash keeps its files in.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".paydash")
}

// DefaultPath returns the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://127.0.0.1:8000/api",
		Timeout:      30 * time.Second,
		SingleFlight: true,
		CacheTTL:     30 * time.Minute,
		HTTP: HTTPConfig{
			Retries: 0,
			Backoff: time.Second,
		},
		Store: StoreConfig{
			Backend:     BackendSQLite,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "paydash:",
		},
	}
}

// Load reads configuration from path, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Store.RedisAddr = v
	}
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.HTTP.Backoff == 0 {
		c.HTTP.Backoff = defaults.HTTP.Backoff
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Store.Path == "" {
		switch c.Store.Backend {
		case BackendSQLite:
			c.Store.Path = filepath.Join(Dir(), "paydash.db")
		case BackendFile:
			c.Store.Path = filepath.Join(Dir(), "credentials.json")
		}
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = defaults.Store.RedisPrefix
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.ValidateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl cannot be negative")
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries cannot be negative")
	}
	if c.HTTP.Backoff < 0 {
		return fmt.Errorf("http.backoff cannot be negative")
	}

	switch c.Store.Backend {
	case BackendSQLite, BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path cannot be empty for the %s backend", c.Store.Backend)
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr cannot be empty for the redis backend")
		}
		if c.Store.RedisDB < 0 {
			return fmt.Errorf("store.redis_db cannot be negative")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid store.backend %q (must be one of: sqlite, file, redis, memory)", c.Store.Backend)
	}
	return nil
}

// UseBackend switches the credential store backend and resets the store path to
// that backend's default.
func (c *Config) UseBackend(backend string) {
	c.Store.Backend = backend
	c.Store.Path = ""
	c.applyDefaults()
}
