package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Catalog is the public book search API
	Catalog struct {
		URL        string `yaml:"url"`
		MaxResults int    `yaml:"max_results"`
	} `yaml:"catalog"`

	// Hardcover configures optional rating enrichment
	Hardcover struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"hardcover"`

	// Database configuration
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Cache configuration
	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`

	// Auth configuration
	Auth struct {
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`
}

// Load loads configuration from a file (if specified) and environment variables.
// Priority: environment variables, then config file, then defaults.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	// Defaults
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Catalog.URL = "https://www.googleapis.com/books/v1"
	cfg.Catalog.MaxResults = 10
	cfg.Hardcover.URL = "https://api.hardcover.app/v1/graphql"
	cfg.Database.Path = "./data/bookfinder.db"
	cfg.Cache.Dir = "./data/cache"
	cfg.Auth.SessionTTL = 24 * time.Hour

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", configFile)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Catalog.URL == "" {
		return &ConfigError{Field: "catalog.url", Msg: "must not be empty"}
	}
	if c.Catalog.MaxResults <= 0 || c.Catalog.MaxResults > 40 {
		return &ConfigError{Field: "catalog.max_results", Msg: "must be between 1 and 40"}
	}
	if c.Server.Port == "" {
		return &ConfigError{Field: "server.port", Msg: "must not be empty"}
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return &ConfigError{Field: "server.port", Msg: "must be numeric"}
	}
	if c.Auth.SessionTTL <= 0 {
		return &ConfigError{Field: "auth.session_ttl", Msg: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if timeout := getDurationFromEnv("SHUTDOWN_TIMEOUT", 0); timeout > 0 {
		cfg.Server.ShutdownTimeout = timeout
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if url := os.Getenv("CATALOG_URL"); url != "" {
		cfg.Catalog.URL = strings.TrimSuffix(url, "/")
	}
	if maxResults := getIntFromEnv("CATALOG_MAX_RESULTS", 0); maxResults > 0 {
		cfg.Catalog.MaxResults = maxResults
	}
	if url := os.Getenv("HARDCOVER_URL"); url != "" {
		cfg.Hardcover.URL = url
	}
	if token := os.Getenv("HARDCOVER_TOKEN"); token != "" {
		cfg.Hardcover.Token = token
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if dir := os.Getenv("CACHE_DIR"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if ttl := getDurationFromEnv("SESSION_TTL", 0); ttl > 0 {
		cfg.Auth.SessionTTL = ttl
	}
}

func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return i
	}
	return fallback
}

func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}
