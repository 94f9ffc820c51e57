package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "https://www.googleapis.com/books/v1", cfg.Catalog.URL)
	assert.Equal(t, 10, cfg.Catalog.MaxResults)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Empty(t, cfg.Hardcover.Token)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
logging:
  level: debug
  format: console
catalog:
  url: https://books.example.com/v1
  max_results: 20
database:
  path: /tmp/test.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "https://books.example.com/v1", cfg.Catalog.URL)
	assert.Equal(t, 20, cfg.Catalog.MaxResults)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0644))

	t.Setenv("PORT", "7070")
	t.Setenv("CATALOG_URL", "https://env.example.com/v1/")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "https://env.example.com/v1", cfg.Catalog.URL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty catalog url", func(c *Config) { c.Catalog.URL = "" }},
		{"max results too high", func(c *Config) { c.Catalog.MaxResults = 100 }},
		{"max results zero", func(c *Config) { c.Catalog.MaxResults = 0 }},
		{"non numeric port", func(c *Config) { c.Server.Port = "abc" }},
		{"zero session ttl", func(c *Config) { c.Auth.SessionTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
