package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validTestConfig returns a config that passes validation.
func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Reddit.ClientID = "client-id"
	cfg.Reddit.ClientSecret = "client-secret"
	cfg.Reddit.Username = "gopher"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.Fetch.PageSize)
	assert.False(t, cfg.Fetch.ForceFetch)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "tokens.json", cfg.State.TokenFile)
	assert.Equal(t, "last_fetch.json", cfg.State.BoundaryFile)
	assert.Equal(t, "file", cfg.State.TokenBackend)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 16*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CLIENT_ID", "env-client")
	t.Setenv("CLIENT_SECRET", "env-secret")
	t.Setenv("REDDIT_USERNAME", "env-user")
	t.Setenv("OUTPUT_FORMAT", "HTML")
	t.Setenv("FORCE_FETCH", "true")
	t.Setenv("FETCH_INTERVAL", "3600")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-client", cfg.Reddit.ClientID)
	assert.Equal(t, "env-secret", cfg.Reddit.ClientSecret)
	assert.Equal(t, "env-user", cfg.Reddit.Username)
	assert.Equal(t, "html", cfg.Output.Format)
	assert.True(t, cfg.Fetch.ForceFetch)
	assert.Equal(t, time.Hour, cfg.Fetch.Interval)
}

func TestLoadFromEnvStripsWhitespace(t *testing.T) {
	t.Setenv("CLIENT_ID", "  padded-client \n")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "padded-client", cfg.Reddit.ClientID)
}

func TestLoadFromEnvDockerPaths(t *testing.T) {
	t.Setenv("DOCKER", "1")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/data/tokens.json", cfg.State.TokenFile)
	assert.Equal(t, "/data/last_fetch.json", cfg.State.BoundaryFile)
	assert.Equal(t, "/data", cfg.Output.Directory)
}

func TestLoadFromFile(t *testing.T) {
	content := `
reddit:
  client_id: yaml-client
  username: yaml-user
fetch:
  page_size: 25
output:
  format: html
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "yaml-client", cfg.Reddit.ClientID)
	assert.Equal(t, "yaml-user", cfg.Reddit.Username)
	assert.Equal(t, 25, cfg.Fetch.PageSize)
	assert.Equal(t, "html", cfg.Output.Format)
	// Untouched values keep their defaults.
	assert.Equal(t, "tokens.json", cfg.State.TokenFile)
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not valid"), 0o644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestMergeFlags(t *testing.T) {
	cfg := validTestConfig()
	cfg.MergeFlags(map[string]interface{}{
		"format":   "HTML",
		"output":   "/exports",
		"force":    true,
		"interval": 6 * time.Hour,
	})

	assert.Equal(t, "html", cfg.Output.Format)
	assert.Equal(t, "/exports", cfg.Output.Directory)
	assert.True(t, cfg.Fetch.ForceFetch)
	assert.Equal(t, 6*time.Hour, cfg.Fetch.Interval)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID is required")
	assert.Contains(t, err.Error(), "client secret is required")
	assert.Contains(t, err.Error(), "reddit username is required")
}

func TestValidateRejectsWhitespaceInCredentials(t *testing.T) {
	cfg := validTestConfig()
	cfg.Reddit.ClientID = "has space"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID contains whitespace")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output format"},
		{"zero page size", func(c *Config) { c.Fetch.PageSize = 0 }, "page size"},
		{"oversized page", func(c *Config) { c.Fetch.PageSize = 500 }, "page size"},
		{"bad backend", func(c *Config) { c.State.TokenBackend = "vault" }, "token backend"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := validTestConfig()
	cfg.Fetch.PageSize = 42
	require.NoError(t, cfg.Save(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, 42, reloaded.Fetch.PageSize)
	assert.Equal(t, "client-id", reloaded.Reddit.ClientID)
}
