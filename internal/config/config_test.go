package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[confluence]
base_url = "https://wiki.example.com"
token = "secret"
verify_ssl = true
timeout_seconds = 15

[graph]
uri = "bolt://graph:7687"
user = "neo4j"
password = "pass"

[concurrency]
workers = 8
page_timeout_seconds = 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://wiki.example.com", cfg.Confluence.BaseURL)
	assert.Equal(t, "secret", cfg.Confluence.Token)
	assert.Equal(t, 15, cfg.Confluence.TimeoutSeconds)
	assert.Equal(t, "bolt://graph:7687", cfg.Graph.URI)
	assert.Equal(t, 8, cfg.Concurrency.Workers)
	assert.Equal(t, 120, cfg.Concurrency.PageTimeoutSeconds)
	// Unset sections fall back to defaults.
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, 10, cfg.Include.TimeoutSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	require.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[confluence\nbase_url =")
	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)
	assert.Equal(t, 4, cfg.Concurrency.Workers)
	assert.Equal(t, 30, cfg.Confluence.TimeoutSeconds)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CONFLUENCE_BASE_URL", "https://other.example.com")
	t.Setenv("CONFLUENCE_TOKEN", "env-token")
	t.Setenv("EXPORT_WORKERS", "12")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "https://other.example.com", cfg.Confluence.BaseURL)
	assert.Equal(t, "env-token", cfg.Confluence.Token)
	assert.Equal(t, 12, cfg.Concurrency.Workers)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Confluence.BaseURL = "https://wiki.example.com"
	cfg.Confluence.Token = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.Confluence.Token = ""
	assert.Error(t, cfg.Validate())

	cfg.Confluence.Token = "secret"
	cfg.Confluence.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg.Confluence.BaseURL = ""
	assert.Error(t, cfg.Validate())
}
