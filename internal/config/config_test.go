package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "marquee.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Ingest.MaxConcurrentSubjects)
	assert.Equal(t, 2, cfg.Gateway.BaseDelaySecs)
	assert.Equal(t, 15, cfg.Gateway.CooldownMins)
	assert.Equal(t, 80, cfg.Quality.MinChars)
	assert.Equal(t, 600, cfg.Quality.BodyChars)
	assert.Equal(t, 400, cfg.Quality.TruncationWordFloor)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "https://chrome.browserless.io", cfg.Browserless.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/marquee
log:
  level: debug
  format: console
server:
  port: 9090
guardian:
  overrides:
    - subject_id: hamilton
      field: capitalization
      reason: restatement confirmed
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	require.Len(t, cfg.Guardian.Overrides, 1)
	assert.Equal(t, "hamilton", cfg.Guardian.Overrides[0].SubjectID)
	assert.Equal(t, "capitalization", cfg.Guardian.Overrides[0].Field)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Gateway.BaseDelaySecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MARQUEE_LOG_LEVEL", "warn")
	t.Setenv("MARQUEE_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestValidateIngest(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate("ingest"))

	cfg.Store.Driver = "postgres"
	err = cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/marquee"
	assert.NoError(t, cfg.Validate("ingest"))

	cfg.Ingest.MaxConcurrentSubjects = 0
	err = cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_subjects")
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
