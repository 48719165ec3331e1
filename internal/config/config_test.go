package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "content-fixer.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "anthropic", cfg.Enrichment.Provider)
	assert.Equal(t, 2*time.Second, cfg.Enrichment.MinInterval)
	assert.Equal(t, 60*time.Second, cfg.Enrichment.Timeout)
	assert.Equal(t, int64(1024), cfg.Enrichment.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Enrichment.Temperature, 0.001)
	assert.Equal(t, 3, cfg.Enrichment.CircuitThreshold)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 100, cfg.Correction.CreateLimit)
	assert.Equal(t, 10, cfg.Correction.ProcessLimit)
	assert.Equal(t, 2, cfg.Correction.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Correction.StuckTimeout)
	assert.Equal(t, "skip", cfg.Correction.DuplicatePolicy)
	assert.Equal(t, 20, cfg.Correction.MaxErrorMessages)
	assert.Equal(t, 1, cfg.Correction.WaitBudget)
	assert.Equal(t, []string{"N/A N/A N/A"}, cfg.Correction.PlaceholderTokens)
	assert.Len(t, cfg.Correction.Types, 3)
	assert.Equal(t, 3, cfg.Correction.StaleYearTolerance)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/fixer
log:
  level: debug
  format: console
enrichment:
  provider: openai
  min_interval: 500ms
correction:
  workers: 4
  stuck_timeout: 1h
  overused_names: [Pedro Alves]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/fixer", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.Enrichment.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.Enrichment.MinInterval)
	assert.Equal(t, 4, cfg.Correction.Workers)
	assert.Equal(t, time.Hour, cfg.Correction.StuckTimeout)
	assert.Equal(t, []string{"Pedro Alves"}, cfg.Correction.OverusedNames)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Correction.ProcessLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
correction:
  process_limit: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("FIXER_LOG_LEVEL", "warn")
	t.Setenv("FIXER_CORRECTION_PROCESS_LIMIT", "25")
	t.Setenv("FIXER_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("FIXER_CORRECTION_STALE_YEAR_TOLERANCE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Correction.ProcessLimit)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, 0, cfg.Correction.StaleYearTolerance)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FIXER_OPENAI_KEY=sk-from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FIXER_OPENAI_KEY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.OpenAI.Key)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv("FIXER_STORE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Store.Driver (oneof)")
}

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", DatabaseURL: "fixer.db"},
		Log:   LogConfig{Level: "info", Format: "json"},
		Enrichment: EnrichmentConfig{
			Provider: "anthropic", Timeout: time.Minute, MaxTokens: 1024, CircuitThreshold: 3,
		},
		Correction: CorrectionConfig{
			CreateLimit: 100, ProcessLimit: 10, Workers: 2, StuckTimeout: 15 * time.Minute,
			DuplicatePolicy: "skip", MaxErrorMessages: 20,
		},
		Server: ServerConfig{Port: 9090},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad provider", func(c *Config) { c.Enrichment.Provider = "gemini" }, "Enrichment.Provider"},
		{"temperature", func(c *Config) { c.Enrichment.Temperature = 3 }, "Enrichment.Temperature (lte)"},
		{"workers", func(c *Config) { c.Correction.Workers = 0 }, "Correction.Workers (gt)"},
		{"policy", func(c *Config) { c.Correction.DuplicatePolicy = "replace" }, "Correction.DuplicatePolicy"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "Server.Port (lte)"},
		{"webhook", func(c *Config) { c.Monitoring.WebhookURL = "not a url" }, "Monitoring.WebhookURL (url)"},
		{"no database", func(c *Config) { c.Store.DatabaseURL = "" }, "Store.DatabaseURL (required)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
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
