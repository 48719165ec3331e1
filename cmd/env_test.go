package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/config"
	"github.com/sells-group/content-fixer/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "fixer.db")},
		Enrichment: config.EnrichmentConfig{
			Provider:         "anthropic",
			MinInterval:      time.Second,
			Timeout:          30 * time.Second,
			MaxTokens:        512,
			Temperature:      0.1,
			CircuitThreshold: 4,
		},
		Correction: config.CorrectionConfig{
			CreateLimit:      50,
			ProcessLimit:     5,
			Workers:          3,
			StuckTimeout:     time.Minute,
			DuplicatePolicy:  "skip",
			MaxErrorMessages: 7,
			WaitBudget:       2,
			Types:            []string{"pressure_fix", "title_year_fix"},
		},
	}
}

func TestCorrectionConfig_MapsFields(t *testing.T) {
	c := testConfig(t)

	cc, err := correctionConfig(c, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, cc.CreateLimit)
	assert.Equal(t, 5, cc.ProcessLimit)
	assert.Equal(t, 3, cc.Workers)
	assert.Equal(t, time.Minute, cc.StuckTimeout)
	assert.Equal(t, 7, cc.MaxErrorMessages)
	assert.Equal(t, 2, cc.WaitBudget)
	assert.Equal(t, 4, cc.CircuitThreshold)
	assert.Equal(t, int64(512), cc.Enrichment.MaxTokens)
	assert.Equal(t, []model.CorrectionType{model.CorrectionPressureFix, model.CorrectionTitleYearFix}, cc.Types)

	cc, err = correctionConfig(c, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, cc.Workers, "batch size overrides workers")
}

func TestCorrectionConfig_UnknownType(t *testing.T) {
	c := testConfig(t)
	c.Correction.Types = []string{"spelling_fix"}

	_, err := correctionConfig(c, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "correction.types")
}

func TestInitProvider_MissingKey(t *testing.T) {
	c := testConfig(t)
	assert.Nil(t, initProvider(c))

	c.Enrichment.Provider = "openai"
	assert.Nil(t, initProvider(c))
}

func TestInitProvider_Selects(t *testing.T) {
	c := testConfig(t)
	c.Anthropic = config.AnthropicConfig{Key: "k", Model: "claude-haiku-4-5-20251001"}
	c.OpenAI = config.OpenAIConfig{Key: "k", Model: "gpt-4o-mini"}

	p := initProvider(c)
	require.NotNil(t, p)
	assert.Equal(t, "anthropic", p.Name())

	c.Enrichment.Provider = "openai"
	p = initProvider(c)
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())
}

func TestInitEnv_SQLite(t *testing.T) {
	prev := cfg
	cfg = testConfig(t)
	defer func() { cfg = prev }()

	env, err := initEnv(context.Background(), 0)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, "none", env.Client.ProviderName())
	require.NoError(t, env.Store.Ping(context.Background()))
	assert.Equal(t, 3, env.Orch.Config().Workers)
}

func TestInitStore_BadPolicy(t *testing.T) {
	prev := cfg
	cfg = testConfig(t)
	cfg.Correction.DuplicatePolicy = "merge"
	defer func() { cfg = prev }()

	_, err := initStore(context.Background())
	require.Error(t, err)
}
