package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/config"
	"github.com/sells-group/content-fixer/internal/correction"
	"github.com/sells-group/content-fixer/internal/enrich"
	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
	"github.com/sells-group/content-fixer/internal/store"
	"github.com/sells-group/content-fixer/pkg/anthropic"
	"github.com/sells-group/content-fixer/pkg/openai"
)

// fixerEnv holds the initialized dependencies shared by the subcommands.
type fixerEnv struct {
	Store   store.Store
	Limiter *enrich.Limiter
	Client  *enrich.Client
	Scanner *scan.Scanner
	Orch    *correction.Orchestrator
}

// Close releases the store.
func (e *fixerEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initEnv opens and migrates the store and wires the orchestrator. workers
// overrides correction.workers when positive.
func initEnv(ctx context.Context, workers int) (*fixerEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	ccfg, err := correctionConfig(cfg, workers)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	limiter := enrich.NewLimiter(cfg.Enrichment.MinInterval)
	client := enrich.NewClient(initProvider(cfg), limiter, ccfg.Enrichment)
	sc := scan.New(scanConfig(cfg.Correction))

	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("provider", client.ProviderName()),
		zap.Int("workers", ccfg.Workers),
		zap.Bool("dry_run", ccfg.DryRun),
	)

	return &fixerEnv{
		Store:   st,
		Limiter: limiter,
		Client:  client,
		Scanner: sc,
		Orch:    correction.New(st, sc, client, limiter, ccfg),
	}, nil
}

// initStore opens the configured backend and applies the schema.
func initStore(ctx context.Context) (store.Store, error) {
	policy, err := store.ParseDuplicatePolicy(cfg.Correction.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	opt := store.WithDuplicatePolicy(policy)

	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}, opt)
	default:
		st, err = store.NewSQLite(cfg.Store.DatabaseURL, opt)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initProvider returns the configured text provider, or nil when its key is
// missing. A nil provider makes every enrichment fail with a config error.
func initProvider(c *config.Config) enrich.Provider {
	switch c.Enrichment.Provider {
	case "openai":
		if c.OpenAI.Key == "" {
			zap.L().Warn("openai key not set, enrichment disabled")
			return nil
		}
		return openai.NewProvider(c.OpenAI.Key, c.OpenAI.BaseURL, c.OpenAI.Model, correction.SystemPrompt)
	default:
		if c.Anthropic.Key == "" {
			zap.L().Warn("anthropic key not set, enrichment disabled")
			return nil
		}
		client := anthropic.NewClient(c.Anthropic.Key, anthropic.WithBaseURL(c.Anthropic.BaseURL))
		return anthropic.NewProvider(client, c.Anthropic.Model, correction.SystemPrompt)
	}
}

func correctionConfig(c *config.Config, workers int) (correction.Config, error) {
	cc := correction.DefaultConfig()
	cc.CreateLimit = c.Correction.CreateLimit
	cc.ProcessLimit = c.Correction.ProcessLimit
	cc.Workers = c.Correction.Workers
	if workers > 0 {
		cc.Workers = workers
	}
	cc.StuckTimeout = c.Correction.StuckTimeout
	cc.MaxErrorMessages = c.Correction.MaxErrorMessages
	cc.RecreateFailed = c.Correction.RecreateFailed
	cc.WaitBudget = c.Correction.WaitBudget
	cc.CircuitThreshold = c.Enrichment.CircuitThreshold
	cc.DryRun = dryRun
	cc.Enrichment = enrich.Options{
		MaxTokens:   c.Enrichment.MaxTokens,
		Temperature: c.Enrichment.Temperature,
		Timeout:     c.Enrichment.Timeout,
	}

	for _, s := range c.Correction.Types {
		t, err := model.ParseCorrectionType(s)
		if err != nil {
			return cc, eris.Wrap(err, "correction.types")
		}
		cc.Types = append(cc.Types, t)
	}
	return cc, nil
}

func scanConfig(c config.CorrectionConfig) scan.Config {
	return scan.Config{
		PlaceholderTokens:  c.PlaceholderTokens,
		OverusedNames:      c.OverusedNames,
		CurrentModelYear:   c.CurrentModelYear,
		StaleYearTolerance: c.StaleYearTolerance,
	}
}
