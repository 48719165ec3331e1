// Package correction drives corrections through their lifecycle: it creates
// them for defects found by the scanner, enriches and applies them, and keeps
// the queue healthy.
package correction

import (
	"context"
	"time"

	"github.com/sells-group/content-fixer/internal/enrich"
	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
	"github.com/sells-group/content-fixer/internal/store"
)

// Enricher sends one prompt to the text provider.
type Enricher interface {
	Enrich(ctx context.Context, prompt string, opts enrich.Options) (string, error)
	ProviderName() string
}

// RateLimiter reports the availability of the shared enrichment limiter.
type RateLimiter interface {
	CanMakeRequest() bool
	TimeUntilNextRequest() time.Duration
}

// Config tunes the orchestrator.
type Config struct {
	CreateLimit  int
	ProcessLimit int
	Workers      int
	StuckTimeout time.Duration
	// MaxErrorMessages bounds the error strings kept in a result.
	MaxErrorMessages int
	// RecreateFailed lets CreateMissing open a new correction when the only
	// existing one failed.
	RecreateFailed bool
	// WaitBudget is how many times one ProcessPending run may block on the
	// limiter before it stops early.
	WaitBudget int
	// CircuitThreshold consecutive transport failures stop a ProcessPending run.
	CircuitThreshold int
	// Types restricts which correction types are created and processed.
	Types      []model.CorrectionType
	DryRun     bool
	Enrichment enrich.Options
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		CreateLimit:      100,
		ProcessLimit:     10,
		Workers:          2,
		StuckTimeout:     15 * time.Minute,
		MaxErrorMessages: 20,
		WaitBudget:       1,
		CircuitThreshold: 3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CreateLimit <= 0 {
		c.CreateLimit = def.CreateLimit
	}
	if c.ProcessLimit <= 0 {
		c.ProcessLimit = def.ProcessLimit
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.StuckTimeout <= 0 {
		c.StuckTimeout = def.StuckTimeout
	}
	if c.MaxErrorMessages <= 0 {
		c.MaxErrorMessages = def.MaxErrorMessages
	}
	if c.WaitBudget < 0 {
		c.WaitBudget = 0
	}
	if c.CircuitThreshold <= 0 {
		c.CircuitThreshold = def.CircuitThreshold
	}
	if len(c.Types) == 0 {
		c.Types = model.AllCorrectionTypes()
	}
	return c
}

// Orchestrator composes the scanner, store and enrichment client.
type Orchestrator struct {
	store    store.Store
	scanner  *scan.Scanner
	enricher Enricher
	limiter  RateLimiter
	cfg      Config
	now      func() time.Time
}

// New creates an Orchestrator. limiter may be nil when enrichment is never
// throttled.
func New(st store.Store, sc *scan.Scanner, en Enricher, limiter RateLimiter, cfg Config) *Orchestrator {
	if limiter == nil {
		limiter = enrich.NewLimiter(0)
	}
	return &Orchestrator{
		store:    st,
		scanner:  sc,
		enricher: en,
		limiter:  limiter,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// blockingStatuses are the statuses that keep CreateMissing from opening a
// new correction of the same type.
func (o *Orchestrator) blockingStatuses() []model.CorrectionStatus {
	out := []model.CorrectionStatus{model.StatusPending, model.StatusProcessing, model.StatusCompleted}
	if !o.cfg.RecreateFailed {
		out = append(out, model.StatusFailed)
	}
	return out
}
