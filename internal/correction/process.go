package correction

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/content-fixer/internal/enrich"
	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/resilience"
	"github.com/sells-group/content-fixer/internal/store"
)

const (
	stopRateLimit   = "rate_limit"
	stopCircuitOpen = "circuit_open"
	stopConfig      = "config"
)

var limiterWarn = rate.Sometimes{Interval: 30 * time.Second}

// run is the shared state of one ProcessPending invocation.
type run struct {
	res        *ProcessResult
	breaker    *resilience.CircuitBreaker
	slots      atomic.Int64
	waitBudget atomic.Int64
	stopped    atomic.Bool
	stopReason atomic.Value
	fatal      atomic.Pointer[error]
}

func (r *run) stop(reason string) {
	if r.stopped.CompareAndSwap(false, true) {
		r.stopReason.Store(reason)
	}
}

// abort stops the run and records err as its result once in-flight
// corrections have finished.
func (r *run) abort(reason string, err error) {
	r.fatal.CompareAndSwap(nil, &err)
	r.stop(reason)
}

func (r *run) fatalErr() error {
	if p := r.fatal.Load(); p != nil {
		return *p
	}
	return nil
}

func (r *run) reason() string {
	if v, ok := r.stopReason.Load().(string); ok {
		return v
	}
	return ""
}

// ProcessPending claims up to limit pending corrections and runs each one
// through enrichment and apply on a bounded worker pool. The run stops early,
// leaving the rest pending, when the limiter is busy after its wait budget is
// spent or when repeated transport failures open the circuit breaker.
// Store errors and configuration errors abort the run; corrections already
// completed or failed stay that way.
func (o *Orchestrator) ProcessPending(ctx context.Context, limit int) (*ProcessResult, error) {
	if limit <= 0 {
		limit = o.cfg.ProcessLimit
	}
	if o.cfg.DryRun {
		return o.previewPending(ctx, limit)
	}

	r := &run{res: newProcessResult(o.cfg.MaxErrorMessages, false)}
	r.slots.Store(int64(limit))
	r.waitBudget.Store(int64(o.cfg.WaitBudget))
	r.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: o.cfg.CircuitThreshold,
		// The breaker lives for one run; it never half-opens within it.
		ResetTimeout: 24 * time.Hour,
		ShouldTrip:   isTransportError,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("correction: enrichment circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	workers := o.cfg.Workers
	if workers > limit {
		workers = limit
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		g.Go(func() error { return o.work(gctx, r) })
	}
	err := g.Wait()
	if err == nil {
		err = r.fatalErr()
	}

	res := r.res
	res.StopReason = r.reason()
	if res.StopReason == stopRateLimit || res.StopReason == stopCircuitOpen {
		skipped, cerr := o.countPending(ctx, limit-res.Claimed)
		if cerr != nil && err == nil {
			err = cerr
		}
		if res.StopReason == stopRateLimit {
			res.SkippedRateLimit += skipped
		} else {
			res.SkippedCircuitOpen += skipped
		}
	}

	zap.L().Info("correction: process complete",
		zap.Int("claimed", res.Claimed),
		zap.Int("completed", res.Completed),
		zap.Int("resolved", res.Resolved),
		zap.Int("failed", res.Failed),
		zap.Int("skipped_rate_limit", res.SkippedRateLimit),
		zap.Int("skipped_circuit_open", res.SkippedCircuitOpen),
		zap.String("stop_reason", res.StopReason),
	)
	if err != nil {
		return res, eris.Wrap(err, "correction: process pending")
	}
	return res, nil
}

// work claims and processes corrections one at a time until the run's slots
// are used up, the queue is empty or the run is stopped.
func (o *Orchestrator) work(ctx context.Context, r *run) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.stopped.Load() {
			return nil
		}
		if r.breaker.State() == resilience.CircuitOpen {
			r.stop(stopCircuitOpen)
			return nil
		}
		if !o.limiter.CanMakeRequest() {
			if r.waitBudget.Add(-1) < 0 {
				limiterWarn.Do(func() {
					zap.L().Warn("correction: rate limiter unavailable, stopping early",
						zap.Duration("next_request_in", o.limiter.TimeUntilNextRequest()),
					)
				})
				r.stop(stopRateLimit)
				return nil
			}
			r.res.update(func(res *ProcessResult) { res.Waits++ })
		}
		if r.slots.Add(-1) < 0 {
			return nil
		}

		claimed, err := o.store.ClaimNextPending(ctx, o.cfg.Types, 1)
		if err != nil {
			return eris.Wrap(err, "claim pending")
		}
		if len(claimed) == 0 {
			return nil
		}
		r.res.update(func(res *ProcessResult) { res.Claimed++ })

		if err := o.processOne(ctx, r, claimed[0]); err != nil {
			return err
		}
	}
}

// processOne drives one claimed correction to a terminal state. A returned
// error aborts the run.
func (o *Orchestrator) processOne(ctx context.Context, r *run, c model.Correction) error {
	log := zap.L().With(
		zap.String("correction_id", c.ID),
		zap.String("slug", c.SubjectKey),
		zap.String("type", string(c.Type)),
	)
	start := o.now()

	rec, err := o.store.GetBySlug(ctx, c.SubjectKey)
	if errors.Is(err, store.ErrNotFound) {
		return o.fail(ctx, r, c, false, "guard: content record not found")
	}
	if err != nil {
		return eris.Wrapf(err, "load content %s", c.SubjectKey)
	}

	rep := o.scanner.Scan(*rec)
	if c.Type == model.CorrectionPressureFix && rep.Incomplete {
		return o.fail(ctx, r, c, false, "guard: vehicle data incomplete")
	}
	if !rep.Needs(c.Type) {
		log.Info("correction: defect already resolved")
		data := &model.CorrectionData{
			Resolved:   "defect no longer present",
			Updated:    map[string]bool{},
			DurationMS: o.now().Sub(start).Milliseconds(),
			AppliedAt:  o.now().UTC(),
		}
		if err := o.store.Complete(ctx, c.ID, data); err != nil {
			return eris.Wrapf(err, "complete %s", c.ID)
		}
		r.res.update(func(res *ProcessResult) { res.Resolved++ })
		return nil
	}

	prompt, err := BuildPrompt(c.Type, *rec, rep)
	if err != nil {
		return o.fail(ctx, r, c, false, "guard: "+err.Error())
	}

	reply, err := resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (string, error) {
		return o.enricher.Enrich(ctx, prompt, o.cfg.Enrichment)
	})
	if err != nil {
		var cfgErr *enrich.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			r.abort(stopConfig, err)
			return o.fail(ctx, r, c, false, "config: "+cfgErr.Error())
		case ctx.Err() != nil:
			// Left in processing for the stuck sweep.
			return ctx.Err()
		case errors.Is(err, resilience.ErrCircuitOpen):
			// Another worker opened the circuit after this claim; put the
			// correction back so it is counted as skipped.
			r.stop(stopCircuitOpen)
			r.res.update(func(res *ProcessResult) { res.Claimed-- })
			return o.release(ctx, c)
		}
		log.Warn("correction: enrichment failed", zap.Error(err))
		return o.fail(ctx, r, c, false, "enrichment: "+err.Error())
	}

	data, err := o.apply(ctx, c, reply)
	if err != nil {
		var applyErr *ApplyError
		if errors.As(err, &applyErr) || errors.Is(err, store.ErrContentConflict) || errors.Is(err, store.ErrNotFound) {
			log.Warn("correction: apply failed", zap.Error(err))
			msg := err.Error()
			if applyErr == nil {
				msg = "apply: " + msg
			}
			return o.fail(ctx, r, c, true, msg)
		}
		return err
	}

	data.Provider = o.enricher.ProviderName()
	data.Response = reply
	data.DurationMS = o.now().Sub(start).Milliseconds()
	if err := o.store.Complete(ctx, c.ID, data); err != nil {
		return eris.Wrapf(err, "complete %s", c.ID)
	}
	r.res.update(func(res *ProcessResult) { res.Completed++ })
	log.Info("correction: completed", zap.Strings("updated", data.UpdatedFields()))
	return nil
}

// apply writes the change derived from reply, re-reading the record and
// retrying when another writer got there first.
func (o *Orchestrator) apply(ctx context.Context, c model.Correction, reply string) (*model.CorrectionData, error) {
	retry := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		JitterFraction: 0.25,
		ShouldRetry:    func(err error) bool { return errors.Is(err, store.ErrContentConflict) },
		OnRetry:        resilience.RetryLogger("apply " + c.SubjectKey),
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.CorrectionData, error) {
		rec, err := o.store.GetBySlug(ctx, c.SubjectKey)
		if err != nil {
			return nil, err
		}
		ch, err := buildChange(o.scanner, c.Type, *rec, reply)
		if err != nil {
			return nil, err
		}
		if _, err := o.store.ApplyPatch(ctx, rec.Slug, rec.UpdatedAt, ch.patch); err != nil {
			return nil, err
		}
		return &model.CorrectionData{
			Updated:   ch.updated,
			Values:    ch.values,
			AppliedAt: o.now().UTC(),
		}, nil
	})
}

func (o *Orchestrator) fail(ctx context.Context, r *run, c model.Correction, apply bool, reason string) error {
	if err := o.store.Fail(ctx, c.ID, reason); err != nil {
		return eris.Wrapf(err, "fail %s", c.ID)
	}
	r.res.fail(apply, "%s/%s: %s", c.SubjectKey, c.Type, reason)
	return nil
}

// release returns a claimed correction to pending without counting a failure.
func (o *Orchestrator) release(ctx context.Context, c model.Correction) error {
	return eris.Wrapf(o.store.Release(ctx, c.ID), "release %s", c.ID)
}

func isTransportError(err error) bool {
	var te *enrich.TransportError
	return errors.As(err, &te)
}

// countPending returns how many pending corrections of the configured types
// exist, capped at max.
func (o *Orchestrator) countPending(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	pending, err := o.store.List(ctx, store.CorrectionFilter{
		Types:    o.cfg.Types,
		Statuses: []model.CorrectionStatus{model.StatusPending},
		Limit:    max,
	})
	if err != nil {
		return 0, eris.Wrap(err, "correction: count pending")
	}
	return len(pending), nil
}

// previewPending lists what a real run would claim without changing state.
func (o *Orchestrator) previewPending(ctx context.Context, limit int) (*ProcessResult, error) {
	res := newProcessResult(o.cfg.MaxErrorMessages, true)
	n, err := o.countPending(ctx, limit)
	if err != nil {
		return res, err
	}
	res.Claimed = n
	return res, nil
}
