package correction

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/store"
)

// Maintain returns corrections stuck in processing to pending and removes
// duplicate active corrections. In dry-run mode it only counts them.
func (o *Orchestrator) Maintain(ctx context.Context) (*MaintainResult, error) {
	res := &MaintainResult{DryRun: o.cfg.DryRun}

	if o.cfg.DryRun {
		stuck, err := o.countStuck(ctx)
		if err != nil {
			return res, err
		}
		dups, err := o.store.CountDuplicates(ctx)
		if err != nil {
			return res, eris.Wrap(err, "correction: count duplicates")
		}
		res.Swept, res.DuplicatesRemoved = stuck, dups
		return res, nil
	}

	swept, err := o.store.SweepStuck(ctx, o.cfg.StuckTimeout)
	if err != nil {
		return res, eris.Wrap(err, "correction: sweep stuck")
	}
	res.Swept = swept

	removed, err := o.store.RemoveDuplicates(ctx)
	if err != nil {
		return res, eris.Wrap(err, "correction: remove duplicates")
	}
	res.DuplicatesRemoved = removed

	zap.L().Info("correction: maintenance complete",
		zap.Int("swept", res.Swept),
		zap.Int("duplicates_removed", res.DuplicatesRemoved),
	)
	return res, nil
}

func (o *Orchestrator) countStuck(ctx context.Context) (int, error) {
	processing, err := o.store.List(ctx, store.CorrectionFilter{
		Statuses: []model.CorrectionStatus{model.StatusProcessing},
	})
	if err != nil {
		return 0, eris.Wrap(err, "correction: list processing")
	}
	cutoff := o.now().Add(-o.cfg.StuckTimeout)
	n := 0
	for _, c := range processing {
		if c.UpdatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// Requeue moves failed corrections back to pending. With ids it requeues
// exactly those; with allFailed it requeues up to limit of the most recently
// failed corrections of the configured types.
func (o *Orchestrator) Requeue(ctx context.Context, ids []string, allFailed bool, limit int) (*RequeueResult, error) {
	res := &RequeueResult{errorLog: errorLog{max: o.cfg.MaxErrorMessages}}

	if allFailed {
		if o.cfg.DryRun {
			failed, err := o.store.List(ctx, store.CorrectionFilter{
				Types:    o.cfg.Types,
				Statuses: []model.CorrectionStatus{model.StatusFailed},
				Limit:    limit,
			})
			if err != nil {
				return res, eris.Wrap(err, "correction: list failed")
			}
			res.Requeued = len(failed)
			return res, nil
		}
		n, err := o.store.RequeueFailed(ctx, o.cfg.Types, limit)
		if err != nil {
			return res, eris.Wrap(err, "correction: requeue failed")
		}
		res.Requeued = n
		return res, nil
	}

	for _, id := range ids {
		if o.cfg.DryRun {
			c, err := o.store.Get(ctx, id)
			if err != nil {
				res.Skipped++
				res.add("%s: %v", id, err)
				continue
			}
			if c.Status != model.StatusFailed {
				res.Skipped++
				res.add("%s: status is %s", id, c.Status)
				continue
			}
			res.Requeued++
			continue
		}

		err := o.store.Requeue(ctx, id)
		switch {
		case err == nil:
			res.Requeued++
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNotRequeueable):
			res.Skipped++
			res.add("%s: %v", id, err)
		default:
			return res, eris.Wrapf(err, "correction: requeue %s", id)
		}
	}
	return res, nil
}

// RunWorkflow runs creation, processing and then maintenance, recording the
// wall time of each stage. A failing stage stops the ones after it.
func (o *Orchestrator) RunWorkflow(ctx context.Context, createLimit, processLimit int) (*WorkflowResult, error) {
	res := &WorkflowResult{}
	start := o.now()
	defer func() { res.Total = o.now().Sub(start) }()

	stage := func(name string, fn func() error) error {
		t := o.now()
		err := fn()
		res.Timings = append(res.Timings, StageTiming{Stage: name, Duration: o.now().Sub(t)})
		zap.L().Info("correction: workflow stage finished",
			zap.String("stage", name),
			zap.Duration("duration", o.now().Sub(t)),
			zap.Error(err),
		)
		return err
	}

	if err := stage("create", func() (err error) {
		res.Create, err = o.CreateMissing(ctx, createLimit)
		return err
	}); err != nil {
		return res, err
	}
	if err := stage("process", func() (err error) {
		res.Process, err = o.ProcessPending(ctx, processLimit)
		return err
	}); err != nil {
		return res, err
	}
	if err := stage("maintain", func() (err error) {
		res.Maintain, err = o.Maintain(ctx)
		return err
	}); err != nil {
		return res, err
	}
	return res, nil
}

// Survey scans up to limit content records without creating corrections.
func (o *Orchestrator) Survey(ctx context.Context, category string, limit int) (*SurveyResult, error) {
	slugs, err := o.store.ListSlugs(ctx, store.ContentFilter{Category: category, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "correction: list content")
	}
	res := newSurveyResult()
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := o.store.GetBySlug(ctx, slug)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, eris.Wrapf(err, "correction: load %s", slug)
		}
		res.record(o.scanner.Scan(*rec))
	}
	return res, nil
}
