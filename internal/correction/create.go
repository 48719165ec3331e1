package correction

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
	"github.com/sells-group/content-fixer/internal/store"
)

// CreateMissing scans up to limit content records that lack a correction of
// some configured type and creates one pending correction per defect found.
// A record whose vehicle data is incomplete gets no correction and counts
// as invalid. In dry-run mode nothing is written.
func (o *Orchestrator) CreateMissing(ctx context.Context, limit int) (*CreateResult, error) {
	if limit <= 0 {
		limit = o.cfg.CreateLimit
	}
	res := newCreateResult(o.cfg.MaxErrorMessages, o.cfg.DryRun)
	blocking := o.blockingStatuses()

	slugs, err := o.store.ListSlugs(ctx, store.ContentFilter{
		MissingTypes:     o.cfg.Types,
		BlockingStatuses: blocking,
		Limit:            limit,
	})
	if err != nil {
		return res, eris.Wrap(err, "correction: list candidates")
	}

	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := o.createFor(ctx, slug, blocking, res); err != nil {
			return res, err
		}
	}

	zap.L().Info("correction: create complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("created", res.Created),
		zap.Int("skipped_clean", res.SkippedClean),
		zap.Int("skipped_existing", res.SkippedExisting),
		zap.Int("invalid", res.Invalid),
		zap.Bool("dry_run", res.DryRun),
	)
	return res, nil
}

func (o *Orchestrator) createFor(ctx context.Context, slug string, blocking []model.CorrectionStatus, res *CreateResult) error {
	log := zap.L().With(zap.String("slug", slug))

	rec, err := o.store.GetBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "correction: load %s", slug)
	}
	res.Scanned++
	rep := o.scanner.Scan(*rec)

	switch {
	case rep.Incomplete:
		res.Invalid++
		res.add("%s: vehicle data incomplete", slug)
		log.Warn("correction: skipping record with incomplete vehicle data")
	case rep.Clean():
		res.SkippedClean++
	default:
		if res.DryRun {
			res.Reports = append(res.Reports, rep)
		}
		for _, t := range o.cfg.Types {
			if !rep.Needs(t) {
				continue
			}
			if err := o.createOne(ctx, rec, &rep, t, blocking, res); err != nil {
				return err
			}
		}
	}

	if res.DryRun {
		return nil
	}
	if err := o.store.MarkScanned(ctx, slug, o.now()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return eris.Wrapf(err, "correction: mark scanned %s", slug)
	}
	return nil
}

func (o *Orchestrator) createOne(ctx context.Context, rec *model.ContentRecord, rep *scan.Report, t model.CorrectionType, blocking []model.CorrectionStatus, res *CreateResult) error {
	exists, err := o.store.HasCorrection(ctx, rec.Slug, t, blocking)
	if err != nil {
		return eris.Wrapf(err, "correction: check existing %s/%s", rec.Slug, t)
	}
	if exists {
		res.SkippedExisting++
		return nil
	}

	original, err := o.scanner.Snapshot(*rec, rep, t)
	if err != nil {
		res.Invalid++
		res.add("%s/%s: %v", rec.Slug, t, err)
		return nil
	}
	if res.DryRun {
		res.Created++
		res.ByType[t]++
		return nil
	}

	c, err := o.store.Create(ctx, rec.Slug, original)
	if errors.Is(err, store.ErrActiveExists) {
		res.SkippedExisting++
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "correction: create %s/%s", rec.Slug, t)
	}
	res.Created++
	res.ByType[t]++
	zap.L().Debug("correction: created",
		zap.String("slug", rec.Slug),
		zap.String("type", string(t)),
		zap.String("id", c.ID),
		zap.String("priority", string(rep.PriorityFor(t))),
	)
	return nil
}
