package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/db"
	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/resilience"
)

var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	opts    Options
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore, retrying the initial ping while the
// server is unreachable.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, opts ...Option) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres: ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, opts: buildOptions(opts), closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: buildOptions(opts), closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS content_records (
	slug           TEXT PRIMARY KEY,
	vehicle_data   JSONB NOT NULL DEFAULT '{}',
	seo_data       JSONB NOT NULL DEFAULT '{}',
	faq            JSONB NOT NULL DEFAULT '[]',
	content_blocks JSONB NOT NULL DEFAULT '[]',
	scanned_at     TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS corrections (
	id              TEXT PRIMARY KEY,
	seq             BIGSERIAL,
	subject_key     TEXT NOT NULL,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending'
	                CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
	original_data   JSONB NOT NULL,
	correction_data JSONB,
	failure_reason  TEXT,
	attempts        INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_corrections_active
	ON corrections(subject_key, type) WHERE status IN ('pending', 'processing');
CREATE INDEX IF NOT EXISTS idx_corrections_status_created ON corrections(status, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_corrections_subject ON corrections(subject_key, type, status);
CREATE INDEX IF NOT EXISTS idx_content_records_scanned ON content_records(scanned_at NULLS FIRST, slug);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Corrections ---

func (s *PostgresStore) Create(ctx context.Context, subjectKey string, original model.OriginalData) (*model.Correction, error) {
	if strings.TrimSpace(subjectKey) == "" {
		return nil, eris.New("postgres: subject key is required")
	}
	origJSON, err := model.EncodeOriginal(original)
	if err != nil {
		return nil, err
	}

	conflict := `DO NOTHING`
	if s.opts.DuplicatePolicy == DuplicateOverwrite {
		conflict = `DO UPDATE SET original_data = EXCLUDED.original_data, updated_at = EXCLUDED.updated_at
		 WHERE corrections.status = 'pending'`
	}

	ts := now()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO corrections (id, subject_key, type, status, original_data, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, 'pending', $4, 0, $5, $5)
		 ON CONFLICT (subject_key, type) WHERE `+activeStatusPredicate+` `+conflict+`
		 RETURNING `+correctionColumns,
		uuid.New().String(), subjectKey, string(original.CorrectionType()), string(origJSON), ts,
	)
	c, err := scanPgCorrection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrActiveExists
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create correction for %s", subjectKey)
	}
	return c, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Correction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+correctionColumns+` FROM corrections WHERE id = $1`, id)
	c, err := scanPgCorrection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "correction %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get correction %s", id)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error) {
	q := psq.Select(correctionColumns).From("corrections").OrderBy("created_at DESC", "seq DESC")
	q = applyCorrectionFilter(q, filter)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list query")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list corrections")
	}
	return collectPgCorrections(rows)
}

func (s *PostgresStore) HasCorrection(ctx context.Context, subjectKey string, t model.CorrectionType, statuses []model.CorrectionStatus) (bool, error) {
	q := psq.Select("1").From("corrections").
		Where(sq.Eq{"subject_key": subjectKey, "type": string(t)}).
		Limit(1)
	if len(statuses) > 0 {
		q = q.Where(sq.Eq{"status": statusStrings(statuses)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, eris.Wrap(err, "postgres: build has-correction query")
	}
	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, eris.Wrap(err, "postgres: has correction")
}

// ClaimNextPending locks the oldest pending rows with SKIP LOCKED so
// concurrent claimers always receive disjoint sets.
func (s *PostgresStore) ClaimNextPending(ctx context.Context, types []model.CorrectionType, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		return nil, nil
	}
	inner := sq.Select("id").From("corrections").
		Where(sq.Eq{"status": string(model.StatusPending)}).
		OrderBy("created_at", "seq").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
	if len(types) > 0 {
		inner = inner.Where(sq.Eq{"type": typeStrings(types)})
	}

	query, args, err := psq.Update("corrections").
		Set("status", string(model.StatusProcessing)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("updated_at", now()).
		Where(sq.Expr("id IN (?)", inner)).
		Where(sq.Eq{"status": string(model.StatusPending)}).
		Suffix("RETURNING " + correctionColumns).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build claim")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim pending")
	}
	claimed, err := collectPgCorrections(rows)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(claimed, func(i, j int) bool {
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})
	return claimed, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, data *model.CorrectionData) error {
	dataJSON, err := marshalData(data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = 'completed', correction_data = $1, failure_reason = NULL, updated_at = $2
		 WHERE id = $3 AND status = 'processing'`,
		dataJSON, now(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete correction %s", id)
	}
	return s.checkTransition(ctx, tag.RowsAffected(), id, "complete")
}

func (s *PostgresStore) Fail(ctx context.Context, id, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = 'failed', failure_reason = $1, updated_at = $2
		 WHERE id = $3 AND status = 'processing'`,
		reason, now(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail correction %s", id)
	}
	return s.checkTransition(ctx, tag.RowsAffected(), id, "fail")
}

func (s *PostgresStore) Release(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = 'pending', updated_at = $1
		 WHERE id = $2 AND status = 'processing'`,
		now(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: release correction %s", id)
	}
	return s.checkTransition(ctx, tag.RowsAffected(), id, "release")
}

func (s *PostgresStore) checkTransition(ctx context.Context, n int64, id, op string) error {
	if n > 0 {
		return nil
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	logTransitionAnomaly(op, c)
	return nil
}

func (s *PostgresStore) Requeue(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = 'pending', failure_reason = NULL, updated_at = $1
		 WHERE id = $2 AND status = 'failed'
		   AND NOT EXISTS (
		     SELECT 1 FROM corrections a
		     WHERE a.subject_key = corrections.subject_key AND a.type = corrections.type
		       AND a.`+activeStatusPredicate+`)`,
		now(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: requeue correction %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != model.StatusFailed {
		return eris.Wrapf(ErrNotRequeueable, "correction %s is %s", id, c.Status)
	}
	return eris.Wrapf(ErrActiveExists, "correction %s", id)
}

func (s *PostgresStore) RequeueFailed(ctx context.Context, types []model.CorrectionType, limit int) (int, error) {
	q := psq.Select("id").From("corrections").
		Where(sq.Eq{"status": string(model.StatusFailed)}).
		OrderBy("updated_at DESC", "seq DESC")
	if len(types) > 0 {
		q = q.Where(sq.Eq{"type": typeStrings(types)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "postgres: build requeue query")
	}
	ids, err := s.queryStrings(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return requeueEach(ctx, s, ids, limit)
}

func (s *PostgresStore) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	ts := now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = 'pending', updated_at = $1
		 WHERE status = 'processing' AND updated_at < $2`,
		ts, ts.Add(-olderThan),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: sweep stuck")
	}
	return int(tag.RowsAffected()), nil
}

const pgRankedCorrections = `
	SELECT id, status, ROW_NUMBER() OVER (
		PARTITION BY subject_key, type ORDER BY created_at DESC, seq DESC
	) AS rn
	FROM corrections`

func (s *PostgresStore) RemoveDuplicates(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM corrections WHERE id IN (
		   SELECT id FROM (`+pgRankedCorrections+`) ranked WHERE rn > 1 AND status <> 'processing')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: remove duplicates")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountDuplicates(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (`+pgRankedCorrections+`) ranked WHERE rn > 1 AND status <> 'processing'`,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count duplicates")
}

func (s *PostgresStore) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT type, status, COUNT(*) FROM corrections GROUP BY type, status`)
	if err != nil {
		return model.Stats{}, eris.Wrap(err, "postgres: stats")
	}
	defer rows.Close()

	st := model.NewStats()
	for rows.Next() {
		var t, status string
		var n int
		if err := rows.Scan(&t, &status, &n); err != nil {
			return model.Stats{}, eris.Wrap(err, "postgres: scan stats")
		}
		st.Add(model.CorrectionType(t), model.CorrectionStatus(status), n)
	}
	return st, eris.Wrap(rows.Err(), "postgres: stats iterate")
}

// --- Content ---

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*model.ContentRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contentColumnList+` FROM content_records WHERE slug = $1`, slug)

	var rec model.ContentRecord
	var cols contentColumns
	err := row.Scan(&rec.Slug, &cols.Vehicle, &cols.SEO, &cols.FAQ, &cols.Blocks, &rec.ScannedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "content %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get content %s", slug)
	}
	if err := cols.decodeInto(&rec); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *model.ContentRecord) error {
	if strings.TrimSpace(rec.Slug) == "" {
		return eris.New("postgres: content slug is required")
	}
	cols, err := encodeContent(rec)
	if err != nil {
		return err
	}
	ts := now()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO content_records (slug, vehicle_data, seo_data, faq, content_blocks, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (slug) DO UPDATE SET
		   vehicle_data = EXCLUDED.vehicle_data, seo_data = EXCLUDED.seo_data,
		   faq = EXCLUDED.faq, content_blocks = EXCLUDED.content_blocks,
		   scanned_at = NULL, updated_at = EXCLUDED.updated_at
		 RETURNING created_at, updated_at`,
		rec.Slug, string(cols.Vehicle), string(cols.SEO), string(cols.FAQ), string(cols.Blocks), ts,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return eris.Wrapf(err, "postgres: save content %s", rec.Slug)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.ScannedAt = nil
	return nil
}

var contentUpsert = db.UpsertConfig{
	Table:        "content_records",
	Columns:      []string{"slug", "vehicle_data", "seo_data", "faq", "content_blocks", "scanned_at", "created_at", "updated_at"},
	ConflictKeys: []string{"slug"},
	UpdateCols:   []string{"vehicle_data", "seo_data", "faq", "content_blocks", "scanned_at", "updated_at"},
}

// SaveMany bulk upserts content through COPY. Existing created_at values
// are kept and scanned_at is reset.
func (s *PostgresStore) SaveMany(ctx context.Context, recs []model.ContentRecord) (int, error) {
	ts := now()
	rows := make([][]any, 0, len(recs))
	for i := range recs {
		if strings.TrimSpace(recs[i].Slug) == "" {
			return 0, eris.Errorf("postgres: content slug is required (record %d)", i)
		}
		cols, err := encodeContent(&recs[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			recs[i].Slug, string(cols.Vehicle), string(cols.SEO), string(cols.FAQ), string(cols.Blocks), nil, ts, ts,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, contentUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save many")
	}
	for i := range recs {
		recs[i].UpdatedAt = ts
		recs[i].ScannedAt = nil
	}
	return int(n), nil
}

func (s *PostgresStore) ApplyPatch(ctx context.Context, slug string, expected time.Time, patch ContentPatch) (time.Time, error) {
	if patch.Empty() {
		return expected, nil
	}
	cols, err := patchColumns(patch)
	if err != nil {
		return time.Time{}, err
	}

	next := nextUpdatedAt(expected)
	up := psq.Update("content_records")
	for _, name := range patchColumnOrder {
		if b, ok := cols[name]; ok {
			up = up.Set(name, string(b))
		}
	}
	query, args, err := up.Set("updated_at", next).
		Where(sq.Eq{"slug": slug, "updated_at": expected.UTC()}).
		ToSql()
	if err != nil {
		return time.Time{}, eris.Wrap(err, "postgres: build patch")
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "postgres: patch content %s", slug)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetBySlug(ctx, slug); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, eris.Wrapf(ErrContentConflict, "content %s", slug)
	}
	return next, nil
}

func (s *PostgresStore) ListSlugs(ctx context.Context, filter ContentFilter) ([]string, error) {
	q := psq.Select("c.slug").From("content_records c").
		OrderBy("c.scanned_at ASC NULLS FIRST", "c.slug")
	if filter.Category != "" {
		q = q.Where("lower(c.vehicle_data->>'category') = lower(?)", filter.Category)
	}
	q = applyMissingFilter(q, filter)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list slugs")
	}
	return s.queryStrings(ctx, query, args...)
}

func (s *PostgresStore) MarkScanned(ctx context.Context, slug string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE content_records SET scanned_at = $1 WHERE slug = $2`, at.UTC(), slug)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark scanned %s", slug)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "content %s", slug)
	}
	return nil
}

func (s *PostgresStore) CountContent(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM content_records`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count content")
}

// --- helpers ---

func (s *PostgresStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate")
}

func collectPgCorrections(rows pgx.Rows) ([]model.Correction, error) {
	defer rows.Close()
	var out []model.Correction
	for rows.Next() {
		c, err := scanPgCorrection(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate corrections")
}

// scanPgCorrection returns pgx.ErrNoRows unwrapped so callers can map it.
func scanPgCorrection(row pgx.Row) (*model.Correction, error) {
	var r correctionRow
	err := row.Scan(&r.ID, &r.SubjectKey, &r.Type, &r.Status, &r.Original, &r.Data, &r.FailureReason,
		&r.Attempts, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r.decode()
}
