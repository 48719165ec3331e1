package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/content-fixer/internal/model"
)

// sqliteTimeLayout is fixed width so text comparison orders like time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

func sqliteTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
	}
	return t, nil
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode. Writes go
// through a single connection so conditional updates never race.
func NewSQLite(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, opts: buildOptions(opts)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS content_records (
	slug           TEXT PRIMARY KEY,
	vehicle_data   TEXT NOT NULL DEFAULT '{}',
	seo_data       TEXT NOT NULL DEFAULT '{}',
	faq            TEXT NOT NULL DEFAULT '[]',
	content_blocks TEXT NOT NULL DEFAULT '[]',
	scanned_at     TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corrections (
	id              TEXT PRIMARY KEY,
	subject_key     TEXT NOT NULL,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending'
	                CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
	original_data   TEXT NOT NULL,
	correction_data TEXT,
	failure_reason  TEXT,
	attempts        INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_corrections_active
	ON corrections(subject_key, type) WHERE status IN ('pending', 'processing');
CREATE INDEX IF NOT EXISTS idx_corrections_status_created ON corrections(status, created_at);
CREATE INDEX IF NOT EXISTS idx_corrections_subject ON corrections(subject_key, type, status);
CREATE INDEX IF NOT EXISTS idx_content_records_scanned ON content_records(scanned_at, slug);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const correctionColumns = `id, subject_key, type, status, original_data, correction_data, failure_reason, attempts, created_at, updated_at`

const activeStatusPredicate = `status IN ('pending', 'processing')`

// --- Corrections ---

func (s *SQLiteStore) Create(ctx context.Context, subjectKey string, original model.OriginalData) (*model.Correction, error) {
	if strings.TrimSpace(subjectKey) == "" {
		return nil, eris.New("sqlite: subject key is required")
	}
	origJSON, err := model.EncodeOriginal(original)
	if err != nil {
		return nil, err
	}

	conflict := `DO NOTHING`
	if s.opts.DuplicatePolicy == DuplicateOverwrite {
		conflict = `DO UPDATE SET original_data = excluded.original_data, updated_at = excluded.updated_at
		 WHERE corrections.status = 'pending'`
	}

	ts := sqliteTime(now())
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO corrections (id, subject_key, type, status, original_data, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, 'pending', ?, 0, ?, ?)
		 ON CONFLICT (subject_key, type) WHERE `+activeStatusPredicate+` `+conflict+`
		 RETURNING `+correctionColumns,
		uuid.New().String(), subjectKey, string(original.CorrectionType()), string(origJSON), ts, ts,
	)
	c, err := scanSQLiteCorrection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActiveExists
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create correction for %s", subjectKey)
	}
	return c, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Correction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+correctionColumns+` FROM corrections WHERE id = ?`, id)
	c, err := scanSQLiteCorrection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "correction %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get correction %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error) {
	q := sq.Select(correctionColumns).From("corrections").OrderBy("created_at DESC", "rowid DESC")
	q = applyCorrectionFilter(q, filter)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list query")
	}
	return s.queryCorrections(ctx, query, args...)
}

func (s *SQLiteStore) HasCorrection(ctx context.Context, subjectKey string, t model.CorrectionType, statuses []model.CorrectionStatus) (bool, error) {
	q := sq.Select("1").From("corrections").
		Where(sq.Eq{"subject_key": subjectKey, "type": string(t)}).
		Limit(1)
	if len(statuses) > 0 {
		q = q.Where(sq.Eq{"status": statusStrings(statuses)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: build has-correction query")
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, eris.Wrap(err, "sqlite: has correction")
}

func (s *SQLiteStore) ClaimNextPending(ctx context.Context, types []model.CorrectionType, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []model.Correction
	// Candidates lost to a concurrent claimer are replaced by fresh ones.
	for round := 0; round < 3 && len(claimed) < limit; round++ {
		ids, err := s.pendingIDs(ctx, types, limit-len(claimed))
		if err != nil {
			return claimed, err
		}
		if len(ids) == 0 {
			break
		}

		lost := 0
		for _, id := range ids {
			row := s.db.QueryRowContext(ctx,
				`UPDATE corrections SET status = 'processing', attempts = attempts + 1, updated_at = ?
				 WHERE id = ? AND status = 'pending'
				 RETURNING `+correctionColumns,
				sqliteTime(now()), id,
			)
			c, err := scanSQLiteCorrection(row)
			if errors.Is(err, sql.ErrNoRows) {
				lost++
				continue
			}
			if err != nil {
				return claimed, eris.Wrapf(err, "sqlite: claim correction %s", id)
			}
			claimed = append(claimed, *c)
		}
		if lost == 0 {
			break
		}
	}
	return claimed, nil
}

func (s *SQLiteStore) pendingIDs(ctx context.Context, types []model.CorrectionType, limit int) ([]string, error) {
	q := sq.Select("id").From("corrections").
		Where(sq.Eq{"status": string(model.StatusPending)}).
		OrderBy("created_at", "rowid").
		Limit(uint64(limit))
	if len(types) > 0 {
		q = q.Where(sq.Eq{"type": typeStrings(types)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build pending query")
	}
	return s.queryStrings(ctx, query, args...)
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, data *model.CorrectionData) error {
	dataJSON, err := marshalData(data)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = 'completed', correction_data = ?, failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = 'processing'`,
		dataJSON, sqliteTime(now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete correction %s", id)
	}
	return s.checkTransition(ctx, res, id, "complete")
}

func (s *SQLiteStore) Fail(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = 'failed', failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = 'processing'`,
		reason, sqliteTime(now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail correction %s", id)
	}
	return s.checkTransition(ctx, res, id, "fail")
}

func (s *SQLiteStore) Release(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = 'pending', updated_at = ?
		 WHERE id = ? AND status = 'processing'`,
		sqliteTime(now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: release correction %s", id)
	}
	return s.checkTransition(ctx, res, id, "release")
}

// checkTransition turns a zero-row conditional update into ErrNotFound when
// the record is gone, or a logged no-op when it is in another state.
func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, id, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
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

func logTransitionAnomaly(op string, c *model.Correction) {
	zap.L().Warn("store: transition skipped, correction not processing",
		zap.String("op", op),
		zap.String("correction_id", c.ID),
		zap.String("subject_key", c.SubjectKey),
		zap.String("status", string(c.Status)),
	)
}

func (s *SQLiteStore) Requeue(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = 'pending', failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = 'failed'
		   AND NOT EXISTS (
		     SELECT 1 FROM corrections a
		     WHERE a.subject_key = corrections.subject_key AND a.type = corrections.type
		       AND a.`+activeStatusPredicate+`)`,
		sqliteTime(now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: requeue correction %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
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

func (s *SQLiteStore) RequeueFailed(ctx context.Context, types []model.CorrectionType, limit int) (int, error) {
	q := sq.Select("id").From("corrections").
		Where(sq.Eq{"status": string(model.StatusFailed)}).
		OrderBy("updated_at DESC", "rowid DESC")
	if len(types) > 0 {
		q = q.Where(sq.Eq{"type": typeStrings(types)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: build requeue query")
	}
	ids, err := s.queryStrings(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return requeueEach(ctx, s, ids, limit)
}

// requeueEach requeues ids in order until limit succeed. Subjects that
// already have an active correction are skipped.
func requeueEach(ctx context.Context, cs CorrectionStore, ids []string, limit int) (int, error) {
	n := 0
	for _, id := range ids {
		if limit > 0 && n >= limit {
			break
		}
		err := cs.Requeue(ctx, id)
		if errors.Is(err, ErrActiveExists) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = 'pending', updated_at = ?
		 WHERE status = 'processing' AND updated_at < ?`,
		sqliteTime(ts), sqliteTime(ts.Add(-olderThan)),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sweep stuck")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

const sqliteRankedCorrections = `
	SELECT id, status, ROW_NUMBER() OVER (
		PARTITION BY subject_key, type ORDER BY created_at DESC, rowid DESC
	) AS rn
	FROM corrections`

func (s *SQLiteStore) RemoveDuplicates(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM corrections WHERE id IN (
		   SELECT id FROM (`+sqliteRankedCorrections+`) WHERE rn > 1 AND status <> 'processing')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: remove duplicates")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountDuplicates(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (`+sqliteRankedCorrections+`) WHERE rn > 1 AND status <> 'processing'`,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count duplicates")
}

func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, status, COUNT(*) FROM corrections GROUP BY type, status`)
	if err != nil {
		return model.Stats{}, eris.Wrap(err, "sqlite: stats")
	}
	defer rows.Close() //nolint:errcheck

	st := model.NewStats()
	for rows.Next() {
		var t, status string
		var n int
		if err := rows.Scan(&t, &status, &n); err != nil {
			return model.Stats{}, eris.Wrap(err, "sqlite: scan stats")
		}
		st.Add(model.CorrectionType(t), model.CorrectionStatus(status), n)
	}
	return st, eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

// --- Content ---

const contentColumnList = `slug, vehicle_data, seo_data, faq, content_blocks, scanned_at, created_at, updated_at`

func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (*model.ContentRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumnList+` FROM content_records WHERE slug = ?`, slug)
	rec, err := scanSQLiteContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "content %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get content %s", slug)
	}
	return rec, nil
}

type sqliteQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) Save(ctx context.Context, rec *model.ContentRecord) error {
	return saveSQLiteContent(ctx, s.db, rec)
}

func saveSQLiteContent(ctx context.Context, q sqliteQueryer, rec *model.ContentRecord) error {
	if strings.TrimSpace(rec.Slug) == "" {
		return eris.New("sqlite: content slug is required")
	}
	cols, err := encodeContent(rec)
	if err != nil {
		return err
	}
	ts := sqliteTime(now())
	var created, updated string
	err = q.QueryRowContext(ctx,
		`INSERT INTO content_records (slug, vehicle_data, seo_data, faq, content_blocks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET
		   vehicle_data = excluded.vehicle_data, seo_data = excluded.seo_data,
		   faq = excluded.faq, content_blocks = excluded.content_blocks,
		   scanned_at = NULL, updated_at = excluded.updated_at
		 RETURNING created_at, updated_at`,
		rec.Slug, string(cols.Vehicle), string(cols.SEO), string(cols.FAQ), string(cols.Blocks), ts, ts,
	).Scan(&created, &updated)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save content %s", rec.Slug)
	}
	if rec.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return err
	}
	if rec.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return err
	}
	rec.ScannedAt = nil
	return nil
}

func (s *SQLiteStore) SaveMany(ctx context.Context, recs []model.ContentRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save many")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range recs {
		if err := saveSQLiteContent(ctx, tx, &recs[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save many")
	}
	return len(recs), nil
}

func (s *SQLiteStore) ApplyPatch(ctx context.Context, slug string, expected time.Time, patch ContentPatch) (time.Time, error) {
	if patch.Empty() {
		return expected, nil
	}
	cols, err := patchColumns(patch)
	if err != nil {
		return time.Time{}, err
	}

	next := nextUpdatedAt(expected)
	up := sq.Update("content_records")
	for _, name := range patchColumnOrder {
		if b, ok := cols[name]; ok {
			up = up.Set(name, string(b))
		}
	}
	up = up.Set("updated_at", sqliteTime(next)).
		Where(sq.Eq{"slug": slug, "updated_at": sqliteTime(expected)})

	query, args, err := up.ToSql()
	if err != nil {
		return time.Time{}, eris.Wrap(err, "sqlite: build patch")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: patch content %s", slug)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if _, err := s.GetBySlug(ctx, slug); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, eris.Wrapf(ErrContentConflict, "content %s", slug)
	}
	return next, nil
}

func (s *SQLiteStore) ListSlugs(ctx context.Context, filter ContentFilter) ([]string, error) {
	q := sq.Select("c.slug").From("content_records c").
		OrderBy("c.scanned_at IS NOT NULL", "c.scanned_at", "c.slug")
	if filter.Category != "" {
		q = q.Where("lower(json_extract(c.vehicle_data, '$.category')) = lower(?)", filter.Category)
	}
	q = applyMissingFilter(q, filter)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list slugs")
	}
	return s.queryStrings(ctx, query, args...)
}

func (s *SQLiteStore) MarkScanned(ctx context.Context, slug string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE content_records SET scanned_at = ? WHERE slug = ?`, sqliteTime(at), slug)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark scanned %s", slug)
	}
	return checkRowsAffected(res, "content", slug)
}

func (s *SQLiteStore) CountContent(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_records`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count content")
}

// --- helpers ---

// applyCorrectionFilter adds the shared List predicates. Both backends use it.
func applyCorrectionFilter(q sq.SelectBuilder, f CorrectionFilter) sq.SelectBuilder {
	if f.SubjectKey != "" {
		q = q.Where(sq.Eq{"subject_key": f.SubjectKey})
	}
	if len(f.Types) > 0 {
		q = q.Where(sq.Eq{"type": typeStrings(f.Types)})
	}
	if len(f.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": statusStrings(f.Statuses)})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.Limit(uint64(limit))
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

// applyMissingFilter keeps content rows lacking a blocking correction of at
// least one of the filter's types.
func applyMissingFilter(q sq.SelectBuilder, f ContentFilter) sq.SelectBuilder {
	if len(f.MissingTypes) == 0 {
		return q
	}
	var missing sq.Or
	for _, t := range f.MissingTypes {
		cond := "NOT EXISTS (SELECT 1 FROM corrections k WHERE k.subject_key = c.slug AND k.type = ?"
		args := []any{string(t)}
		if len(f.BlockingStatuses) > 0 {
			cond += " AND k.status IN (" + sq.Placeholders(len(f.BlockingStatuses)) + ")"
			for _, st := range f.BlockingStatuses {
				args = append(args, string(st))
			}
		}
		missing = append(missing, sq.Expr(cond+")", args...))
	}
	return q.Where(missing)
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate")
}

func (s *SQLiteStore) queryCorrections(ctx context.Context, query string, args ...any) ([]model.Correction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query corrections")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Correction
	for rows.Next() {
		c, err := scanSQLiteCorrection(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan correction")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate corrections")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanSQLiteCorrection returns sql.ErrNoRows unwrapped so callers can map it.
func scanSQLiteCorrection(row scannable) (*model.Correction, error) {
	var r correctionRow
	var orig string
	var data, reason sql.NullString
	var created, updated string

	err := row.Scan(&r.ID, &r.SubjectKey, &r.Type, &r.Status, &orig, &data, &reason, &r.Attempts, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Original = []byte(orig)
	if data.Valid {
		r.Data = []byte(data.String)
	}
	if reason.Valid {
		r.FailureReason = &reason.String
	}
	if r.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, err
	}
	return r.decode()
}

func scanSQLiteContent(row scannable) (*model.ContentRecord, error) {
	var rec model.ContentRecord
	var vehicle, seo, faq, blocks string
	var scanned sql.NullString
	var created, updated string

	if err := row.Scan(&rec.Slug, &vehicle, &seo, &faq, &blocks, &scanned, &created, &updated); err != nil {
		return nil, err
	}
	cols := contentColumns{Vehicle: []byte(vehicle), SEO: []byte(seo), FAQ: []byte(faq), Blocks: []byte(blocks)}
	if err := cols.decodeInto(&rec); err != nil {
		return nil, err
	}
	var err error
	if scanned.Valid {
		t, err := parseSQLiteTime(scanned.String)
		if err != nil {
			return nil, err
		}
		rec.ScannedAt = &t
	}
	if rec.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, err
	}
	return &rec, nil
}
