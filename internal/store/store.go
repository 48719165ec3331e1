package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
)

// Sentinel errors shared by every backend.
var (
	// ErrActiveExists means a pending or processing correction already holds
	// the (subject, type) slot.
	ErrActiveExists = eris.New("store: active correction already exists")
	// ErrNotFound is returned when a correction or content record does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrContentConflict means the content record changed since it was read.
	ErrContentConflict = eris.New("store: content modified concurrently")
	// ErrNotRequeueable is returned when requeueing a correction that is not failed.
	ErrNotRequeueable = eris.New("store: correction is not failed")
)

// DuplicatePolicy decides what Create does when an active correction exists.
type DuplicatePolicy string

const (
	// DuplicateSkip leaves the existing record alone and returns ErrActiveExists.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateOverwrite replaces original_data of an existing pending record.
	// Processing records are never touched.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// ParseDuplicatePolicy validates a configured policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case DuplicateSkip, DuplicateOverwrite:
		return p, nil
	case "":
		return DuplicateSkip, nil
	}
	return "", eris.Errorf("store: unknown duplicate policy %q", s)
}

// Options tune store behavior.
type Options struct {
	DuplicatePolicy DuplicatePolicy
}

// Option configures a store.
type Option func(*Options)

// WithDuplicatePolicy sets the Create conflict policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *Options) { o.DuplicatePolicy = p }
}

func buildOptions(opts []Option) Options {
	o := Options{DuplicatePolicy: DuplicateSkip}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// CorrectionFilter narrows List results. Zero values match everything.
type CorrectionFilter struct {
	SubjectKey string                   `json:"subject_key,omitempty"`
	Types      []model.CorrectionType   `json:"types,omitempty"`
	Statuses   []model.CorrectionStatus `json:"statuses,omitempty"`
	Limit      int                      `json:"limit,omitempty"`
	Offset     int                      `json:"offset,omitempty"`
}

// ContentFilter selects content records for scanning.
type ContentFilter struct {
	// Category matches vehicle_data.category case-insensitively.
	Category string
	// MissingTypes keeps records lacking a correction of at least one of
	// these types in a BlockingStatuses state.
	MissingTypes     []model.CorrectionType
	BlockingStatuses []model.CorrectionStatus
	Limit            int
}

// ContentPatch is a partial update of a content record. Nil fields are left
// unchanged.
type ContentPatch struct {
	Vehicle *model.VehicleData
	SEO     *model.SEOData
	FAQ     []model.FAQItem
	Blocks  []model.ContentBlock
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Vehicle == nil && p.SEO == nil && p.FAQ == nil && p.Blocks == nil
}

// CorrectionStore persists corrections and enforces their lifecycle.
type CorrectionStore interface {
	// Create inserts a pending correction for subjectKey. Under the skip
	// policy it returns ErrActiveExists when the slot is taken.
	Create(ctx context.Context, subjectKey string, original model.OriginalData) (*model.Correction, error)
	Get(ctx context.Context, id string) (*model.Correction, error)
	List(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error)
	HasCorrection(ctx context.Context, subjectKey string, t model.CorrectionType, statuses []model.CorrectionStatus) (bool, error)

	// ClaimNextPending moves up to limit of the oldest pending corrections to
	// processing, each with a conditional update, and returns them.
	ClaimNextPending(ctx context.Context, types []model.CorrectionType, limit int) ([]model.Correction, error)
	Complete(ctx context.Context, id string, data *model.CorrectionData) error
	Fail(ctx context.Context, id, reason string) error
	// Release returns a processing correction to pending without recording
	// a failure. Corrections in any other state are left alone.
	Release(ctx context.Context, id string) error

	Requeue(ctx context.Context, id string) error
	RequeueFailed(ctx context.Context, types []model.CorrectionType, limit int) (int, error)
	SweepStuck(ctx context.Context, olderThan time.Duration) (int, error)
	RemoveDuplicates(ctx context.Context) (int, error)
	CountDuplicates(ctx context.Context) (int, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// ContentRepository reads and patches content records.
type ContentRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.ContentRecord, error)
	Save(ctx context.Context, rec *model.ContentRecord) error
	SaveMany(ctx context.Context, recs []model.ContentRecord) (int, error)
	// ApplyPatch updates rec only if its updated_at still equals expected,
	// returning the new updated_at or ErrContentConflict.
	ApplyPatch(ctx context.Context, slug string, expected time.Time, patch ContentPatch) (time.Time, error)
	ListSlugs(ctx context.Context, filter ContentFilter) ([]string, error)
	MarkScanned(ctx context.Context, slug string, at time.Time) error
	CountContent(ctx context.Context) (int, error)
}

// Store is the full persistence surface of the correction pipeline.
type Store interface {
	CorrectionStore
	ContentRepository

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// now is the timestamp source for every write. Microsecond precision keeps
// values identical across SQLite text and Postgres timestamptz round trips.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt returns a write timestamp strictly after prev, so an
// optimistic check can never match a stale read.
func nextUpdatedAt(prev time.Time) time.Time {
	t := now()
	if !t.After(prev) {
		t = prev.UTC().Add(time.Microsecond)
	}
	return t
}

func typeStrings(types []model.CorrectionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func statusStrings(statuses []model.CorrectionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func marshalData(d *model.CorrectionData) (*string, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal correction data")
	}
	s := string(b)
	return &s, nil
}
