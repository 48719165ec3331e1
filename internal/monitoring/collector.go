// Package monitoring reports the health of the correction queue: a JSON
// snapshot, a Prometheus exporter and a webhook alerter.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
)

// MetricsSnapshot holds a point-in-time view of the correction queue.
type MetricsSnapshot struct {
	Counts map[model.CorrectionType]map[model.CorrectionStatus]int `json:"counts"`

	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`

	// FailureRate is failed / (completed + failed); zero when nothing finished.
	FailureRate float64 `json:"failure_rate"`

	// MandatoryCorrections counts corrections of the mandatory types in any
	// status. SelfCheckRatio is MandatoryCorrections / (types × subjects) and
	// reaches 1 once every subject carries one correction of each type.
	MandatoryCorrections int     `json:"mandatory_corrections"`
	EligibleSubjects     int     `json:"eligible_subjects"`
	SelfCheckRatio       float64 `json:"self_check_ratio"`

	LimiterAvailable        bool    `json:"limiter_available"`
	SecondsUntilNextRequest float64 `json:"seconds_until_next_request"`

	CollectedAt time.Time `json:"collected_at"`
}

// StatsSource abstracts the store methods needed by the collector.
type StatsSource interface {
	Stats(ctx context.Context) (model.Stats, error)
	CountContent(ctx context.Context) (int, error)
}

// LimiterState reports the state of the enrichment rate limiter.
type LimiterState interface {
	CanMakeRequest() bool
	TimeUntilNextRequest() time.Duration
}

// Collector gathers snapshots from the store and the limiter.
type Collector struct {
	store   StatsSource
	limiter LimiterState
	now     func() time.Time
}

// NewCollector creates a collector. limiter may be nil.
func NewCollector(st StatsSource, limiter LimiterState) *Collector {
	return &Collector{store: st, limiter: limiter, now: time.Now}
}

// Collect gathers a snapshot of the queue.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: stats")
	}
	subjects, err := c.store.CountContent(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count content")
	}

	snap := &MetricsSnapshot{
		Counts:           stats.Counts,
		Pending:          stats.ByStatus(model.StatusPending),
		Processing:       stats.ByStatus(model.StatusProcessing),
		Completed:        stats.ByStatus(model.StatusCompleted),
		Failed:           stats.ByStatus(model.StatusFailed),
		EligibleSubjects: subjects,
		LimiterAvailable: true,
		CollectedAt:      c.now().UTC(),
	}
	if snap.Counts == nil {
		snap.Counts = make(map[model.CorrectionType]map[model.CorrectionStatus]int)
	}

	if finished := snap.Completed + snap.Failed; finished > 0 {
		snap.FailureRate = float64(snap.Failed) / float64(finished)
	}

	mandatory := model.MandatoryCorrectionTypes()
	for _, t := range mandatory {
		snap.MandatoryCorrections += stats.ByType(t)
	}
	if subjects > 0 {
		snap.SelfCheckRatio = float64(snap.MandatoryCorrections) / float64(len(mandatory)*subjects)
	}

	if c.limiter != nil {
		snap.LimiterAvailable = c.limiter.CanMakeRequest()
		snap.SecondsUntilNextRequest = c.limiter.TimeUntilNextRequest().Seconds()
	}
	return snap, nil
}
