package correction

import (
	"fmt"
	"sync"
	"time"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
)

// errorLog keeps the first max messages and counts the rest.
type errorLog struct {
	max      int
	Messages []string `json:"errors,omitempty"`
	Dropped  int      `json:"errors_dropped,omitempty"`
}

func (l *errorLog) add(format string, args ...any) {
	if len(l.Messages) < l.max {
		l.Messages = append(l.Messages, fmt.Sprintf(format, args...))
		return
	}
	l.Dropped++
}

// CreateResult summarizes a CreateMissing run.
type CreateResult struct {
	Scanned         int                          `json:"scanned"`
	Created         int                          `json:"created"`
	ByType          map[model.CorrectionType]int `json:"by_type"`
	SkippedClean    int                          `json:"skipped_clean"`
	SkippedExisting int                          `json:"skipped_existing"`
	Invalid         int                          `json:"invalid"`
	DryRun          bool                         `json:"dry_run,omitempty"`
	// Reports holds the scan reports of records with defects in dry-run mode.
	Reports []scan.Report `json:"reports,omitempty"`
	errorLog
}

func newCreateResult(maxErrors int, dryRun bool) *CreateResult {
	return &CreateResult{
		ByType:   make(map[model.CorrectionType]int),
		DryRun:   dryRun,
		errorLog: errorLog{max: maxErrors},
	}
}

// ProcessResult summarizes a ProcessPending run. Workers update it through
// its methods.
type ProcessResult struct {
	mu                 sync.Mutex
	Claimed            int    `json:"claimed"`
	Completed          int    `json:"completed"`
	Resolved           int    `json:"resolved"`
	Failed             int    `json:"failed"`
	ApplyFailed        int    `json:"apply_failed"`
	SkippedRateLimit   int    `json:"skipped_rate_limit"`
	SkippedCircuitOpen int    `json:"skipped_circuit_open"`
	Waits              int    `json:"waits"`
	StopReason         string `json:"stop_reason,omitempty"`
	DryRun             bool   `json:"dry_run,omitempty"`
	errorLog
}

func newProcessResult(maxErrors int, dryRun bool) *ProcessResult {
	return &ProcessResult{DryRun: dryRun, errorLog: errorLog{max: maxErrors}}
}

func (r *ProcessResult) update(fn func(r *ProcessResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *ProcessResult) fail(apply bool, format string, args ...any) {
	r.update(func(r *ProcessResult) {
		r.Failed++
		if apply {
			r.ApplyFailed++
		}
		r.add(format, args...)
	})
}

// HasFailures reports whether any correction ended failed during the run.
func (r *ProcessResult) HasFailures() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed > 0
}

// MaintainResult summarizes a Maintain run.
type MaintainResult struct {
	Swept             int  `json:"swept"`
	DuplicatesRemoved int  `json:"duplicates_removed"`
	DryRun            bool `json:"dry_run,omitempty"`
}

// RequeueResult summarizes a Requeue run.
type RequeueResult struct {
	Requeued int `json:"requeued"`
	Skipped  int `json:"skipped"`
	errorLog
}

// StageTiming is the wall time of one workflow stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// WorkflowResult combines the stages of RunWorkflow.
type WorkflowResult struct {
	Maintain *MaintainResult `json:"maintain,omitempty"`
	Create   *CreateResult   `json:"create,omitempty"`
	Process  *ProcessResult  `json:"process,omitempty"`
	Timings  []StageTiming   `json:"timings"`
	Total    time.Duration   `json:"total"`
}

// HasFailures reports whether the process stage failed any correction.
func (r *WorkflowResult) HasFailures() bool {
	return r != nil && r.Process.HasFailures()
}

// SurveyResult tallies scan reports across the corpus.
type SurveyResult struct {
	Scanned    int                           `json:"scanned"`
	Clean      int                           `json:"clean"`
	Incomplete int                           `json:"incomplete"`
	ByType     map[model.CorrectionType]int  `json:"by_type"`
	ByPriority map[model.Priority]int        `json:"by_priority"`
	ByCategory map[model.VehicleCategory]int `json:"by_category"`
	Defective  []scan.Report                 `json:"defective,omitempty"`
}

func newSurveyResult() *SurveyResult {
	return &SurveyResult{
		ByType:     make(map[model.CorrectionType]int),
		ByPriority: make(map[model.Priority]int),
		ByCategory: make(map[model.VehicleCategory]int),
	}
}

func (r *SurveyResult) record(rep scan.Report) {
	r.Scanned++
	r.ByCategory[rep.Category]++
	if rep.Incomplete {
		r.Incomplete++
	}
	if rep.Clean() {
		r.Clean++
		return
	}
	for _, t := range rep.Types() {
		r.ByType[t]++
	}
	if rep.Priority != "" {
		r.ByPriority[rep.Priority]++
	}
	r.Defective = append(r.Defective, rep)
}
