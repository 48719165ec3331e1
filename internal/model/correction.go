package model

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// CorrectionType identifies the kind of defect a correction repairs.
type CorrectionType string

const (
	CorrectionPressureFix        CorrectionType = "pressure_fix"
	CorrectionTitleYearFix       CorrectionType = "title_year_fix"
	CorrectionTestimonialNameFix CorrectionType = "testimonial_name_fix"
)

// MandatoryCorrectionTypes are the types every subject is expected to carry
// once the corpus is fully processed.
func MandatoryCorrectionTypes() []CorrectionType {
	return []CorrectionType{CorrectionPressureFix, CorrectionTitleYearFix}
}

// AllCorrectionTypes returns every known correction type.
func AllCorrectionTypes() []CorrectionType {
	return []CorrectionType{CorrectionPressureFix, CorrectionTitleYearFix, CorrectionTestimonialNameFix}
}

// Valid reports whether t is a known correction type.
func (t CorrectionType) Valid() bool {
	switch t {
	case CorrectionPressureFix, CorrectionTitleYearFix, CorrectionTestimonialNameFix:
		return true
	}
	return false
}

// ParseCorrectionType converts a user supplied string into a CorrectionType.
func ParseCorrectionType(s string) (CorrectionType, error) {
	t := CorrectionType(s)
	if !t.Valid() {
		return "", eris.Errorf("unknown correction type %q", s)
	}
	return t, nil
}

// CorrectionStatus is the lifecycle state of a correction.
type CorrectionStatus string

const (
	StatusPending    CorrectionStatus = "pending"
	StatusProcessing CorrectionStatus = "processing"
	StatusCompleted  CorrectionStatus = "completed"
	StatusFailed     CorrectionStatus = "failed"
)

// AllStatuses returns every correction status in lifecycle order.
func AllStatuses() []CorrectionStatus {
	return []CorrectionStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
}

// Active reports whether the status still holds the (subject, type) slot.
func (s CorrectionStatus) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Terminal reports whether no automatic transition leaves the status.
func (s CorrectionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Correction is a durable unit of work repairing one defect in one content record.
type Correction struct {
	ID            string           `json:"id"`
	SubjectKey    string           `json:"subject_key"`
	Type          CorrectionType   `json:"type"`
	Status        CorrectionStatus `json:"status"`
	Original      OriginalData     `json:"original_data"`
	Data          *CorrectionData  `json:"correction_data,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Attempts      int              `json:"attempts"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CorrectionData records what a completed correction changed.
type CorrectionData struct {
	Provider   string            `json:"provider,omitempty"`
	Response   string            `json:"response,omitempty"`
	Updated    map[string]bool   `json:"updated"`
	Values     map[string]string `json:"values,omitempty"`
	Resolved   string            `json:"resolved,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	AppliedAt  time.Time         `json:"applied_at"`
}

// UpdatedFields returns the names of fields that actually changed, sorted.
func (d *CorrectionData) UpdatedFields() []string {
	if d == nil {
		return nil
	}
	var out []string
	for f, ok := range d.Updated {
		if ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Priority ranks how urgently a defect should be repaired.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Max returns the more urgent of p and o.
func (p Priority) Max(o Priority) Priority {
	if o.Rank() > p.Rank() {
		return o
	}
	return p
}

// Stats counts corrections by type and status.
type Stats struct {
	Counts map[CorrectionType]map[CorrectionStatus]int `json:"counts"`
}

// NewStats returns an empty Stats.
func NewStats() Stats {
	return Stats{Counts: make(map[CorrectionType]map[CorrectionStatus]int)}
}

// Add records n corrections of the given type and status.
func (s Stats) Add(t CorrectionType, st CorrectionStatus, n int) {
	byStatus, ok := s.Counts[t]
	if !ok {
		byStatus = make(map[CorrectionStatus]int)
		s.Counts[t] = byStatus
	}
	byStatus[st] += n
}

// Get returns the count for a type and status.
func (s Stats) Get(t CorrectionType, st CorrectionStatus) int {
	return s.Counts[t][st]
}

// ByType returns the count of all corrections of a type.
func (s Stats) ByType(t CorrectionType) int {
	n := 0
	for _, c := range s.Counts[t] {
		n += c
	}
	return n
}

// ByStatus returns the count of all corrections in a status.
func (s Stats) ByStatus(st CorrectionStatus) int {
	n := 0
	for _, byStatus := range s.Counts {
		n += byStatus[st]
	}
	return n
}

// Total returns the count of all corrections.
func (s Stats) Total() int {
	n := 0
	for t := range s.Counts {
		n += s.ByType(t)
	}
	return n
}
