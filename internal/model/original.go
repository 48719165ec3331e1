package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// OriginalData is the immutable snapshot a correction was created from. Each
// correction type has its own variant so fields cannot leak across types.
type OriginalData interface {
	CorrectionType() CorrectionType
}

// PressureOriginal snapshots the vehicle data behind a pressure fix.
type PressureOriginal struct {
	Vehicle    VehicleData     `json:"vehicle"`
	Sanitized  VehicleSpec     `json:"sanitized"`
	Category   VehicleCategory `json:"category"`
	Violations []string        `json:"violations,omitempty"`
	Fixes      []string        `json:"fixes,omitempty"`
	Priority   Priority        `json:"priority"`
}

// CorrectionType implements OriginalData.
func (PressureOriginal) CorrectionType() CorrectionType { return CorrectionPressureFix }

// TitleOriginal snapshots the SEO text and FAQ behind a title fix.
type TitleOriginal struct {
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year,omitempty"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	FAQ             []FAQItem `json:"faq,omitempty"`
	Issues          []string  `json:"issues,omitempty"`
	Priority        Priority  `json:"priority"`
}

// CorrectionType implements OriginalData.
func (TitleOriginal) CorrectionType() CorrectionType { return CorrectionTitleYearFix }

// TestimonialAuthor is one testimonial block as found at creation time.
type TestimonialAuthor struct {
	BlockIndex int    `json:"block_index"`
	Author     string `json:"author"`
	Name       string `json:"name"`
	Context    string `json:"context,omitempty"`
}

// TestimonialOriginal snapshots the testimonial authors behind a name fix.
type TestimonialOriginal struct {
	Make       string              `json:"make"`
	Model      string              `json:"model"`
	Authors    []TestimonialAuthor `json:"authors"`
	Duplicates []string            `json:"duplicates,omitempty"`
	Overused   []string            `json:"overused,omitempty"`
	Priority   Priority            `json:"priority"`
}

// CorrectionType implements OriginalData.
func (TestimonialOriginal) CorrectionType() CorrectionType { return CorrectionTestimonialNameFix }

// DecodeOriginal restores the typed snapshot stored for a correction type.
func DecodeOriginal(t CorrectionType, raw []byte) (OriginalData, error) {
	switch t {
	case CorrectionPressureFix:
		var o PressureOriginal
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, eris.Wrap(err, "model: decode pressure original")
		}
		return o, nil
	case CorrectionTitleYearFix:
		var o TitleOriginal
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, eris.Wrap(err, "model: decode title original")
		}
		return o, nil
	case CorrectionTestimonialNameFix:
		var o TestimonialOriginal
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, eris.Wrap(err, "model: decode testimonial original")
		}
		return o, nil
	}
	return nil, eris.Errorf("model: unknown correction type %q", t)
}

// EncodeOriginal serializes a snapshot for storage.
func EncodeOriginal(o OriginalData) ([]byte, error) {
	if o == nil {
		return nil, eris.New("model: original data is required")
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, eris.Wrap(err, "model: encode original")
	}
	return b, nil
}
