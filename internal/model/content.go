package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// BlockTypeTestimonial marks a content block that quotes a vehicle owner.
const BlockTypeTestimonial = "testimonial"

// Vehicle data field names as they appear in stored content.
const (
	FieldPressureLightFront  = "pressure_light_front"
	FieldPressureLightRear   = "pressure_light_rear"
	FieldPressureLoadedFront = "pressure_loaded_front"
	FieldPressureLoadedRear  = "pressure_loaded_rear"
	FieldPressureSpare       = "pressure_spare"
	FieldVehicleSegment      = "vehicle_segment"
)

// PressureFields lists every tire pressure field in a stable order.
func PressureFields() []string {
	return []string{
		FieldPressureLightFront,
		FieldPressureLightRear,
		FieldPressureLoadedFront,
		FieldPressureLoadedRear,
		FieldPressureSpare,
	}
}

// ContentRecord is an article about a single vehicle. Records are owned by the
// ingestion layer; the correction pipeline only rewrites specific sub-fields.
type ContentRecord struct {
	Slug      string         `json:"slug"`
	Vehicle   VehicleData    `json:"vehicle_data"`
	SEO       SEOData        `json:"seo_data"`
	FAQ       []FAQItem      `json:"faq"`
	Blocks    []ContentBlock `json:"content_blocks"`
	ScannedAt *time.Time     `json:"scanned_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// VehicleData is the vehicle specification as imported. Numeric fields keep
// their original textual form until sanitized.
type VehicleData struct {
	Make                string  `json:"make"`
	Model               string  `json:"model"`
	Year                int     `json:"year,omitempty"`
	Version             string  `json:"version,omitempty"`
	Category            string  `json:"category,omitempty"`
	Segment             string  `json:"vehicle_segment,omitempty"`
	PressureLightFront  Measure `json:"pressure_light_front,omitempty"`
	PressureLightRear   Measure `json:"pressure_light_rear,omitempty"`
	PressureLoadedFront Measure `json:"pressure_loaded_front,omitempty"`
	PressureLoadedRear  Measure `json:"pressure_loaded_rear,omitempty"`
	PressureSpare       Measure `json:"pressure_spare,omitempty"`
}

// Pressure returns the raw measure stored under a pressure field name.
func (v VehicleData) Pressure(field string) Measure {
	switch field {
	case FieldPressureLightFront:
		return v.PressureLightFront
	case FieldPressureLightRear:
		return v.PressureLightRear
	case FieldPressureLoadedFront:
		return v.PressureLoadedFront
	case FieldPressureLoadedRear:
		return v.PressureLoadedRear
	case FieldPressureSpare:
		return v.PressureSpare
	}
	return ""
}

// WithPressure returns a copy of v with one pressure field replaced.
func (v VehicleData) WithPressure(field string, m Measure) VehicleData {
	switch field {
	case FieldPressureLightFront:
		v.PressureLightFront = m
	case FieldPressureLightRear:
		v.PressureLightRear = m
	case FieldPressureLoadedFront:
		v.PressureLoadedFront = m
	case FieldPressureLoadedRear:
		v.PressureLoadedRear = m
	case FieldPressureSpare:
		v.PressureSpare = m
	}
	return v
}

// SEOData holds the search-facing title and description of an article.
type SEOData struct {
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
}

// FAQItem is a single question/answer pair.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ContentBlock is one section of the article body.
type ContentBlock struct {
	Type    string `json:"block_type"`
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text,omitempty"`
	Author  string `json:"author,omitempty"`
	Context string `json:"context,omitempty"`
}

// IsTestimonial reports whether the block is an owner testimonial.
func (b ContentBlock) IsTestimonial() bool {
	return strings.EqualFold(strings.TrimSpace(b.Type), BlockTypeTestimonial)
}

// Measure is a numeric-like value as it arrives from imports: a JSON number,
// a string with units ("32 psi") or a locale-formatted decimal ("32,5").
type Measure string

// FormatMeasure renders a float as a Measure without trailing zeros.
func FormatMeasure(v float64) Measure {
	return Measure(strconv.FormatFloat(v, 'f', -1, 64))
}

// IsZero reports whether the measure is absent.
func (m Measure) IsZero() bool {
	return strings.TrimSpace(string(m)) == ""
}

// UnmarshalJSON accepts numbers, strings and null.
func (m *Measure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*m = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Measure(strings.TrimSpace(s))
		return nil
	}
	*m = Measure(string(b))
	return nil
}

// MarshalJSON writes clean numbers as JSON numbers and anything else as a string.
func (m Measure) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(m))
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}
