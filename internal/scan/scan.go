// Package scan decides which content records need repair and why. It is a pure
// read path and is safe to run concurrently with the correction orchestrator.
package scan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/vehicle"
)

// Issue codes reported by the scanner.
const (
	CodeLoadedPressureMissing = "loaded_pressure_missing"
	CodePressureOutOfRange    = "pressure_out_of_range"
	CodeSpareMissing          = "spare_missing"
	CodeSegmentInvalid        = "segment_invalid"
	CodeIncompleteVehicle     = "incomplete_vehicle"
	CodePlaceholder           = "placeholder"
	CodeStaleYear             = "stale_year"
	CodeDuplicateAuthor       = "duplicate_author"
	CodeOverusedAuthor        = "overused_author"
)

// DefaultPlaceholderTokens are the template leftovers found in generated titles.
var DefaultPlaceholderTokens = []string{"N/A N/A N/A"}

// DefaultStaleYearTolerance applies when Config.StaleYearTolerance is negative.
const DefaultStaleYearTolerance = 3

// Config tunes the scanner heuristics.
type Config struct {
	PlaceholderTokens []string
	OverusedNames     []string
	// CurrentModelYear is the newest model year on sale; zero means the
	// current calendar year.
	CurrentModelYear int
	// StaleYearTolerance is how many years behind CurrentModelYear a title
	// year may be before it counts as stale. Zero flags every older year;
	// a negative value selects DefaultStaleYearTolerance.
	StaleYearTolerance int
}

// Issue is one defect found in a record.
type Issue struct {
	Type     model.CorrectionType `json:"type"`
	Code     string               `json:"code"`
	Field    string               `json:"field,omitempty"`
	Message  string               `json:"message"`
	Priority model.Priority       `json:"priority"`
}

// Report is the scan result for one content record.
type Report struct {
	Slug                string                `json:"slug"`
	NeedsPressureFix    bool                  `json:"needs_pressure_fix"`
	NeedsTitleFix       bool                  `json:"needs_title_fix"`
	NeedsTestimonialFix bool                  `json:"needs_testimonial_fix"`
	Incomplete          bool                  `json:"incomplete,omitempty"`
	Issues              []Issue               `json:"issues,omitempty"`
	Priority            model.Priority        `json:"priority,omitempty"`
	Category            model.VehicleCategory `json:"category"`
	Spec                model.VehicleSpec     `json:"-"`
	Vehicle             vehicle.Report        `json:"-"`
}

// Needs reports whether the record has a defect of type t.
func (r *Report) Needs(t model.CorrectionType) bool {
	switch t {
	case model.CorrectionPressureFix:
		return r.NeedsPressureFix
	case model.CorrectionTitleYearFix:
		return r.NeedsTitleFix
	case model.CorrectionTestimonialNameFix:
		return r.NeedsTestimonialFix
	}
	return false
}

// Types returns the correction types the record needs, in stable order.
func (r *Report) Types() []model.CorrectionType {
	var out []model.CorrectionType
	for _, t := range model.AllCorrectionTypes() {
		if r.Needs(t) {
			out = append(out, t)
		}
	}
	return out
}

// Clean reports whether no defect was found.
func (r *Report) Clean() bool {
	return !r.NeedsPressureFix && !r.NeedsTitleFix && !r.NeedsTestimonialFix && !r.Incomplete
}

// IssuesFor returns the issues of one correction type.
func (r *Report) IssuesFor(t model.CorrectionType) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Type == t {
			out = append(out, is)
		}
	}
	return out
}

// PriorityFor returns the highest priority among the issues of one type.
func (r *Report) PriorityFor(t model.CorrectionType) model.Priority {
	var p model.Priority
	for _, is := range r.IssuesFor(t) {
		p = p.Max(is.Priority)
	}
	return p
}

func (r *Report) add(is Issue) {
	r.Issues = append(r.Issues, is)
	r.Priority = r.Priority.Max(is.Priority)
	switch is.Type {
	case model.CorrectionPressureFix:
		r.NeedsPressureFix = true
	case model.CorrectionTitleYearFix:
		r.NeedsTitleFix = true
	case model.CorrectionTestimonialNameFix:
		r.NeedsTestimonialFix = true
	}
}

// Scanner classifies content records. It holds only immutable configuration.
type Scanner struct {
	placeholders []string
	overused     map[string]bool
	minYear      int
}

// New creates a Scanner from cfg, filling defaults for empty fields.
func New(cfg Config) *Scanner {
	tokens := cfg.PlaceholderTokens
	if len(tokens) == 0 {
		tokens = DefaultPlaceholderTokens
	}
	s := &Scanner{overused: make(map[string]bool, len(cfg.OverusedNames))}
	for _, t := range tokens {
		if c := canonicalPlaceholder(t); c != "" {
			s.placeholders = append(s.placeholders, c)
		}
	}
	for _, n := range cfg.OverusedNames {
		if f := FoldName(n); f != "" {
			s.overused[f] = true
		}
	}

	year := cfg.CurrentModelYear
	if year <= 0 {
		year = time.Now().Year()
	}
	tol := cfg.StaleYearTolerance
	if tol < 0 {
		tol = DefaultStaleYearTolerance
	}
	s.minYear = year - tol
	return s
}

// Scan inspects every defect family of rec.
func (s *Scanner) Scan(rec model.ContentRecord) Report {
	rep := Report{Slug: rec.Slug}

	for _, is := range s.checkPressure(rec.Vehicle, &rep) {
		rep.add(is)
	}
	for _, is := range s.CheckTitle(rec) {
		rep.add(is)
	}
	for _, is := range s.CheckTestimonials(rec.Blocks).Issues {
		rep.add(is)
	}
	return rep
}

func (s *Scanner) checkPressure(v model.VehicleData, rep *Report) []Issue {
	spec, vrep, err := vehicle.SanitizeAndValidate(v)
	rep.Spec = spec
	rep.Vehicle = vrep
	rep.Category = vrep.Category
	if errors.Is(err, vehicle.ErrIncompleteVehicle) {
		// Recorded without NeedsPressureFix: there is nothing to correct.
		is := Issue{
			Type:     model.CorrectionPressureFix,
			Code:     CodeIncompleteVehicle,
			Message:  "vehicle has neither make nor model",
			Priority: model.PriorityHigh,
		}
		rep.Incomplete = true
		rep.Issues = append(rep.Issues, is)
		rep.Priority = rep.Priority.Max(is.Priority)
		return nil
	}
	return PressureIssues(spec, vrep)
}

// CheckPressure sanitizes vehicle data and returns its pressure issues. The
// error is vehicle.ErrIncompleteVehicle when nothing can be checked.
func CheckPressure(v model.VehicleData) ([]Issue, model.VehicleSpec, vehicle.Report, error) {
	spec, vrep, err := vehicle.SanitizeAndValidate(v)
	if errors.Is(err, vehicle.ErrIncompleteVehicle) {
		return nil, spec, vrep, err
	}
	return PressureIssues(spec, vrep), spec, vrep, nil
}

// PressureIssues converts a sanitized spec and its report into issues.
func PressureIssues(spec model.VehicleSpec, vrep vehicle.Report) []Issue {
	var out []Issue
	for _, f := range []string{model.FieldPressureLoadedFront, model.FieldPressureLoadedRear} {
		if p := spec.Pressure(f); p == nil || *p == 0 {
			out = append(out, Issue{
				Type:     model.CorrectionPressureFix,
				Code:     CodeLoadedPressureMissing,
				Field:    f,
				Message:  f + ": missing or zero",
				Priority: model.PriorityHigh,
			})
		}
	}
	for _, fe := range vrep.Violations {
		code := CodePressureOutOfRange
		switch {
		case fe.Field == model.FieldVehicleSegment:
			code = CodeSegmentInvalid
		case fe.Missing:
			code = CodeSpareMissing
		}
		out = append(out, Issue{
			Type:     model.CorrectionPressureFix,
			Code:     code,
			Field:    fe.Field,
			Message:  fe.String(),
			Priority: model.PriorityMedium,
		})
	}
	return out
}

// CheckTitle returns the title, meta description and FAQ issues of rec.
func (s *Scanner) CheckTitle(rec model.ContentRecord) []Issue {
	var out []Issue
	placeholder := func(field, text string) {
		if s.HasPlaceholder(text) {
			out = append(out, Issue{
				Type:     model.CorrectionTitleYearFix,
				Code:     CodePlaceholder,
				Field:    field,
				Message:  field + ": contains a template placeholder",
				Priority: model.PriorityHigh,
			})
		}
	}
	placeholder("title", rec.SEO.Title)
	placeholder("meta_description", rec.SEO.MetaDescription)
	for i, item := range rec.FAQ {
		placeholder(fmt.Sprintf("faq[%d].question", i), item.Question)
		placeholder(fmt.Sprintf("faq[%d].answer", i), item.Answer)
	}

	for _, f := range []struct{ name, text string }{
		{"title", rec.SEO.Title},
		{"meta_description", rec.SEO.MetaDescription},
	} {
		if y, ok := s.StaleYear(f.text, rec.Vehicle.Year); ok {
			out = append(out, Issue{
				Type:     model.CorrectionTitleYearFix,
				Code:     CodeStaleYear,
				Field:    f.name,
				Message:  fmt.Sprintf("%s: year %d is older than %d", f.name, y, s.minYear),
				Priority: model.PriorityLow,
			})
		}
	}
	return out
}

// HasPlaceholder reports whether text contains any placeholder token,
// ignoring case and whitespace.
func (s *Scanner) HasPlaceholder(text string) bool {
	c := canonicalPlaceholder(text)
	if c == "" {
		return false
	}
	for _, p := range s.placeholders {
		if strings.Contains(c, p) {
			return true
		}
	}
	return false
}

func canonicalPlaceholder(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "")
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// StaleYear returns the first year token in text older than the stale
// threshold. The vehicle's own model year is never stale.
func (s *Scanner) StaleYear(text string, vehicleYear int) (int, bool) {
	for _, m := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y == vehicleYear {
			continue
		}
		if y < s.minYear {
			return y, true
		}
	}
	return 0, false
}

// MinTitleYear is the oldest year a title may mention without being stale.
func (s *Scanner) MinTitleYear() int { return s.minYear }
