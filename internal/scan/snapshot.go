package scan

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
)

// Snapshot builds the immutable original data stored with a new correction of
// type t. rep must be the scan report of rec.
func (s *Scanner) Snapshot(rec model.ContentRecord, rep *Report, t model.CorrectionType) (model.OriginalData, error) {
	issues := func() []string {
		var out []string
		for _, is := range rep.IssuesFor(t) {
			out = append(out, is.Message)
		}
		return out
	}

	switch t {
	case model.CorrectionPressureFix:
		return model.PressureOriginal{
			Vehicle:    rec.Vehicle,
			Sanitized:  rep.Spec,
			Category:   rep.Category,
			Violations: issues(),
			Fixes:      rep.Vehicle.Fixes,
			Priority:   rep.PriorityFor(t),
		}, nil
	case model.CorrectionTitleYearFix:
		return model.TitleOriginal{
			Make:            rec.Vehicle.Make,
			Model:           rec.Vehicle.Model,
			Year:            rec.Vehicle.Year,
			Title:           rec.SEO.Title,
			MetaDescription: rec.SEO.MetaDescription,
			FAQ:             append([]model.FAQItem(nil), rec.FAQ...),
			Issues:          issues(),
			Priority:        rep.PriorityFor(t),
		}, nil
	case model.CorrectionTestimonialNameFix:
		chk := s.CheckTestimonials(rec.Blocks)
		return model.TestimonialOriginal{
			Make:       rec.Vehicle.Make,
			Model:      rec.Vehicle.Model,
			Authors:    chk.Authors,
			Duplicates: chk.Duplicates,
			Overused:   chk.Overused,
			Priority:   rep.PriorityFor(t),
		}, nil
	}
	return nil, eris.Errorf("scan: unknown correction type %q", t)
}
