package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/model"
)

func cleanRecord() model.ContentRecord {
	return model.ContentRecord{
		Slug: "toyota-hilux-2024",
		Vehicle: model.VehicleData{
			Make: "Toyota", Model: "Hilux", Year: 2024,
			PressureLightFront: "35", PressureLightRear: "35",
			PressureLoadedFront: "38", PressureLoadedRear: "44",
			PressureSpare: "44",
		},
		SEO: model.SEOData{Title: "Toyota Hilux 2024 tire pressure", MetaDescription: "Calibration table for the Hilux"},
		FAQ: []model.FAQItem{{Question: "What is the Hilux pressure?", Answer: "35 psi front and rear."}},
		Blocks: []model.ContentBlock{
			{Type: "testimonial", Author: "Maria Souza, Campinas", Text: "Great truck."},
			{Type: "paragraph", Text: "Body text"},
			{Type: "testimonial", Author: "Carlos Lima - Recife", Text: "Solid."},
		},
	}
}

func newTestScanner() *Scanner {
	return New(Config{OverusedNames: []string{"João Silva"}, CurrentModelYear: 2025, StaleYearTolerance: 3})
}

func TestScan_CleanRecord(t *testing.T) {
	t.Parallel()

	rep := newTestScanner().Scan(cleanRecord())
	assert.True(t, rep.Clean(), "issues: %+v", rep.Issues)
	assert.Empty(t, rep.Types())
	assert.Equal(t, model.CategoryPickup, rep.Category)
}

func TestScan_MissingLoadedPressureIsHighPriority(t *testing.T) {
	t.Parallel()

	rec := cleanRecord()
	rec.Vehicle.PressureLoadedRear = "0"
	rec.Vehicle.PressureLoadedFront = ""

	rep := newTestScanner().Scan(rec)
	assert.True(t, rep.NeedsPressureFix)
	assert.Equal(t, model.PriorityHigh, rep.Priority)
	issues := rep.IssuesFor(model.CorrectionPressureFix)
	require.Len(t, issues, 2)
	assert.Equal(t, CodeLoadedPressureMissing, issues[0].Code)
}

func TestScan_OutOfRangeIsMedium(t *testing.T) {
	t.Parallel()

	rec := cleanRecord()
	rec.Vehicle.PressureLightFront = "25"

	rep := newTestScanner().Scan(rec)
	assert.True(t, rep.NeedsPressureFix)
	assert.Equal(t, model.PriorityMedium, rep.PriorityFor(model.CorrectionPressureFix))
	assert.Equal(t, []model.CorrectionType{model.CorrectionPressureFix}, rep.Types())
}

func TestScan_IncompleteVehicle(t *testing.T) {
	t.Parallel()

	rec := cleanRecord()
	rec.Vehicle.Make, rec.Vehicle.Model = "", ""

	rep := newTestScanner().Scan(rec)
	assert.True(t, rep.Incomplete)
	assert.False(t, rep.NeedsPressureFix)
	assert.False(t, rep.Clean())
	assert.Equal(t, model.PriorityHigh, rep.Priority)
	assert.Equal(t, model.PriorityHigh, rep.PriorityFor(model.CorrectionPressureFix))
}

func TestScan_Placeholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*model.ContentRecord)
		field  string
	}{
		{"title", func(r *model.ContentRecord) { r.SEO.Title = "Hilux N/A N/A N/A pressure" }, "title"},
		{"meta spacing and case", func(r *model.ContentRecord) { r.SEO.MetaDescription = "for n/a  n/a N/A owners" }, "meta_description"},
		{"faq answer", func(r *model.ContentRecord) { r.FAQ[0].Answer = "N/AN/AN/A" }, "faq[0].answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := cleanRecord()
			rec.FAQ = append([]model.FAQItem(nil), rec.FAQ...)
			tt.mutate(&rec)

			rep := newTestScanner().Scan(rec)
			assert.True(t, rep.NeedsTitleFix)
			assert.Equal(t, model.PriorityHigh, rep.Priority)
			issues := rep.IssuesFor(model.CorrectionTitleYearFix)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.field, issues[0].Field)
		})
	}
}

func TestScan_StaleYear(t *testing.T) {
	t.Parallel()

	s := newTestScanner()
	assert.Equal(t, 2022, s.MinTitleYear())

	rec := cleanRecord()
	rec.SEO.Title = "Toyota Hilux 2019 tire pressure"
	rep := s.Scan(rec)
	assert.True(t, rep.NeedsTitleFix)
	assert.Equal(t, model.PriorityLow, rep.Priority)

	// The vehicle's own model year is legitimate.
	rec.Vehicle.Year = 2019
	rep = s.Scan(rec)
	assert.False(t, rep.NeedsTitleFix)
}

func TestNew_StaleYearTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tolerance int
		want      int
	}{
		{"zero is honoured", 0, 2025},
		{"configured", 5, 2020},
		{"negative selects default", -1, 2025 - DefaultStaleYearTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(Config{CurrentModelYear: 2025, StaleYearTolerance: tt.tolerance})
			assert.Equal(t, tt.want, s.MinTitleYear())
		})
	}

	rec := cleanRecord()
	rec.Vehicle.Year = 2025
	rec.SEO.Title = "Toyota Hilux 2024 tire pressure"
	rep := New(Config{CurrentModelYear: 2025, StaleYearTolerance: 0}).Scan(rec)
	assert.True(t, rep.NeedsTitleFix, "zero tolerance flags last year's title")
}

func TestScan_Testimonials(t *testing.T) {
	t.Parallel()

	rec := cleanRecord()
	rec.Blocks = append([]model.ContentBlock(nil), rec.Blocks...)
	rec.Blocks[2].Author = "MARIA SOUZA (owner since 2020)"
	rec.Blocks = append(rec.Blocks, model.ContentBlock{Type: "Testimonial", Author: "Joao Silva | Porto Alegre"})

	rep := newTestScanner().Scan(rec)
	assert.True(t, rep.NeedsTestimonialFix)
	assert.Equal(t, model.PriorityLow, rep.Priority)

	chk := newTestScanner().CheckTestimonials(rec.Blocks)
	require.Len(t, chk.Authors, 3)
	assert.Equal(t, 3, chk.Authors[2].BlockIndex)
	assert.Equal(t, []string{"Maria Souza"}, chk.Duplicates)
	assert.Equal(t, []string{"Joao Silva"}, chk.Overused)
	assert.True(t, chk.Flagged("maria souza"))
	assert.False(t, chk.Flagged("Carlos Lima"))
}

func TestParseAuthorName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Maria Souza", ParseAuthorName("Maria Souza, Campinas - SP"))
	assert.Equal(t, "Carlos Lima", ParseAuthorName("Carlos  Lima – Recife"))
	assert.Equal(t, "Ana", ParseAuthorName("Ana (Hilux owner)"))
	assert.Equal(t, "Pedro", ParseAuthorName("Pedro"))
	assert.Equal(t, ", Campinas - SP", AuthorSuffix("Maria Souza, Campinas - SP"))
	assert.Equal(t, "", AuthorSuffix("Pedro"))
}

func TestFoldName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "joao silva", FoldName("João  Silva"))
	assert.Equal(t, FoldName("José Antônio"), FoldName("jose antonio"))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestScanner()
	rec := cleanRecord()
	rec.SEO.Title = "N/A N/A N/A"
	rec.Vehicle.PressureLoadedFront = ""
	rep := s.Scan(rec)

	orig, err := s.Snapshot(rec, &rep, model.CorrectionTitleYearFix)
	require.NoError(t, err)
	title, ok := orig.(model.TitleOriginal)
	require.True(t, ok)
	assert.Equal(t, "N/A N/A N/A", title.Title)
	assert.Equal(t, model.PriorityHigh, title.Priority)
	assert.Len(t, title.Issues, 1)

	orig, err = s.Snapshot(rec, &rep, model.CorrectionPressureFix)
	require.NoError(t, err)
	p := orig.(model.PressureOriginal)
	assert.Equal(t, model.CategoryPickup, p.Category)
	assert.Nil(t, p.Sanitized.LoadedFront)

	_, err = s.Snapshot(rec, &rep, "bogus")
	assert.Error(t, err)
}
