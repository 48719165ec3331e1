package correction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/model"
)

const validPressureReply = `{"pressure_light_front": 35, "pressure_light_rear": 35,
 "pressure_loaded_front": 38, "pressure_loaded_rear": 44, "pressure_spare": 44}`

func TestBuildChange_Pressure(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Vehicle.PressureLightFront = "25"
	rec.Vehicle.PressureLoadedRear = ""

	ch, err := buildChange(testScanner(), model.CorrectionPressureFix, rec, validPressureReply)
	require.NoError(t, err)
	require.NotNil(t, ch.patch.Vehicle)
	assert.Nil(t, ch.patch.SEO)
	assert.Nil(t, ch.patch.Blocks)

	assert.Equal(t, model.Measure("35"), ch.patch.Vehicle.PressureLightFront)
	assert.Equal(t, model.Measure("44"), ch.patch.Vehicle.PressureLoadedRear)
	assert.Equal(t, "Toyota", ch.patch.Vehicle.Make)
	assert.True(t, ch.updated[model.FieldPressureLightFront])
	assert.True(t, ch.updated[model.FieldPressureLoadedRear])
	assert.False(t, ch.updated[model.FieldPressureLightRear])
	assert.Equal(t, "35", ch.values[model.FieldPressureLightFront])
}

func TestBuildChange_PressureStillInvalid(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Vehicle.PressureLightFront = "25"

	_, err := buildChange(testScanner(), model.CorrectionPressureFix, rec, `{"pressure_light_front": 12}`)
	require.Error(t, err)
	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))
	assert.Contains(t, err.Error(), "apply: corrected pressures still invalid")
}

func TestBuildChange_PressureZeroKeepsCurrent(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Vehicle.PressureLightFront = "25"

	ch, err := buildChange(testScanner(), model.CorrectionPressureFix, rec,
		`{"pressure_light_front": "35", "pressure_light_rear": 0}`)
	require.NoError(t, err)
	assert.Equal(t, model.Measure("35"), ch.patch.Vehicle.PressureLightRear)
}

func TestBuildChange_Title(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.SEO.Title = "Hilux N/A N/A N/A"

	ch, err := buildChange(testScanner(), model.CorrectionTitleYearFix, rec,
		"```json\n{\"title\": \"Toyota Hilux 2024 tire pressure guide\"}\n```")
	require.NoError(t, err)
	require.NotNil(t, ch.patch.SEO)
	assert.Equal(t, "Toyota Hilux 2024 tire pressure guide", ch.patch.SEO.Title)
	assert.Equal(t, rec.SEO.MetaDescription, ch.patch.SEO.MetaDescription)
	assert.Nil(t, ch.patch.FAQ)
	assert.Nil(t, ch.patch.Vehicle)
	assert.True(t, ch.updated["title"])
	assert.False(t, ch.updated["meta_description"])
}

func TestBuildChange_TitleFAQ(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.FAQ = []model.FAQItem{{Question: "Pressure?", Answer: "N/A N/A N/A"}}

	ch, err := buildChange(testScanner(), model.CorrectionTitleYearFix, rec,
		`{"faq": [{"question": "Pressure?", "answer": "35 psi."}]}`)
	require.NoError(t, err)
	require.Len(t, ch.patch.FAQ, 1)
	assert.Equal(t, "35 psi.", ch.patch.FAQ[0].Answer)
	assert.True(t, ch.updated["faq"])
}

func TestBuildChange_TitleStillFlagged(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.SEO.Title = "Hilux N/A N/A N/A"

	_, err := buildChange(testScanner(), model.CorrectionTitleYearFix, rec, `{"title": "Hilux 2015 pressure"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrected title still flagged")
}

func TestBuildChange_Testimonial(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Blocks[2].Author = "Maria Souza - Recife"

	ch, err := buildChange(testScanner(), model.CorrectionTestimonialNameFix, rec,
		`{"authors": [{"block_index": 2, "author": "Ana Ferreira - Recife"}]}`)
	require.NoError(t, err)
	require.Len(t, ch.patch.Blocks, 3)
	assert.Equal(t, "Ana Ferreira - Recife", ch.patch.Blocks[2].Author)
	assert.Equal(t, "Maria Souza - Recife", rec.Blocks[2].Author, "input record is not mutated")
	assert.True(t, ch.updated["content_blocks[2].author"])
}

func TestBuildChange_TestimonialErrors(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Blocks[2].Author = "Maria Souza - Recife"

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"empty", `{"authors": []}`, "renames no testimonial"},
		{"not a testimonial", `{"authors": [{"block_index": 1, "author": "Ana"}]}`, "block 1 is not a testimonial"},
		{"out of range", `{"authors": [{"block_index": 9, "author": "Ana"}]}`, "block 9 is not a testimonial"},
		{"blank author", `{"authors": [{"block_index": 2, "author": " "}]}`, "empty author"},
		{"still duplicate", `{"authors": [{"block_index": 2, "author": "maria souza"}]}`, "still flagged"},
		{"not json", `sorry, I cannot help`, "no JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := buildChange(testScanner(), model.CorrectionTestimonialNameFix, rec, tt.reply)
			require.Error(t, err)
			var applyErr *ApplyError
			assert.True(t, errors.As(err, &applyErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
