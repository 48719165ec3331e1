package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/model"
)

func TestBuildPrompt_Pressure(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Vehicle.PressureLightFront = "25"
	rep := testScanner().Scan(rec)

	prompt, err := BuildPrompt(model.CorrectionPressureFix, rec, rep)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Toyota Hilux (2024)")
	assert.Contains(t, prompt, "Vehicle category: pickup")
	assert.Contains(t, prompt, "between 30 and 80 PSI")
	assert.Contains(t, prompt, "carries a spare tire")
	assert.Contains(t, prompt, `"pressure_light_front": 25`)
	assert.Contains(t, prompt, "Problems found:")
}

func TestBuildPrompt_Title(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.SEO.Title = "Hilux N/A N/A N/A"
	rep := testScanner().Scan(rec)

	prompt, err := BuildPrompt(model.CorrectionTitleYearFix, rec, rep)
	require.NoError(t, err)
	assert.Contains(t, prompt, "model year 2024")
	assert.Contains(t, prompt, "Hilux N/A N/A N/A")
	assert.Contains(t, prompt, "title: contains a template placeholder")
}

func TestBuildPrompt_Testimonial(t *testing.T) {
	t.Parallel()

	rec := hiluxRecord("hilux")
	rec.Blocks[2].Author = "Maria Souza - Recife"
	rep := testScanner().Scan(rec)

	prompt, err := BuildPrompt(model.CorrectionTestimonialNameFix, rec, rep)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"block_index": 2`)
	assert.Contains(t, prompt, "appears more than once")
	assert.NotContains(t, prompt, "Body text")
}

func TestBuildPrompt_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := BuildPrompt("bogus", hiluxRecord("hilux"), testScanner().Scan(hiluxRecord("hilux")))
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Here you go: {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := extractJSON("no object here")
	assert.Error(t, err)
	_, err = extractJSON("} backwards {")
	assert.Error(t, err)
}

func TestDecodeResponse_Invalid(t *testing.T) {
	t.Parallel()

	var v titleReply
	assert.Error(t, decodeResponse(`{"title": }`, &v))
}
