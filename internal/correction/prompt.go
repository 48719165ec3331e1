package correction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
	"github.com/sells-group/content-fixer/internal/vehicle"
)

// SystemPrompt is sent with every enrichment call.
const SystemPrompt = `You repair automotive article content for a tire pressure website.
Answer with a single JSON object and nothing else. Never invent vehicle facts you are unsure of;
prefer the manufacturer's published values. Pressures are in PSI.`

// BuildPrompt renders the enrichment prompt for a correction of type t
// against the current state of rec.
func BuildPrompt(t model.CorrectionType, rec model.ContentRecord, rep scan.Report) (string, error) {
	var b strings.Builder
	switch t {
	case model.CorrectionPressureFix:
		writePressurePrompt(&b, rec, rep)
	case model.CorrectionTitleYearFix:
		writeTitlePrompt(&b, rec, rep)
	case model.CorrectionTestimonialNameFix:
		writeTestimonialPrompt(&b, rec, rep)
	default:
		return "", eris.Errorf("correction: no prompt for type %q", t)
	}
	return b.String(), nil
}

func writeIssues(b *strings.Builder, issues []scan.Issue) {
	if len(issues) == 0 {
		return
	}
	b.WriteString("\nProblems found:\n")
	for _, is := range issues {
		fmt.Fprintf(b, "- %s\n", is.Message)
	}
}

func writeJSON(b *strings.Builder, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		raw = []byte("{}")
	}
	b.Write(raw)
	b.WriteString("\n")
}

func writePressurePrompt(b *strings.Builder, rec model.ContentRecord, rep scan.Report) {
	v := rec.Vehicle
	r := vehicle.RangeFor(rep.Category)
	spare := vehicle.ShouldHaveSpare(rep.Category, v.Make, v.Model)

	fmt.Fprintf(b, "Correct the recommended tire pressures of the %s %s", v.Make, v.Model)
	if v.Year > 0 {
		fmt.Fprintf(b, " (%d)", v.Year)
	}
	if v.Version != "" {
		fmt.Fprintf(b, ", version %s", v.Version)
	}
	fmt.Fprintf(b, ".\nVehicle category: %s.\n", rep.Category)
	fmt.Fprintf(b, "Light load pressures must be between %g and %g PSI; loaded pressures may reach %g PSI.\n",
		r.Min, r.Max, r.LoadedMax)
	if spare {
		fmt.Fprintf(b, "The vehicle carries a spare tire; its pressure must be between %g and %g PSI.\n", r.SpareMin, r.SpareMax)
	} else {
		b.WriteString("The vehicle has no spare tire; use 0 for pressure_spare.\n")
	}
	b.WriteString("\nCurrent data:\n")
	writeJSON(b, map[string]any{
		model.FieldPressureLightFront:  v.PressureLightFront,
		model.FieldPressureLightRear:   v.PressureLightRear,
		model.FieldPressureLoadedFront: v.PressureLoadedFront,
		model.FieldPressureLoadedRear:  v.PressureLoadedRear,
		model.FieldPressureSpare:       v.PressureSpare,
		model.FieldVehicleSegment:      v.Segment,
	})
	writeIssues(b, rep.IssuesFor(model.CorrectionPressureFix))
	b.WriteString(`
Respond with:
{"pressure_light_front": number, "pressure_light_rear": number, "pressure_loaded_front": number,
 "pressure_loaded_rear": number, "pressure_spare": number, "vehicle_segment": "A|B|C|D|E|F|PICKUP|MOTO|SUV|VAN"}
`)
}

func writeTitlePrompt(b *strings.Builder, rec model.ContentRecord, rep scan.Report) {
	v := rec.Vehicle
	fmt.Fprintf(b, "Rewrite the SEO title and meta description of an article about the %s %s", v.Make, v.Model)
	if v.Year > 0 {
		fmt.Fprintf(b, " (model year %d)", v.Year)
	}
	b.WriteString(".\nRemove template placeholders such as \"N/A\" and outdated years. Keep the tone and length.\n")
	b.WriteString("\nCurrent data:\n")
	writeJSON(b, map[string]any{
		"title":            rec.SEO.Title,
		"meta_description": rec.SEO.MetaDescription,
		"faq":              rec.FAQ,
	})
	writeIssues(b, rep.IssuesFor(model.CorrectionTitleYearFix))
	b.WriteString(`
Respond with:
{"title": string, "meta_description": string, "faq": [{"question": string, "answer": string}]}
Omit "faq" when no FAQ entry needs a change.
`)
}

func writeTestimonialPrompt(b *strings.Builder, rec model.ContentRecord, rep scan.Report) {
	fmt.Fprintf(b, "The owner testimonials of an article about the %s %s reuse author names.\n",
		rec.Vehicle.Make, rec.Vehicle.Model)
	b.WriteString("Give every listed testimonial a distinct, realistic Brazilian first and last name, keeping the city or context after the name.\n")

	type author struct {
		BlockIndex int    `json:"block_index"`
		Author     string `json:"author"`
		Text       string `json:"text"`
	}
	var authors []author
	for i, blk := range rec.Blocks {
		if blk.IsTestimonial() {
			authors = append(authors, author{BlockIndex: i, Author: blk.Author, Text: blk.Text})
		}
	}
	b.WriteString("\nTestimonials:\n")
	writeJSON(b, authors)
	writeIssues(b, rep.IssuesFor(model.CorrectionTestimonialNameFix))
	b.WriteString(`
Respond with:
{"authors": [{"block_index": number, "author": string}]}
`)
}

// extractJSON returns the outermost JSON object in a provider reply,
// tolerating markdown fences and surrounding prose.
func extractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.New("no JSON object in response")
	}
	return []byte(text[start : end+1]), nil
}

// decodeResponse extracts and decodes the JSON object of a reply into v.
func decodeResponse(text string, v any) error {
	raw, err := extractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
