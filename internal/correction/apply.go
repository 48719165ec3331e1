package correction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
	"github.com/sells-group/content-fixer/internal/scan"
	"github.com/sells-group/content-fixer/internal/store"
)

// ApplyError means a provider reply could not be applied to the content
// record. The enrichment call itself succeeded.
type ApplyError struct {
	Err error
}

func (e *ApplyError) Error() string { return "apply: " + e.Err.Error() }
func (e *ApplyError) Unwrap() error { return e.Err }

func applyErrorf(format string, args ...any) error {
	return &ApplyError{Err: eris.Errorf(format, args...)}
}

// change is the patch derived from one reply plus what it changed.
type change struct {
	patch   store.ContentPatch
	updated map[string]bool
	values  map[string]string
}

func newChange() *change {
	return &change{updated: make(map[string]bool), values: make(map[string]string)}
}

func (c *change) set(field, oldVal, newVal string) {
	c.updated[field] = oldVal != newVal
	c.values[field] = newVal
}

// buildChange parses reply for a correction of type t and derives the patch
// against rec. Only the sub-fields owned by t are touched.
func buildChange(sc *scan.Scanner, t model.CorrectionType, rec model.ContentRecord, reply string) (*change, error) {
	switch t {
	case model.CorrectionPressureFix:
		return buildPressureChange(rec, reply)
	case model.CorrectionTitleYearFix:
		return buildTitleChange(sc, rec, reply)
	case model.CorrectionTestimonialNameFix:
		return buildTestimonialChange(sc, rec, reply)
	}
	return nil, applyErrorf("unknown correction type %q", t)
}

type pressureReply struct {
	LightFront  model.Measure `json:"pressure_light_front"`
	LightRear   model.Measure `json:"pressure_light_rear"`
	LoadedFront model.Measure `json:"pressure_loaded_front"`
	LoadedRear  model.Measure `json:"pressure_loaded_rear"`
	Spare       model.Measure `json:"pressure_spare"`
	Segment     *string       `json:"vehicle_segment"`
}

func (r pressureReply) measure(field string) model.Measure {
	var m model.Measure
	switch field {
	case model.FieldPressureLightFront:
		m = r.LightFront
	case model.FieldPressureLightRear:
		m = r.LightRear
	case model.FieldPressureLoadedFront:
		m = r.LoadedFront
	case model.FieldPressureLoadedRear:
		m = r.LoadedRear
	case model.FieldPressureSpare:
		m = r.Spare
	}
	if v, err := strconv.ParseFloat(string(m), 64); err == nil && v == 0 {
		return ""
	}
	return m
}

func buildPressureChange(rec model.ContentRecord, reply string) (*change, error) {
	var r pressureReply
	if err := decodeResponse(reply, &r); err != nil {
		return nil, &ApplyError{Err: err}
	}

	next := rec.Vehicle
	for _, f := range model.PressureFields() {
		if m := r.measure(f); !m.IsZero() {
			next = next.WithPressure(f, m)
		}
	}
	if r.Segment != nil && strings.TrimSpace(*r.Segment) != "" {
		next.Segment = strings.TrimSpace(*r.Segment)
	}

	issues, spec, _, err := scan.CheckPressure(next)
	if err != nil {
		return nil, &ApplyError{Err: err}
	}
	if len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, is := range issues {
			msgs[i] = is.Message
		}
		return nil, applyErrorf("corrected pressures still invalid: %s", strings.Join(msgs, "; "))
	}

	final := spec.ApplyTo(next)
	ch := newChange()
	for _, f := range model.PressureFields() {
		ch.set(f, string(rec.Vehicle.Pressure(f)), string(final.Pressure(f)))
	}
	ch.set(model.FieldVehicleSegment, rec.Vehicle.Segment, final.Segment)
	ch.patch.Vehicle = &final
	return ch, nil
}

type titleReply struct {
	Title           string          `json:"title"`
	MetaDescription string          `json:"meta_description"`
	FAQ             []model.FAQItem `json:"faq"`
}

func buildTitleChange(sc *scan.Scanner, rec model.ContentRecord, reply string) (*change, error) {
	var r titleReply
	if err := decodeResponse(reply, &r); err != nil {
		return nil, &ApplyError{Err: err}
	}

	seo := rec.SEO
	if t := strings.TrimSpace(r.Title); t != "" {
		seo.Title = t
	}
	if d := strings.TrimSpace(r.MetaDescription); d != "" {
		seo.MetaDescription = d
	}
	next := rec
	next.SEO = seo
	if len(r.FAQ) > 0 {
		next.FAQ = r.FAQ
	}

	if issues := sc.CheckTitle(next); len(issues) > 0 {
		return nil, applyErrorf("corrected title still flagged: %s", issues[0].Message)
	}

	ch := newChange()
	ch.set("title", rec.SEO.Title, seo.Title)
	ch.set("meta_description", rec.SEO.MetaDescription, seo.MetaDescription)
	ch.patch.SEO = &seo
	if len(r.FAQ) > 0 {
		ch.set("faq", fmt.Sprint(len(rec.FAQ)), fmt.Sprint(len(r.FAQ)))
		ch.updated["faq"] = true
		ch.patch.FAQ = r.FAQ
	}
	return ch, nil
}

type testimonialReply struct {
	Authors []struct {
		BlockIndex int    `json:"block_index"`
		Author     string `json:"author"`
	} `json:"authors"`
}

func buildTestimonialChange(sc *scan.Scanner, rec model.ContentRecord, reply string) (*change, error) {
	var r testimonialReply
	if err := decodeResponse(reply, &r); err != nil {
		return nil, &ApplyError{Err: err}
	}
	if len(r.Authors) == 0 {
		return nil, applyErrorf("reply renames no testimonial")
	}

	blocks := append([]model.ContentBlock(nil), rec.Blocks...)
	ch := newChange()
	for _, a := range r.Authors {
		author := strings.TrimSpace(a.Author)
		if a.BlockIndex < 0 || a.BlockIndex >= len(blocks) || !blocks[a.BlockIndex].IsTestimonial() {
			return nil, applyErrorf("block %d is not a testimonial", a.BlockIndex)
		}
		if author == "" {
			return nil, applyErrorf("empty author for block %d", a.BlockIndex)
		}
		field := fmt.Sprintf("content_blocks[%d].author", a.BlockIndex)
		ch.set(field, blocks[a.BlockIndex].Author, author)
		blocks[a.BlockIndex].Author = author
	}

	if chk := sc.CheckTestimonials(blocks); len(chk.Issues) > 0 {
		return nil, applyErrorf("renamed testimonials still flagged: %s", chk.Issues[0].Message)
	}
	ch.patch.Blocks = blocks
	return ch, nil
}
