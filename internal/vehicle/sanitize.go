package vehicle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/content-fixer/internal/model"
)

// Report summarises what sanitization changed and what still violates the
// category ranges.
type Report struct {
	Category   model.VehicleCategory `json:"category"`
	Range      PressureRange         `json:"range"`
	Fixes      []string              `json:"fixes,omitempty"`
	Violations []FieldError          `json:"violations,omitempty"`
}

// HasViolations reports whether any field failed validation.
func (r Report) HasViolations() bool { return len(r.Violations) > 0 }

// ViolationStrings renders every violation for storage in snapshots.
func (r Report) ViolationStrings() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.String())
	}
	return out
}

// noSpareMakes ship their models without a spare tire.
var noSpareMakes = []string{
	"tesla", "byd", "polestar", "rivian", "lucid", "nio", "mini", "smart", "zeekr", "xpeng", "gwm ora",
}

var noSpareModelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bev\b`),
	regexp.MustCompile(`hybrid`),
	regexp.MustCompile(`\beq[a-z]\b`),
	regexp.MustCompile(`e-tron`),
	regexp.MustCompile(`\bleaf\b`),
	regexp.MustCompile(`\bbolt\b`),
	regexp.MustCompile(`ioniq`),
	regexp.MustCompile(`\bid\.?\s?\d`),
	regexp.MustCompile(`electric`),
	regexp.MustCompile(`\bphev\b`),
	regexp.MustCompile(`\bhev\b`),
}

// ShouldHaveSpare reports whether a vehicle is expected to carry a spare tire.
func ShouldHaveSpare(c model.VehicleCategory, make, vehicleModel string) bool {
	if c == model.CategoryMotorcycle || c == model.CategoryElectric {
		return false
	}
	if containsAnyWord(normalizeWords(make), noSpareMakes) {
		return false
	}
	md := strings.ToLower(strings.TrimSpace(vehicleModel))
	for _, re := range noSpareModelPatterns {
		if re.MatchString(md) {
			return false
		}
	}
	return TypicallyHasSpare(c)
}

// ParseMeasure extracts a positive number from a free-form measure such as
// "32 psi", "32,5" or "1.032.5". The second result is false when the value
// has no digits or is not positive.
func ParseMeasure(m model.Measure) (float64, bool) {
	s := strings.TrimSpace(string(m))
	if s == "" {
		return 0, false
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if !strings.ContainsAny(clean, "0123456789") {
		return 0, false
	}

	// Only the last dot separates the fraction.
	if strings.Count(clean, ".") > 1 {
		idx := strings.LastIndex(clean, ".")
		clean = strings.ReplaceAll(clean[:idx], ".", "") + clean[idx:]
	}
	clean = strings.TrimSuffix(clean, ".")

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clamp(v float64) float64 {
	return math.Max(MinPlausiblePSI, math.Min(MaxPlausiblePSI, v))
}

// SanitizeAndValidate parses every pressure field of raw, classifies the
// vehicle and checks the values against the category range. It returns a
// corrected copy and never mutates raw. A non-nil error is either
// ErrIncompleteVehicle or a *ValidationError; the spec and report are
// populated in the latter case.
func SanitizeAndValidate(raw model.VehicleData) (model.VehicleSpec, Report, error) {
	spec := model.VehicleSpec{
		Make:  strings.TrimSpace(raw.Make),
		Model: strings.TrimSpace(raw.Model),
		Year:  raw.Year,
	}
	if spec.Make == "" && spec.Model == "" {
		rng := RangeFor(model.CategoryDefault)
		return spec, Report{Category: model.CategoryDefault, Range: rng}, ErrIncompleteVehicle
	}

	cat := Classify(raw.Make, raw.Model, raw.Category, raw.Segment)
	rng := RangeFor(cat)
	spec.Category = cat
	rep := Report{Category: cat, Range: rng}

	for _, f := range model.PressureFields() {
		m := raw.Pressure(f)
		if m.IsZero() {
			continue
		}
		v, ok := ParseMeasure(m)
		if !ok {
			rep.Fixes = append(rep.Fixes, fmt.Sprintf("%s: dropped unparseable value %q", f, string(m)))
			continue
		}
		if c := clamp(v); c != v {
			rep.Fixes = append(rep.Fixes, fmt.Sprintf("%s: clamped %g to %g", f, v, c))
			v = c
		}
		if model.FormatMeasure(v) != m {
			rep.Fixes = append(rep.Fixes, fmt.Sprintf("%s: normalized %q to %g", f, string(m), v))
		}
		val := v
		spec.SetPressure(f, &val)
	}

	checkRange := func(field string, v *float64, lo, hi float64) {
		if v == nil || (*v >= lo && *v <= hi) {
			return
		}
		rep.Violations = append(rep.Violations, FieldError{
			Field: field,
			Value: strconv.FormatFloat(*v, 'f', -1, 64),
			Min:   lo,
			Max:   hi,
		})
	}
	checkRange(model.FieldPressureLightFront, spec.LightFront, rng.Min, rng.Max)
	checkRange(model.FieldPressureLightRear, spec.LightRear, rng.Min, rng.Max)
	checkRange(model.FieldPressureLoadedFront, spec.LoadedFront, rng.Min, rng.LoadedMax)
	checkRange(model.FieldPressureLoadedRear, spec.LoadedRear, rng.Min, rng.LoadedMax)

	if ShouldHaveSpare(cat, spec.Make, spec.Model) {
		if spec.Spare == nil {
			rep.Violations = append(rep.Violations, FieldError{
				Field:   model.FieldPressureSpare,
				Min:     rng.SpareMin,
				Max:     rng.SpareMax,
				Missing: true,
			})
		} else {
			checkRange(model.FieldPressureSpare, spec.Spare, rng.SpareMin, rng.SpareMax)
		}
	} else if spec.Spare == nil {
		if v, ok := synthesizeSpare(cat, spec.LightFront, spec.LightRear); ok {
			spec.Spare = &v
			rep.Fixes = append(rep.Fixes, fmt.Sprintf("%s: synthesized %g", model.FieldPressureSpare, v))
		}
	}

	if seg := NormalizeSegment(raw.Segment); seg != "" {
		if ValidSegment(seg) {
			spec.Segment = seg
		} else {
			rep.Violations = append(rep.Violations, FieldError{
				Field:  model.FieldVehicleSegment,
				Value:  raw.Segment,
				Reason: fmt.Sprintf("unknown segment %q", raw.Segment),
			})
		}
	}

	if rep.HasViolations() {
		return spec, rep, &ValidationError{Violations: rep.Violations}
	}
	return spec, rep, nil
}

// synthesizeSpare derives a spare value for vehicles that do not carry one,
// so downstream templates always have a number to render.
func synthesizeSpare(cat model.VehicleCategory, front, rear *float64) (float64, bool) {
	if cat == model.CategoryMotorcycle {
		switch {
		case rear != nil:
			return clamp(*rear + 5), true
		case front != nil:
			return clamp(*front + 5), true
		}
		return 0, false
	}
	switch {
	case front != nil && rear != nil:
		return clamp(math.Max(*front, *rear) + 10), true
	case front != nil:
		return clamp(*front + 10), true
	case rear != nil:
		return clamp(*rear + 10), true
	}
	return 0, false
}
