package vehicle

import (
	"regexp"
	"strings"

	"github.com/sells-group/content-fixer/internal/model"
)

// classifierTables holds every heuristic the classifier uses. Rules are data,
// so new brands or models only need a table entry.
type classifierTables struct {
	motorcycleMakes       []string
	motorcycleModelTokens []string
	categorySynonyms      map[string]model.VehicleCategory
	segmentCategories     map[string]model.VehicleCategory
	largePickups          []string
	largeSUVs             []string
	commercialMakes       []string
	payloadToken          *regexp.Regexp
	segmentLetters        map[string]model.VehicleCategory
}

var defaultTables = classifierTables{
	motorcycleMakes: []string{
		"harley-davidson", "harley davidson", "ducati", "yamaha", "kawasaki", "triumph",
		"ktm", "royal enfield", "dafra", "shineray", "haojue", "bmw motorrad", "mv agusta",
		"aprilia", "benelli", "husqvarna", "indian motorcycle", "moto guzzi", "kymco",
	},
	motorcycleModelTokens: []string{
		"cg 125", "cg 150", "cg 160", "cb 250", "cb 300", "cb 500", "cb 650", "cbr", "xre",
		"bros", "biz", "pop 110", "fan 160", "pcx", "nmax", "xmax", "fazer", "factor",
		"lander", "crosser", "ninja", "hornet", "gsx", "burgman", "duke", "tenere",
		"africa twin", "z400", "z900", "mt 03", "mt 07", "mt 09", "g 310", "gs 1250",
	},
	categorySynonyms: map[string]model.VehicleCategory{
		"motorcycle":   model.CategoryMotorcycle,
		"motorcycles":  model.CategoryMotorcycle,
		"motorbike":    model.CategoryMotorcycle,
		"moto":         model.CategoryMotorcycle,
		"motos":        model.CategoryMotorcycle,
		"hatch":        model.CategoryHatch,
		"hatchback":    model.CategoryHatch,
		"hatchbacks":   model.CategoryHatch,
		"compact":      model.CategoryHatch,
		"sedan":        model.CategorySedan,
		"sedans":       model.CategorySedan,
		"saloon":       model.CategorySedan,
		"suv":          model.CategorySUV,
		"suvs":         model.CategorySUV,
		"crossover":    model.CategorySUV,
		"pickup":       model.CategoryPickup,
		"pickups":      model.CategoryPickup,
		"picape":       model.CategoryPickup,
		"truck":        model.CategoryPickup,
		"trucks":       model.CategoryPickup,
		"van":          model.CategoryVan,
		"vans":         model.CategoryVan,
		"minivan":      model.CategoryVan,
		"furgao":       model.CategoryVan,
		"electric":     model.CategoryElectric,
		"car_electric": model.CategoryElectric,
		"ev":           model.CategoryElectric,
		"hybrid":       model.CategoryElectric,
	},
	segmentCategories: map[string]model.VehicleCategory{
		"F":      model.CategoryPickup,
		"PICKUP": model.CategoryPickup,
		"MOTO":   model.CategoryMotorcycle,
		"SUV":    model.CategorySUV,
		"VAN":    model.CategoryVan,
	},
	largePickups: []string{
		"hilux", "ranger", "s10", "amarok", "frontier", "l200", "triton", "f 150", "f 250",
		"f 350", "f 4000", "silverado", "sierra", "tundra", "tacoma", "titan", "maverick", "ram",
	},
	largeSUVs: []string{
		"land cruiser", "tahoe", "suburban", "expedition", "sequoia", "4runner", "pajero",
		"sw4", "trailblazer", "range rover", "escalade", "yukon", "navigator",
		"grand cherokee", "x5", "x7", "q7", "gle", "gls", "touareg",
	},
	commercialMakes: []string{"ram", "ford", "chevrolet", "chevy", "gmc", "dodge", "iveco"},
	payloadToken:    regexp.MustCompile(`\b(1500|2500|3500|4500|5500)(hd)?\b`),
	segmentLetters: map[string]model.VehicleCategory{
		"A": model.CategoryHatch,
		"B": model.CategoryHatch,
		"C": model.CategorySedan,
		"E": model.CategorySedan,
		"D": model.CategorySUV,
		"F": model.CategoryPickup,
	},
}

// Classifier infers a vehicle category from make, model and optional hints.
type Classifier struct {
	t classifierTables
}

// NewClassifier returns a classifier using the built-in tables.
func NewClassifier() *Classifier {
	return &Classifier{t: defaultTables}
}

var defaultClassifier = NewClassifier()

// Classify uses the built-in tables. See Classifier.Classify.
func Classify(make, vehicleModel, category, segment string) model.VehicleCategory {
	return defaultClassifier.Classify(make, vehicleModel, category, segment)
}

// Classify returns the category of a vehicle. Rules are checked in priority
// order and the first match wins; it falls back to CategoryDefault.
func (c *Classifier) Classify(make, vehicleModel, category, segment string) model.VehicleCategory {
	mk := normalizeWords(make)
	md := normalizeWords(vehicleModel)
	cat := strings.ToLower(strings.TrimSpace(category))
	seg := strings.ToUpper(strings.TrimSpace(segment))

	for _, brand := range c.t.motorcycleMakes {
		if mk != "" && strings.Contains(mk, normalizeWords(brand)) {
			return model.CategoryMotorcycle
		}
	}
	if containsAnyWord(md, c.t.motorcycleModelTokens) {
		return model.CategoryMotorcycle
	}
	if cat != "" {
		if v, ok := c.t.categorySynonyms[cat]; ok {
			return v
		}
		if v, ok := c.t.categorySynonyms[strings.ReplaceAll(cat, " ", "_")]; ok {
			return v
		}
	}
	if v, ok := c.t.segmentCategories[seg]; ok {
		return v
	}
	if containsAnyWord(md, c.t.largePickups) {
		return model.CategoryPickup
	}
	if containsAnyWord(md, c.t.largeSUVs) {
		return model.CategorySUV
	}
	if containsAnyWord(mk, c.t.commercialMakes) && c.t.payloadToken.MatchString(md) {
		return model.CategoryPickup
	}
	if v, ok := c.t.segmentLetters[seg]; ok {
		return v
	}
	return model.CategoryDefault
}

// normalizeWords lowercases s and replaces every run of non-alphanumeric
// characters with a single space, so "F-150" and "f 150" compare equal.
func normalizeWords(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if isAlnum(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
}

// containsAnyWord reports whether any token appears in s on word boundaries.
func containsAnyWord(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	padded := " " + s + " "
	for _, tok := range tokens {
		if strings.Contains(padded, " "+normalizeWords(tok)+" ") {
			return true
		}
	}
	return false
}
