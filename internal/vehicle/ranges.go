// Package vehicle classifies vehicles into pressure categories and sanitizes
// imported vehicle specification data against category ranges.
package vehicle

import (
	"github.com/sells-group/content-fixer/internal/model"
)

// Plausibility bounds applied to every parsed pressure before category checks.
const (
	MinPlausiblePSI = 1.0
	MaxPlausiblePSI = 150.0
)

// PressureRange is the valid PSI interval for a category. LoadedMax bounds
// loaded-axle pressures, which run higher than light-load ones.
type PressureRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	LoadedMax float64 `json:"loaded_max"`
	SpareMin  float64 `json:"spare_min"`
	SpareMax  float64 `json:"spare_max"`
}

// Contains reports whether v is a valid light-load pressure.
func (r PressureRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ContainsLoaded reports whether v is a valid loaded-axle pressure.
func (r PressureRange) ContainsLoaded(v float64) bool {
	return v >= r.Min && v <= r.LoadedMax
}

// ContainsSpare reports whether v is a valid spare tire pressure.
func (r PressureRange) ContainsSpare(v float64) bool {
	return v >= r.SpareMin && v <= r.SpareMax
}

type categoryProfile struct {
	Range    PressureRange
	HasSpare bool
}

// rangeTable is the category range table. Default is the widest interval so
// an unclassified vehicle is never rejected for a plausible value.
var rangeTable = map[model.VehicleCategory]categoryProfile{
	model.CategoryMotorcycle: {Range: PressureRange{Min: 18, Max: 42, LoadedMax: 46}, HasSpare: false},
	model.CategoryHatch:      {Range: PressureRange{Min: 24, Max: 40, LoadedMax: 44, SpareMin: 35, SpareMax: 62}, HasSpare: true},
	model.CategorySedan:      {Range: PressureRange{Min: 26, Max: 42, LoadedMax: 46, SpareMin: 35, SpareMax: 62}, HasSpare: true},
	model.CategorySUV:        {Range: PressureRange{Min: 28, Max: 46, LoadedMax: 52, SpareMin: 35, SpareMax: 65}, HasSpare: true},
	model.CategoryPickup:     {Range: PressureRange{Min: 30, Max: 80, LoadedMax: 85, SpareMin: 35, SpareMax: 85}, HasSpare: true},
	model.CategoryVan:        {Range: PressureRange{Min: 30, Max: 80, LoadedMax: 85, SpareMin: 35, SpareMax: 85}, HasSpare: true},
	model.CategoryElectric:   {Range: PressureRange{Min: 30, Max: 50, LoadedMax: 55}, HasSpare: false},
	model.CategoryDefault:    {Range: PressureRange{Min: 20, Max: 80, LoadedMax: 85, SpareMin: 30, SpareMax: 85}, HasSpare: true},
}

// RangeFor returns the pressure range of a category. Unknown categories get
// the default range.
func RangeFor(c model.VehicleCategory) PressureRange {
	if p, ok := rangeTable[c]; ok {
		return p.Range
	}
	return rangeTable[model.CategoryDefault].Range
}

// TypicallyHasSpare reports whether vehicles of the category ship with a spare tire.
func TypicallyHasSpare(c model.VehicleCategory) bool {
	if p, ok := rangeTable[c]; ok {
		return p.HasSpare
	}
	return rangeTable[model.CategoryDefault].HasSpare
}
