package model

// VehicleCategory groups vehicles that share a plausible tire pressure range.
type VehicleCategory string

const (
	CategoryMotorcycle VehicleCategory = "motorcycle"
	CategoryHatch      VehicleCategory = "hatch"
	CategorySedan      VehicleCategory = "sedan"
	CategorySUV        VehicleCategory = "suv"
	CategoryPickup     VehicleCategory = "pickup"
	CategoryVan        VehicleCategory = "van"
	CategoryElectric   VehicleCategory = "electric"
	CategoryDefault    VehicleCategory = "default"
)

// AllCategories returns every vehicle category.
func AllCategories() []VehicleCategory {
	return []VehicleCategory{
		CategoryMotorcycle,
		CategoryHatch,
		CategorySedan,
		CategorySUV,
		CategoryPickup,
		CategoryVan,
		CategoryElectric,
		CategoryDefault,
	}
}

// VehicleSpec is the sanitized form of VehicleData. Pressure pointers are nil
// when the source value was missing or rejected.
type VehicleSpec struct {
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Year        int             `json:"year,omitempty"`
	Category    VehicleCategory `json:"category"`
	Segment     string          `json:"vehicle_segment,omitempty"`
	LightFront  *float64        `json:"pressure_light_front,omitempty"`
	LightRear   *float64        `json:"pressure_light_rear,omitempty"`
	LoadedFront *float64        `json:"pressure_loaded_front,omitempty"`
	LoadedRear  *float64        `json:"pressure_loaded_rear,omitempty"`
	Spare       *float64        `json:"pressure_spare,omitempty"`
}

// Pressure returns the sanitized value for a pressure field name.
func (s VehicleSpec) Pressure(field string) *float64 {
	switch field {
	case FieldPressureLightFront:
		return s.LightFront
	case FieldPressureLightRear:
		return s.LightRear
	case FieldPressureLoadedFront:
		return s.LoadedFront
	case FieldPressureLoadedRear:
		return s.LoadedRear
	case FieldPressureSpare:
		return s.Spare
	}
	return nil
}

// SetPressure stores a sanitized value under a pressure field name.
func (s *VehicleSpec) SetPressure(field string, v *float64) {
	switch field {
	case FieldPressureLightFront:
		s.LightFront = v
	case FieldPressureLightRear:
		s.LightRear = v
	case FieldPressureLoadedFront:
		s.LoadedFront = v
	case FieldPressureLoadedRear:
		s.LoadedRear = v
	case FieldPressureSpare:
		s.Spare = v
	}
}

// ApplyTo writes the sanitized pressures and segment back onto raw vehicle
// data, leaving every other field untouched. Rejected values are cleared.
func (s VehicleSpec) ApplyTo(v VehicleData) VehicleData {
	for _, f := range PressureFields() {
		p := s.Pressure(f)
		if p == nil {
			v = v.WithPressure(f, "")
			continue
		}
		v = v.WithPressure(f, FormatMeasure(*p))
	}
	if s.Segment != "" {
		v.Segment = s.Segment
	}
	return v
}
