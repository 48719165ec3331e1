package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Measure
	}{
		{"number", `32`, "32"},
		{"decimal", `32.5`, "32.5"},
		{"string with unit", `"32 psi"`, "32 psi"},
		{"comma decimal", `"32,5"`, "32,5"},
		{"null", `null`, ""},
		{"padded string", `"  30 "`, "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var m Measure
			require.NoError(t, json.Unmarshal([]byte(tt.in), &m))
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestMeasure_MarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		A Measure `json:"a"`
		B Measure `json:"b"`
		C Measure `json:"c"`
		D Measure `json:"d"`
	}{A: "32", B: "32 psi", C: "", D: "Inf"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":32,"b":"32 psi","c":null,"d":"Inf"}`, string(b))
}

func TestVehicleData_DecodeMixedPressures(t *testing.T) {
	t.Parallel()

	raw := `{"make":"Toyota","model":"Hilux","pressure_light_front":35,"pressure_light_rear":"38 psi","pressure_spare":"40,5"}`
	var v VehicleData
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	assert.Equal(t, Measure("35"), v.PressureLightFront)
	assert.Equal(t, Measure("38 psi"), v.Pressure(FieldPressureLightRear))
	assert.Equal(t, Measure("40,5"), v.Pressure(FieldPressureSpare))
	assert.True(t, v.PressureLoadedFront.IsZero())
}

func TestVehicleData_WithPressureCopies(t *testing.T) {
	t.Parallel()

	orig := VehicleData{Make: "Fiat", PressureLightFront: "30"}
	next := orig.WithPressure(FieldPressureLightFront, "32")

	assert.Equal(t, Measure("30"), orig.PressureLightFront)
	assert.Equal(t, Measure("32"), next.PressureLightFront)
}

func TestVehicleSpec_ApplyTo(t *testing.T) {
	t.Parallel()

	front, rear := 32.0, 34.5
	spec := VehicleSpec{LightFront: &front, LightRear: &rear, Segment: "B"}
	raw := VehicleData{Make: "Fiat", Model: "Argo", PressureLightFront: "32 psi", PressureSpare: "abc"}

	out := spec.ApplyTo(raw)
	assert.Equal(t, "Fiat", out.Make)
	assert.Equal(t, Measure("32"), out.PressureLightFront)
	assert.Equal(t, Measure("34.5"), out.PressureLightRear)
	assert.True(t, out.PressureSpare.IsZero())
	assert.Equal(t, "B", out.Segment)
}

func TestContentBlock_IsTestimonial(t *testing.T) {
	t.Parallel()

	assert.True(t, ContentBlock{Type: "testimonial"}.IsTestimonial())
	assert.True(t, ContentBlock{Type: " Testimonial "}.IsTestimonial())
	assert.False(t, ContentBlock{Type: "paragraph"}.IsTestimonial())
}
