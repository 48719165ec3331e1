package vehicle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                  string
		make, model, cat, seg string
		want                  model.VehicleCategory
	}{
		{"motorcycle make", "Ducati", "Monster", "", "", model.CategoryMotorcycle},
		{"motorcycle model token", "Honda", "CG 160 Titan", "", "", model.CategoryMotorcycle},
		{"category synonym", "Chevrolet", "Onix", "Hatchback", "", model.CategoryHatch},
		{"electric synonym", "Tesla", "Model 3", "car_electric", "", model.CategoryElectric},
		{"segment pickup", "Fiat", "Strada", "", "pickup", model.CategoryPickup},
		{"segment moto", "Honda", "Something", "", "MOTO", model.CategoryMotorcycle},
		{"large pickup", "Toyota", "Hilux", "", "", model.CategoryPickup},
		{"titan stays pickup", "Nissan", "Titan", "", "", model.CategoryPickup},
		{"dashed pickup", "Ford", "F-150 Raptor", "", "", model.CategoryPickup},
		{"large suv", "Toyota", "Land Cruiser Prado", "", "", model.CategorySUV},
		{"commercial payload", "Ram", "2500 HD Laramie", "", "", model.CategoryPickup},
		{"segment letter hatch", "Fiat", "Argo", "", "B", model.CategoryHatch},
		{"segment letter sedan", "Toyota", "Corolla", "", "C", model.CategorySedan},
		{"segment letter suv", "Jeep", "Compass", "", "D", model.CategorySUV},
		{"fallback", "BYD", "Dolphin", "", "", model.CategoryDefault},
		{"empty", "", "", "", "", model.CategoryDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.make, tt.model, tt.cat, tt.seg))
		})
	}
}

func TestClassify_StableUnderCasingAndWhitespace(t *testing.T) {
	t.Parallel()

	base := Classify("Toyota", "Hilux", "", "")
	assert.Equal(t, base, Classify("  TOYOTA ", "hilux", "", ""))
	assert.Equal(t, base, Classify("toyota", "  HiLuX  ", " ", " "))

	assert.Equal(t, Classify("Fiat", "Argo", "", "b"), Classify("FIAT", "ARGO", "", " B "))
	assert.Equal(t, Classify("Honda", "Civic", "SEDAN", ""), Classify("honda", "civic", "sedan", ""))
}

func TestRangeFor(t *testing.T) {
	t.Parallel()

	for _, c := range model.AllCategories() {
		r := RangeFor(c)
		assert.Less(t, r.Min, r.Max, c)
		assert.GreaterOrEqual(t, r.LoadedMax, r.Max, c)
	}
	assert.Equal(t, RangeFor(model.CategoryDefault), RangeFor("spaceship"))
	assert.False(t, TypicallyHasSpare(model.CategoryMotorcycle))
	assert.True(t, TypicallyHasSpare(model.CategorySedan))
}

func TestParseMeasure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     model.Measure
		want   float64
		wantOK bool
	}{
		{"32", 32, true},
		{"32 psi", 32, true},
		{"32,5", 32.5, true},
		{"1.032.5", 1032.5, true},
		{" 30. ", 30, true},
		{"abc", 0, false},
		{"-5", 0, false},
		{"0", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			t.Parallel()
			got, ok := ParseMeasure(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}

func TestSanitize_PickupRange(t *testing.T) {
	t.Parallel()

	raw := model.VehicleData{Make: "Toyota", Model: "Hilux", PressureLightFront: "25", PressureLightRear: "35", PressureSpare: "45"}
	_, rep, err := SanitizeAndValidate(raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, model.CategoryPickup, rep.Category)
	assert.Equal(t, []string{model.FieldPressureLightFront}, verr.Fields())

	raw.PressureLightFront = "45"
	spec, _, err := SanitizeAndValidate(raw)
	require.NoError(t, err)
	require.NotNil(t, spec.LightFront)
	assert.InDelta(t, 45.0, *spec.LightFront, 0.001)
}

func TestSanitize_HatchRange(t *testing.T) {
	t.Parallel()

	raw := model.VehicleData{Make: "Fiat", Model: "Argo", Category: "hatch", PressureLightFront: "45", PressureLightRear: "30", PressureSpare: "60"}
	_, rep, err := SanitizeAndValidate(raw)
	require.Error(t, err)
	assert.Equal(t, model.CategoryHatch, rep.Category)
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, model.FieldPressureLightFront, rep.Violations[0].Field)
	assert.InDelta(t, 24.0, rep.Violations[0].Min, 0.001)
	assert.InDelta(t, 40.0, rep.Violations[0].Max, 0.001)

	raw.PressureLightFront = "25"
	_, _, err = SanitizeAndValidate(raw)
	assert.NoError(t, err)
}

func TestSanitize_SpareConditionality(t *testing.T) {
	t.Parallel()

	t.Run("tesla needs no spare", func(t *testing.T) {
		t.Parallel()
		spec, rep, err := SanitizeAndValidate(model.VehicleData{Make: "Tesla", Model: "Model 3", PressureLightFront: "42", PressureLightRear: "40"})
		require.NoError(t, err)
		require.NotNil(t, spec.Spare)
		assert.InDelta(t, 52.0, *spec.Spare, 0.001)
		assert.Contains(t, rep.Fixes, "pressure_spare: synthesized 52")
	})

	t.Run("corolla missing spare fails", func(t *testing.T) {
		t.Parallel()
		_, _, err := SanitizeAndValidate(model.VehicleData{Make: "Toyota", Model: "Corolla", Segment: "C", PressureLightFront: "32", PressureLightRear: "32"})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, model.FieldPressureSpare, verr.Violations[0].Field)
		assert.True(t, verr.Violations[0].Missing)
	})

	t.Run("motorcycle spare from rear", func(t *testing.T) {
		t.Parallel()
		spec, _, err := SanitizeAndValidate(model.VehicleData{Make: "Yamaha", Model: "Fazer 250", PressureLightFront: "29", PressureLightRear: "33"})
		require.NoError(t, err)
		require.NotNil(t, spec.Spare)
		assert.InDelta(t, 38.0, *spec.Spare, 0.001)
	})

	t.Run("hybrid model pattern", func(t *testing.T) {
		t.Parallel()
		assert.False(t, ShouldHaveSpare(model.CategorySedan, "Toyota", "Corolla Hybrid"))
		assert.False(t, ShouldHaveSpare(model.CategorySUV, "Volkswagen", "ID.4"))
		assert.True(t, ShouldHaveSpare(model.CategorySedan, "Toyota", "Corolla"))
	})
}

func TestSanitize_NormalizesAndDropsValues(t *testing.T) {
	t.Parallel()

	raw := model.VehicleData{
		Make:               "Chevrolet",
		Model:              "S10",
		PressureLightFront: "35 psi",
		PressureLightRear:  "40,5",
		PressureLoadedRear: "n/a",
		PressureSpare:      "60",
	}
	spec, rep, err := SanitizeAndValidate(raw)
	require.NoError(t, err)

	require.NotNil(t, spec.LightRear)
	assert.InDelta(t, 40.5, *spec.LightRear, 0.001)
	assert.Nil(t, spec.LoadedRear)
	assert.NotEmpty(t, rep.Fixes)

	// The input is never mutated.
	assert.Equal(t, model.Measure("35 psi"), raw.PressureLightFront)
	assert.Equal(t, model.Measure("n/a"), raw.PressureLoadedRear)
}

func TestSanitize_ClampsImplausibleValues(t *testing.T) {
	t.Parallel()

	spec, rep, err := SanitizeAndValidate(model.VehicleData{Make: "Toyota", Model: "Hilux", PressureLightFront: "350", PressureLightRear: "35", PressureSpare: "40"})
	require.Error(t, err)
	require.NotNil(t, spec.LightFront)
	assert.InDelta(t, MaxPlausiblePSI, *spec.LightFront, 0.001)
	assert.Contains(t, rep.Fixes, "pressure_light_front: clamped 350 to 150")
}

func TestSanitize_Segment(t *testing.T) {
	t.Parallel()

	spec, _, err := SanitizeAndValidate(model.VehicleData{Make: "Fiat", Model: "Argo", Segment: "b", PressureSpare: "40"})
	require.NoError(t, err)
	assert.Equal(t, "B", spec.Segment)

	_, rep, err := SanitizeAndValidate(model.VehicleData{Make: "Fiat", Model: "Argo", Segment: "Z", PressureSpare: "40"})
	require.Error(t, err)
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, model.FieldVehicleSegment, rep.Violations[0].Field)
}

func TestSanitize_IncompleteVehicle(t *testing.T) {
	t.Parallel()

	_, _, err := SanitizeAndValidate(model.VehicleData{PressureLightFront: "30"})
	assert.ErrorIs(t, err, ErrIncompleteVehicle)
}
