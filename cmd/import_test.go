package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/content-fixer/internal/model"
)

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFixtures_YAML(t *testing.T) {
	path := writeFixture(t, "content.yaml", `
- slug: toyota-hilux-2024
  vehicle_data:
    make: Toyota
    model: Hilux
    year: 2024
    category: pickup
    pressure_light_front: 35
    pressure_loaded_rear: "44 psi"
  seo_data:
    title: Calibragem do Toyota Hilux 2024
  content_blocks:
    - block_type: testimonial
      author: Maria Souza, Curitiba
      text: Rodo com 35 psi na frente.
`)

	recs, err := loadFixtures(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "toyota-hilux-2024", recs[0].Slug)
	assert.Equal(t, 2024, recs[0].Vehicle.Year)
	assert.Equal(t, model.Measure("35"), recs[0].Vehicle.PressureLightFront)
	assert.Equal(t, model.Measure("44 psi"), recs[0].Vehicle.PressureLoadedRear)
	require.Len(t, recs[0].Blocks, 1)
	assert.True(t, recs[0].Blocks[0].IsTestimonial())
}

func TestLoadFixtures_JSONWrapped(t *testing.T) {
	path := writeFixture(t, "content.json", `{"records": [
		{"slug": "honda-civic-2023", "vehicle_data": {"make": "Honda", "model": "Civic", "year": 2023}},
		{"slug": "fiat-toro-2022", "vehicle_data": {"make": "Fiat", "model": "Toro", "year": 2022}}
	]}`)

	recs, err := loadFixtures(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "fiat-toro-2022", recs[1].Slug)
}

func TestLoadFixtures_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"unsupported extension", "content.csv", "slug\n", "unsupported file type"},
		{"missing slug", "content.json", `[{"vehicle_data": {"make": "Fiat"}}]`, "has no slug"},
		{"bad yaml", "content.yml", "- slug: [", "parse"},
		{"bad json", "content.json", "[{", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFixtures(writeFixture(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := loadFixtures(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestChunkRecords(t *testing.T) {
	recs := make([]model.ContentRecord, 5)

	assert.Nil(t, chunkRecords(nil, 2))
	assert.Len(t, chunkRecords(recs, 0), 1)
	assert.Len(t, chunkRecords(recs, 10), 1)

	chunks := chunkRecords(recs, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)
}
