package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/banshee-data/topomap/internal/terrain"
)

func TestEmptyRenderConfigDefaults(t *testing.T) {
	cfg := EmptyRenderConfig()

	assert.Equal(t, terrain.EarthRadius, cfg.GetEarthRadius())
	assert.Equal(t, 500_000.0, cfg.GetCameraDistance())
	assert.Equal(t, terrain.GeoBounds{LatMin: 45, LatMax: 47.5, LonMin: 5, LonMax: 7.5}, cfg.Bounds())
	assert.Equal(t, 0, cfg.GetSeaLevel())
	assert.Equal(t, terrain.AfterLakes, cfg.GetSeaLevelOrder())
	assert.Equal(t, 512, cfg.GetMinLakeCells())
	assert.Equal(t, terrain.Inclination, cfg.GetLatitudeConvention())
	assert.Equal(t, 800, cfg.GetImageWidth())
	assert.Equal(t, 800, cfg.GetImageHeight())
	assert.Equal(t, 400, cfg.GetRenderMaxCellsPerAxis())
	assert.Equal(t, 20000, cfg.GetHTMLMaxPoints())
	assert.Equal(t, DefaultColorStops(), cfg.GetColorStops())
	assert.Equal(t, "Map_Screenshot_Sea_Level_0.png", cfg.ScreenshotName())
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyRenderConfig()

	assert.Equal(t, empty.GetEarthRadius(), cfg.GetEarthRadius())
	assert.Equal(t, empty.GetCameraDistance(), cfg.GetCameraDistance())
	assert.Equal(t, empty.Bounds(), cfg.Bounds())
	assert.Equal(t, empty.WaterOptions(), cfg.WaterOptions())
	assert.Equal(t, empty.GetLatitudeConvention(), cfg.GetLatitudeConvention())
	assert.Equal(t, empty.GetImageWidth(), cfg.GetImageWidth())
	assert.Equal(t, empty.GetRenderMaxCellsPerAxis(), cfg.GetRenderMaxCellsPerAxis())
	assert.Equal(t, empty.GetHTMLMaxPoints(), cfg.GetHTMLMaxPoints())
	assert.Equal(t, DefaultColorStops(), cfg.GetColorStops())
}

func TestLoadRenderConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "sea_level": 372,
  "sea_level_order": "before_lakes",
  "lat_min": 46,
  "lat_max": 46.5
}`), 0o644))

	cfg, err := LoadRenderConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 372, cfg.GetSeaLevel())
	assert.Equal(t, terrain.BeforeLakes, cfg.GetSeaLevelOrder())
	assert.Equal(t, 46.0, cfg.Bounds().LatMin)
	assert.Equal(t, 5.0, cfg.Bounds().LonMin, "unset fields keep defaults")
	assert.Equal(t, "Map_Screenshot_Sea_Level_372.png", cfg.ScreenshotName())
}

func TestLoadRenderConfig_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_lake_cells = 64
latitude_convention = "colatitude"

[[color_stops]]
value = 0
color = "#000000"

[[color_stops]]
value = 100
color = "#FFFFFF"
`), 0o644))

	cfg, err := LoadRenderConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.GetMinLakeCells())
	assert.Equal(t, terrain.Colatitude, cfg.GetLatitudeConvention())
	require.Len(t, cfg.GetColorStops(), 2)
	assert.Equal(t, "#FFFFFF", cfg.GetColorStops()[1].Color)
}

func TestLoadRenderConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRenderConfig(filepath.Join(dir, "render.yaml"))
	assert.ErrorContains(t, err, "extension")

	_, err = LoadRenderConfig(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "stat")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"sea_level": "high"}`), 0o644))
	_, err = LoadRenderConfig(bad)
	assert.ErrorContains(t, err, "parse")

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"min_lake_cells": 0}`), 0o644))
	_, err = LoadRenderConfig(invalid)
	assert.ErrorContains(t, err, "min_lake_cells")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &RenderConfig{
		EarthRadius:        PtrFloat64(-1),
		LatMin:             PtrFloat64(50),
		SeaLevelOrder:      PtrString("whenever"),
		LatitudeConvention: PtrString("south"),
		ImageWidth:         PtrInt(0),
		ColorStops: []ColorStop{
			{Value: 10, Color: "#000000"},
			{Value: 5, Color: "blue"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 7)
	assert.ErrorIs(t, err, terrain.ErrConfig)

	// Getters fall back on unparsable values.
	assert.Equal(t, terrain.AfterLakes, cfg.GetSeaLevelOrder())
	assert.Equal(t, terrain.Inclination, cfg.GetLatitudeConvention())
}

func TestMerge(t *testing.T) {
	base := &RenderConfig{SeaLevel: PtrInt(10), MinLakeCells: PtrInt(100)}
	over := &RenderConfig{SeaLevel: PtrInt(-20), CameraDistance: PtrFloat64(250_000)}

	base.Merge(over)
	assert.Equal(t, -20, base.GetSeaLevel())
	assert.Equal(t, 100, base.GetMinLakeCells())
	assert.Equal(t, 250_000.0, base.GetCameraDistance())

	*over.SeaLevel = 5
	assert.Equal(t, -20, base.GetSeaLevel(), "merge copies values")

	base.Merge(nil)
	assert.Equal(t, -20, base.GetSeaLevel())
}

func TestColorStopRGB(t *testing.T) {
	r, g, b, err := ColorStop{Color: "#837DFF"}.RGB()
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{0x83, 0x7D, 0xFF}, [3]uint8{r, g, b})

	_, _, _, err = ColorStop{Color: "#12345"}.RGB()
	assert.Error(t, err)
	_, _, _, err = ColorStop{Color: "#GGGGGG"}.RGB()
	assert.Error(t, err)
}
