package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/topomap/internal/config"
	"github.com/banshee-data/topomap/internal/terrain"
	"github.com/banshee-data/topomap/internal/testutil"
)

var smallBounds = terrain.GeoBounds{LatMin: 45, LatMax: 46, LonMin: 5, LonMax: 6}

func buildSurface(t *testing.T, rows, cols int, f testutil.GridFunc) (*terrain.ElevationGrid, *terrain.Surface) {
	t.Helper()
	g, err := terrain.NewElevationGrid(testutil.GridRows(rows, cols, f))
	require.NoError(t, err)
	s, _, err := terrain.BuildSurface(terrain.EarthRadius, smallBounds, g, terrain.Inclination, terrain.DefaultWaterOptions())
	require.NoError(t, err)
	return g, s
}

func TestRenderScene_WaterSurface(t *testing.T) {
	// A single flat 30x30 region is one lake, so every vertex is water.
	_, s := buildSurface(t, 30, 30, testutil.Constant(0))
	cam := terrain.CameraFor(terrain.EarthRadius, terrain.DefaultCameraDistance, smallBounds, terrain.Inclination)

	var buf bytes.Buffer
	stats, err := RenderScene(&buf, s, cam, defaultCTF(t), DefaultSceneOptions())
	require.NoError(t, err)
	assert.Equal(t, 29*29, stats.Quads)
	assert.Zero(t, stats.Culled)
	assert.Equal(t, 1, stats.Stride)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())

	r, g, b, _ := img.At(400, 400).RGBA()
	assert.Greater(t, b>>8, uint32(200), "centre should be water blue")
	assert.Less(t, r>>8, uint32(160))
	assert.Less(t, g>>8, uint32(160))

	r, g, b, _ = img.At(5, 5).RGBA()
	assert.Zero(t, r|g|b, "corner should be background")
}

func TestRenderScene_Decimates(t *testing.T) {
	_, s := buildSurface(t, 41, 21, testutil.Unique(21))
	cam := terrain.CameraFor(terrain.EarthRadius, terrain.DefaultCameraDistance, smallBounds, terrain.Inclination)

	opts := DefaultSceneOptions()
	opts.Width, opts.Height = 64, 64
	opts.MaxCellsPerAxis = 10

	var buf bytes.Buffer
	stats, err := RenderScene(&buf, s, cam, defaultCTF(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Stride)
	// Rows sample 0,4,...,40; columns 0,4,...,20.
	assert.Equal(t, 10*5, stats.Quads)
}

func TestRenderScene_InvalidSize(t *testing.T) {
	_, s := buildSurface(t, 2, 2, testutil.Unique(2))
	cam := terrain.CameraFor(terrain.EarthRadius, terrain.DefaultCameraDistance, smallBounds, terrain.Inclination)

	opts := DefaultSceneOptions()
	opts.Width = 0
	_, err := RenderScene(&bytes.Buffer{}, s, cam, defaultCTF(t), opts)
	assert.Error(t, err)
}

func TestDefaultSceneOptions_MatchConfigDefaults(t *testing.T) {
	cfg := config.EmptyRenderConfig()
	opts := DefaultSceneOptions()
	assert.Equal(t, cfg.GetImageWidth(), opts.Width)
	assert.Equal(t, cfg.GetImageHeight(), opts.Height)
	assert.Equal(t, cfg.GetRenderMaxCellsPerAxis(), opts.MaxCellsPerAxis)
}

func TestSampleAxis(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, sampleAxis(4, 0))
	assert.Equal(t, []int{0, 1, 2, 3}, sampleAxis(4, 1))
	assert.Equal(t, []int{0, 3, 6, 9}, sampleAxis(10, 3))
	assert.Equal(t, []int{0, 4, 8, 9}, sampleAxis(10, 4))
	assert.Equal(t, []int{0, 1}, sampleAxis(2, 5))

	assert.Equal(t, 3, axisStride(10, 7, 3))
	assert.Equal(t, 1, axisStride(800, 800, 0))
	assert.Equal(t, 2, axisStride(801, 10, 400))
}
