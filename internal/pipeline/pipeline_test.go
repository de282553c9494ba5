package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banshee-data/topomap/internal/config"
	"github.com/banshee-data/topomap/internal/db"
	"github.com/banshee-data/topomap/internal/fsutil"
	"github.com/banshee-data/topomap/internal/monitoring"
	"github.com/banshee-data/topomap/internal/terrain"
	"github.com/banshee-data/topomap/internal/testutil"
	"github.com/banshee-data/topomap/internal/timeutil"
)

const gridCols = 40

// lakeGrid is 40x40 with a 25x25 plateau at 300 m: one lake of 625 cells.
func lakeGrid() string {
	return testutil.GridText(40, gridCols, testutil.WithPlateau(testutil.Unique(gridCols), 5, 5, 25, 25, 300))
}

func smallConfig() *config.RenderConfig {
	cfg := config.EmptyRenderConfig()
	cfg.ImageWidth = config.PtrInt(160)
	cfg.ImageHeight = config.PtrInt(120)
	return cfg
}

func newFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("in/grid.txt", []byte(lakeGrid()))
	return fs
}

func TestRun_WritesScene(t *testing.T) {
	fs := newFS(t)

	res, err := Run(context.Background(), Options{
		InputPath: "in/grid.txt",
		OutputDir: "out",
		Config:    smallConfig(),
		FS:        fs,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("out", "Map_Screenshot_Sea_Level_0.png"), res.OutputPath)
	require.Len(t, res.Water.Lakes, 1)
	assert.Equal(t, 625, res.Water.Lakes[0].Cells)
	assert.Equal(t, 300, res.Water.Lakes[0].Elevation)
	assert.Equal(t, 39*39, res.Scene.Quads)
	assert.Len(t, res.Surface.Points, 1600)

	// Lake cells keep their true height but report attribute 0.
	k := res.Grid.Index(10, 10)
	assert.Equal(t, 0.0, res.Surface.Attributes[k])
	b := config.EmptyRenderConfig().Bounds()
	want := terrain.Project(terrain.EarthRadius, b.Latitude(10, 40), b.Longitude(10, 40), 300, terrain.Inclination)
	assert.Equal(t, want, res.Surface.Points[k])

	data, err := fs.ReadFile(res.OutputPath)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestRun_NestedOutputDir(t *testing.T) {
	fs := newFS(t)
	dir := filepath.Join("out", "maps", "alps")

	res, err := Run(context.Background(), Options{
		InputPath: "in/grid.txt",
		OutputDir: dir,
		Config:    smallConfig(),
		FS:        fs,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Map_Screenshot_Sea_Level_0.png"), res.OutputPath)
	assert.True(t, fs.Exists(dir))
	assert.Equal(t, []string{res.OutputPath}, fs.Files(dir))
}

func TestRun_AllOutputs(t *testing.T) {
	fs := newFS(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	promPath := filepath.Join(dir, "topomap.prom")
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	clock.SetStep(250 * time.Millisecond)

	res, err := Run(context.Background(), Options{
		InputPath:       "in/grid.txt",
		OutputPath:      "out/scene.png",
		HeatmapPath:     "out/heat/map.png",
		HTMLPath:        "out/view.html",
		DBPath:          dbPath,
		MetricsTextfile: promPath,
		Config:          smallConfig(),
		FS:              fs,
		Registerer:      prometheus.NewRegistry(),
		Clock:           clock,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"out/heat/map.png", "out/scene.png", "out/view.html"}, fs.Files("out"))
	assert.Equal(t, 1600, res.HTMLPoints)

	html, err := fs.ReadFile("out/view.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>grid.txt</title>")

	catalog, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer catalog.Close()
	run, err := catalog.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.LakeCount)
	assert.Equal(t, 625, run.LakeCells)
	assert.Equal(t, "out/scene.png", run.OutputPath)
	assert.Equal(t, 300, run.ElevationMin)
	assert.True(t, run.CreatedAt.Equal(base), "created %v", run.CreatedAt)
	assert.Equal(t, res.Duration.Milliseconds(), run.Duration.Milliseconds())
	assert.Positive(t, res.Duration)

	lakes, err := catalog.ListLakes(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, lakes, 1)
	assert.InDelta(t, 45+17*2.5/39, lakes[0].CentroidLat, 1e-9)

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(prom), "topomap_lakes 1"), string(prom))
}

func TestRun_SkipRender(t *testing.T) {
	fs := newFS(t)

	res, err := Run(context.Background(), Options{InputPath: "in/grid.txt", SkipRender: true, FS: fs})
	require.NoError(t, err)
	assert.Empty(t, res.OutputPath)
	assert.Zero(t, res.Scene.Quads)
	assert.Len(t, res.Water.Lakes, 1)
	assert.False(t, fs.Exists("Map_Screenshot_Sea_Level_0.png"))
	assert.Equal(t, []string{"in/grid.txt"}, fs.Files("in"))
}

func TestRun_FormatError(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("bad.txt", []byte("3 x\n1 2 3\n"))

	core, logs := observer.New(zap.ErrorLevel)
	defer monitoring.Replace(zap.New(core))()

	_, err := Run(context.Background(), Options{InputPath: "bad.txt", FS: fs})
	require.Error(t, err)
	assert.ErrorIs(t, err, terrain.ErrFormat)
	assert.True(t, strings.HasPrefix(err.Error(), "load: "))

	entries := logs.FilterMessage("stage failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "load", entries[0].ContextMap()["stage"])
}

func TestRun_MissingInput(t *testing.T) {
	_, err := Run(context.Background(), Options{InputPath: "nope.txt", FS: fsutil.NewMemoryFileSystem()})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.EmptyRenderConfig()
	cfg.LatMin = config.PtrFloat64(50)
	cfg.LatMax = config.PtrFloat64(40)

	_, err := Run(context.Background(), Options{InputPath: "in/grid.txt", Config: cfg, FS: newFS(t)})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{InputPath: "in/grid.txt", FS: newFS(t)})
	assert.True(t, errors.Is(err, context.Canceled))
}
