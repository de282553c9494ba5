package main

import (
	"github.com/spf13/pflag"

	"github.com/banshee-data/topomap/internal/config"
)

// renderFlags holds the flags shared by render and lakes. Values only
// override the config file when set on the command line.
type renderFlags struct {
	configPath string

	earthRadius    float64
	cameraDistance float64
	latMin, latMax float64
	lonMin, lonMax float64

	seaLevel           int
	seaLevelOrder      string
	minLakeCells       int
	latitudeConvention string

	width, height int
	maxCells      int
	htmlMaxPoints int

	outputDir string
	output    string
	heatmap   string
	html      string

	dbPath          string
	metricsTextfile string
	traceFile       string
}

func (f *renderFlags) register(fs *pflag.FlagSet, outputs bool) {
	fs.StringVarP(&f.configPath, "config", "c", "", "JSON or TOML config file")

	fs.Float64Var(&f.earthRadius, "earth-radius", 0, "sphere radius in meters")
	fs.Float64Var(&f.cameraDistance, "camera-distance", 0, "camera height above the surface in meters")
	fs.Float64Var(&f.latMin, "lat-min", 0, "latitude of the first row")
	fs.Float64Var(&f.latMax, "lat-max", 0, "latitude of the last row")
	fs.Float64Var(&f.lonMin, "lon-min", 0, "longitude of the first column")
	fs.Float64Var(&f.lonMax, "lon-max", 0, "longitude of the last column")

	fs.IntVarP(&f.seaLevel, "sea-level", "s", 0, "elevations below this are colored as water")
	fs.StringVar(&f.seaLevelOrder, "sea-level-order", "", "after_lakes or before_lakes")
	fs.IntVar(&f.minLakeCells, "min-lake-cells", 0, "smallest flat region treated as a lake")
	fs.StringVar(&f.latitudeConvention, "latitude-convention", "", "inclination or colatitude")

	fs.StringVar(&f.dbPath, "db", "", "record the run in this SQLite catalog")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	fs.StringVar(&f.traceFile, "trace-file", "", "write OpenTelemetry spans to this file")

	if !outputs {
		return
	}
	fs.IntVar(&f.width, "width", 0, "image width in pixels")
	fs.IntVar(&f.height, "height", 0, "image height in pixels")
	fs.IntVar(&f.maxCells, "max-cells", 0, "mesh cells per axis before the renderer decimates")
	fs.IntVar(&f.htmlMaxPoints, "html-max-points", 0, "vertices embedded in the HTML view")

	fs.StringVarP(&f.outputDir, "output-dir", "o", ".", "directory for the screenshot")
	fs.StringVar(&f.output, "output", "", "screenshot path (overrides --output-dir)")
	fs.StringVar(&f.heatmap, "heatmap", "", "also write a top-down heat map PNG")
	fs.StringVar(&f.html, "html", "", "also write an interactive HTML view")
}

// config loads the config file, if any, then applies changed flags.
func (f *renderFlags) config(fs *pflag.FlagSet) (*config.RenderConfig, error) {
	cfg := config.EmptyRenderConfig()
	if f.configPath != "" {
		loaded, err := config.LoadRenderConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	o := config.EmptyRenderConfig()
	floats := []struct {
		name string
		val  float64
		dst  **float64
	}{
		{"earth-radius", f.earthRadius, &o.EarthRadius},
		{"camera-distance", f.cameraDistance, &o.CameraDistance},
		{"lat-min", f.latMin, &o.LatMin},
		{"lat-max", f.latMax, &o.LatMax},
		{"lon-min", f.lonMin, &o.LonMin},
		{"lon-max", f.lonMax, &o.LonMax},
	}
	for _, fl := range floats {
		if fs.Changed(fl.name) {
			*fl.dst = config.PtrFloat64(fl.val)
		}
	}
	ints := []struct {
		name string
		val  int
		dst  **int
	}{
		{"sea-level", f.seaLevel, &o.SeaLevel},
		{"min-lake-cells", f.minLakeCells, &o.MinLakeCells},
		{"width", f.width, &o.ImageWidth},
		{"height", f.height, &o.ImageHeight},
		{"max-cells", f.maxCells, &o.RenderMaxCellsPerAxis},
		{"html-max-points", f.htmlMaxPoints, &o.HTMLMaxPoints},
	}
	for _, fl := range ints {
		if fs.Changed(fl.name) {
			*fl.dst = config.PtrInt(fl.val)
		}
	}
	if fs.Changed("sea-level-order") {
		o.SeaLevelOrder = config.PtrString(f.seaLevelOrder)
	}
	if fs.Changed("latitude-convention") {
		o.LatitudeConvention = config.PtrString(f.latitudeConvention)
	}
	cfg.Merge(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
