package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/topomap/internal/terrain"
)

// HTMLOptions controls WriteHTML.
type HTMLOptions struct {
	Title string
	// MaxPoints bounds the number of vertices embedded in the page.
	MaxPoints int
	// AssetsHost overrides the echarts CDN prefix when set.
	AssetsHost string
}

// WriteHTML renders an interactive 3-D surface page. Vertices carry
// (longitude, latitude, elevation, attribute); the visual map colors by
// attribute so lakes show as water regardless of their height.
func WriteHTML(w io.Writer, g *terrain.ElevationGrid, s *terrain.Surface, b terrain.GeoBounds, ctf *ColorTransferFunction, o HTMLOptions) (int, error) {
	if g.Rows != s.Rows || g.Cols != s.Cols {
		return 0, fmt.Errorf("grid %dx%d does not match surface %dx%d", g.Rows, g.Cols, s.Rows, s.Cols)
	}
	step := 1
	if o.MaxPoints > 0 {
		step = max(1, int(math.Sqrt(float64(g.Len())/float64(o.MaxPoints))))
	}
	rows := sampleAxis(g.Rows, step)
	cols := sampleAxis(g.Cols, step)
	// Each axis keeps its last index, so grow the step until the
	// vertex count fits.
	for o.MaxPoints > 0 && len(rows)*len(cols) > o.MaxPoints && step < max(g.Rows, g.Cols) {
		step++
		rows = sampleAxis(g.Rows, step)
		cols = sampleAxis(g.Cols, step)
	}

	data := make([]opts.Chart3DData, 0, len(rows)*len(cols))
	for _, i := range rows {
		lat := b.Latitude(i, g.Rows)
		for _, j := range cols {
			k := g.Index(i, j)
			data = append(data, opts.Chart3DData{
				Value: []interface{}{b.Longitude(j, g.Cols), lat, g.Elevations[k], s.Attributes[k]},
			})
		}
	}
	lo, hi := g.MinMax()

	surface := charts.NewSurface3D()
	surface.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "900px", Height: "900px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("points=%d grid=%dx%d", len(data), g.Rows, g.Cols)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "lon", Min: b.LonMin, Max: b.LonMax}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "lat", Min: b.LatMin, Max: b.LatMax}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "elevation (m)", Min: lo, Max: hi}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(ctf.Min()),
			Max:        float32(ctf.Max()),
			Dimension:  "3",
			InRange:    &opts.VisualMapInRange{Color: ctf.Hex(32)},
		}),
	)
	surface.AddSeries("terrain", data)

	if err := surface.Render(w); err != nil {
		return len(data), fmt.Errorf("render html: %w", err)
	}
	return len(data), nil
}
