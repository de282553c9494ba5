package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/topomap/internal/terrain"
)

// paletteSize is the number of discrete colors the heat map samples.
const paletteSize = 256

// surfaceGrid exposes surface attributes as a plotter.GridXYZ with
// longitude on X and latitude on Y.
type surfaceGrid struct {
	s *terrain.Surface
	b terrain.GeoBounds
}

func (g surfaceGrid) Dims() (c, r int)   { return g.s.Cols, g.s.Rows }
func (g surfaceGrid) Z(c, r int) float64 { return g.s.Attributes[g.s.Index(r, c)] }
func (g surfaceGrid) X(c int) float64    { return g.b.Longitude(c, g.s.Cols) }
func (g surfaceGrid) Y(r int) float64    { return g.b.Latitude(r, g.s.Rows) }

// HeatmapOptions controls WriteHeatmap.
type HeatmapOptions struct {
	Title         string
	Width, Height vg.Length
}

// WriteHeatmap draws a top-down color map of the surface attributes as PNG.
func WriteHeatmap(w io.Writer, s *terrain.Surface, b terrain.GeoBounds, ctf *ColorTransferFunction, opts HeatmapOptions) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if opts.Width <= 0 {
		opts.Width = 8 * vg.Inch
	}
	if opts.Height <= 0 {
		opts.Height = 8 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Longitude (deg)"
	p.Y.Label.Text = "Latitude (deg)"

	h := plotter.NewHeatMap(surfaceGrid{s: s, b: b}, ctf.Palette(paletteSize))
	h.Min = ctf.Min()
	h.Max = ctf.Max()
	h.Underflow = ctf.Color(ctf.Min())
	h.Overflow = ctf.Color(ctf.Max())
	h.Rasterized = true
	p.Add(h)

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("heat map writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heat map: %w", err)
	}
	return nil
}
