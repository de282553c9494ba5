package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/topomap/internal/config"
	"github.com/banshee-data/topomap/internal/terrain"
)

// SceneOptions configures RenderScene.
type SceneOptions struct {
	Width, Height int
	// MaxCellsPerAxis caps the mesh resolution; larger grids are sampled
	// with a uniform stride (edge rows and columns are always kept).
	MaxCellsPerAxis int
	Background      color.Color
	// Ambient is the light floor in [0, 1]; the rest is a headlight
	// diffuse term.
	Ambient float64
}

// DefaultSceneOptions matches the reference screenshot.
func DefaultSceneOptions() SceneOptions {
	return SceneOptions{
		Width:           config.DefaultImageSize,
		Height:          config.DefaultImageSize,
		MaxCellsPerAxis: config.DefaultRenderMaxCellsPerAxis,
		Background:      color.Black,
		Ambient:         0.25,
	}
}

// SceneStats summarises a render.
type SceneStats struct {
	Stride int
	Quads  int
	Culled int
}

type quad struct {
	pts   [4]vg.Point
	depth float64
	fill  color.NRGBA
}

// RenderScene draws s as seen from cam and writes a PNG to w. Quads are
// painted far to near; every quad is filled with the mean of its corner
// colors, shaded by the angle between its normal and the view direction.
func RenderScene(w io.Writer, s *terrain.Surface, cam terrain.Camera, ctf *ColorTransferFunction, opts SceneOptions) (SceneStats, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return SceneStats{}, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}

	stride := axisStride(s.Rows, s.Cols, opts.MaxCellsPerAxis)
	rows := sampleAxis(s.Rows, stride)
	cols := sampleAxis(s.Cols, stride)
	stats := SceneStats{Stride: stride}

	view := cam.View()
	halfW, halfH := float64(opts.Width)/2, float64(opts.Height)/2

	quads := make([]quad, 0, (len(rows)-1)*(len(cols)-1))
	for a := 0; a+1 < len(rows); a++ {
		for b := 0; b+1 < len(cols); b++ {
			idx := [4]int{
				s.Index(rows[a], cols[b]),
				s.Index(rows[a], cols[b+1]),
				s.Index(rows[a+1], cols[b+1]),
				s.Index(rows[a+1], cols[b]),
			}
			q, ok := buildQuad(s, idx, view, ctf, opts.Ambient, halfW, halfH)
			if !ok {
				stats.Culled++
				continue
			}
			quads = append(quads, q)
		}
	}
	sort.Slice(quads, func(i, j int) bool { return quads[i].depth > quads[j].depth })
	stats.Quads = len(quads)

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width), vg.Length(opts.Height)),
		vgimg.UseDPI(72),
		vgimg.UseBackgroundColor(opts.Background),
	)
	c.SetLineWidth(vg.Points(0.5))
	for _, q := range quads {
		var p vg.Path
		p.Move(q.pts[0])
		p.Line(q.pts[1])
		p.Line(q.pts[2])
		p.Line(q.pts[3])
		p.Close()
		c.SetColor(q.fill)
		c.Fill(p)
		// Stroking with the fill color hides anti-aliasing seams.
		c.Stroke(p)
	}

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return stats, fmt.Errorf("write png: %w", err)
	}
	return stats, nil
}

func buildQuad(s *terrain.Surface, idx [4]int, view terrain.ViewTransform, ctf *ColorTransferFunction, ambient, halfW, halfH float64) (quad, bool) {
	var q quad
	var r, g, b float64
	for n, k := range idx {
		x, y, depth, ok := view.Project(s.Points[k])
		if !ok {
			return quad{}, false
		}
		// NDC is normalised by the vertical field of view, so both axes
		// scale by the half height.
		q.pts[n] = vg.Point{X: vg.Length(halfW + x*halfH), Y: vg.Length(halfH + y*halfH)}
		q.depth += depth / 4

		c := ctf.Color(s.Attributes[k])
		r += float64(c.R) / 4
		g += float64(c.G) / 4
		b += float64(c.B) / 4
	}

	p0, p1, p3 := s.Points[idx[0]], s.Points[idx[1]], s.Points[idx[3]]
	normal := r3.Cross(r3.Sub(p1, p0), r3.Sub(p3, p0))
	shade := 1.0
	if n := r3.Norm(normal); n > 0 {
		lambert := math.Abs(r3.Dot(r3.Scale(1/n, normal), view.Forward()))
		shade = ambient + (1-ambient)*lambert
	}
	q.fill = color.NRGBA{
		R: uint8(math.Min(255, r*shade+0.5)),
		G: uint8(math.Min(255, g*shade+0.5)),
		B: uint8(math.Min(255, b*shade+0.5)),
		A: 255,
	}
	return q, true
}

// axisStride is the sampling step applied to both axes.
func axisStride(rows, cols, maxCells int) int {
	if maxCells < 2 {
		return 1
	}
	longest := max(rows, cols) - 1
	return max(1, int(math.Ceil(float64(longest)/float64(maxCells))))
}

// sampleAxis returns indices 0, step, 2*step, ... always ending at n-1.
func sampleAxis(n, step int) []int {
	step = max(1, step)
	out := make([]int, 0, (n-1)/step+2)
	for i := 0; i < n-1; i += step {
		out = append(out, i)
	}
	return append(out, n-1)
}
