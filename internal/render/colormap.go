// Package render turns a terrain.Surface into images: a perspective PNG of
// the projected mesh, an orthographic heat map and an interactive HTML view.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot/palette"

	"github.com/banshee-data/topomap/internal/config"
)

// Stop is a control point of a ColorTransferFunction.
type Stop struct {
	Value float64
	Color color.NRGBA
}

// ColorTransferFunction maps a scalar attribute to a color by piecewise
// linear interpolation in RGB between stops. Values outside the stop range
// take the nearest end color.
type ColorTransferFunction struct {
	stops []Stop
	alpha float64
}

var _ palette.ColorMap = (*ColorTransferFunction)(nil)

// NewColorTransferFunction validates and copies stops. Values must be
// strictly increasing.
func NewColorTransferFunction(stops []Stop) (*ColorTransferFunction, error) {
	if len(stops) == 0 {
		return nil, errors.New("color transfer function needs at least one stop")
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Value <= stops[i-1].Value {
			return nil, fmt.Errorf("stop %d: value %g is not above %g", i, stops[i].Value, stops[i-1].Value)
		}
	}
	return &ColorTransferFunction{stops: append([]Stop(nil), stops...), alpha: 1}, nil
}

// ColorTransferFunctionFromConfig builds the ramp described by config stops.
func ColorTransferFunctionFromConfig(stops []config.ColorStop) (*ColorTransferFunction, error) {
	out := make([]Stop, 0, len(stops))
	for i, s := range stops {
		r, g, b, err := s.RGB()
		if err != nil {
			return nil, fmt.Errorf("stop %d: %w", i, err)
		}
		out = append(out, Stop{Value: s.Value, Color: color.NRGBA{R: r, G: g, B: b, A: 255}})
	}
	return NewColorTransferFunction(out)
}

// Color returns the interpolated color for v, clamped to the end stops.
func (f *ColorTransferFunction) Color(v float64) color.NRGBA {
	stops := f.stops
	n := len(stops)
	var c color.NRGBA
	switch {
	case v <= stops[0].Value:
		c = stops[0].Color
	case v >= stops[n-1].Value:
		c = stops[n-1].Color
	default:
		// First stop strictly above v; v lies in [hi-1, hi).
		hi := sort.Search(n, func(i int) bool { return stops[i].Value > v })
		a, b := stops[hi-1], stops[hi]
		t := (v - a.Value) / (b.Value - a.Value)
		c = color.NRGBA{
			R: lerp8(a.Color.R, b.Color.R, t),
			G: lerp8(a.Color.G, b.Color.G, t),
			B: lerp8(a.Color.B, b.Color.B, t),
			A: 255,
		}
	}
	c.A = uint8(f.alpha*255 + 0.5)
	return c
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// At implements palette.ColorMap. Out-of-range values report
// palette.ErrUnderflow or palette.ErrOverflow alongside the clamped color.
func (f *ColorTransferFunction) At(v float64) (color.Color, error) {
	c := f.Color(v)
	switch {
	case v < f.Min():
		return c, palette.ErrUnderflow
	case v > f.Max():
		return c, palette.ErrOverflow
	}
	return c, nil
}

// Min is the first stop value.
func (f *ColorTransferFunction) Min() float64 { return f.stops[0].Value }

// Max is the last stop value.
func (f *ColorTransferFunction) Max() float64 { return f.stops[len(f.stops)-1].Value }

// SetMin moves the first stop, rescaling the others linearly.
func (f *ColorTransferFunction) SetMin(v float64) { f.rescale(v, f.Max()) }

// SetMax moves the last stop, rescaling the others linearly.
func (f *ColorTransferFunction) SetMax(v float64) { f.rescale(f.Min(), v) }

func (f *ColorTransferFunction) rescale(lo, hi float64) {
	oldLo, oldHi := f.Min(), f.Max()
	if oldHi == oldLo {
		f.stops[0].Value = lo
		return
	}
	for i := range f.stops {
		t := (f.stops[i].Value - oldLo) / (oldHi - oldLo)
		f.stops[i].Value = lo + t*(hi-lo)
	}
}

func (f *ColorTransferFunction) Alpha() float64 { return f.alpha }

func (f *ColorTransferFunction) SetAlpha(a float64) {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	f.alpha = a
}

// Palette samples n colors evenly between Min and Max.
func (f *ColorTransferFunction) Palette(n int) palette.Palette {
	if n < 1 {
		n = 1
	}
	cols := make(rampPalette, n)
	lo, hi := f.Min(), f.Max()
	for i := range cols {
		v := lo
		if n > 1 {
			v = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		cols[i] = f.Color(v)
	}
	return cols
}

// Hex returns Palette(n) as "#RRGGBB" strings.
func (f *ColorTransferFunction) Hex(n int) []string {
	cols := f.Palette(n).Colors()
	out := make([]string, len(cols))
	for i, c := range cols {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		out[i] = fmt.Sprintf("#%02X%02X%02X", nc.R, nc.G, nc.B)
	}
	return out
}

type rampPalette []color.Color

func (p rampPalette) Colors() []color.Color { return p }
