package terrain

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is what renderers consume: a structured grid of points with a
// parallel color attribute. Points[k] and Attributes[k] describe the same
// cell, k = i*Cols + j.
type Surface struct {
	Rows, Cols int
	Points     []r3.Vec
	Attributes []float64
}

// NewSurface pairs points and attributes, rejecting mismatched lengths.
func NewSurface(rows, cols int, points []r3.Vec, attrs []float64) (*Surface, error) {
	n := rows * cols
	if len(points) != n {
		return nil, fmt.Errorf("surface %dx%d: have %d points, want %d", rows, cols, len(points), n)
	}
	if len(attrs) != n {
		return nil, fmt.Errorf("surface %dx%d: have %d attributes, want %d", rows, cols, len(attrs), n)
	}
	return &Surface{Rows: rows, Cols: cols, Points: points, Attributes: attrs}, nil
}

// BuildSurface projects g and classifies its water in one step.
func BuildSurface(earthRadius float64, b GeoBounds, g *ElevationGrid, conv LatitudeConvention, opts WaterOptions) (*Surface, WaterResult, error) {
	if err := b.Validate(); err != nil {
		return nil, WaterResult{}, err
	}
	points := ProjectGrid(earthRadius, b, g, conv)
	water := ClassifyWater(g, opts)
	s, err := NewSurface(g.Rows, g.Cols, points, water.Attributes)
	if err != nil {
		return nil, WaterResult{}, err
	}
	return s, water, nil
}

// Index returns the offset of cell (i, j).
func (s *Surface) Index(i, j int) int { return i*s.Cols + j }

// AttributeRange returns the smallest and largest attribute.
func (s *Surface) AttributeRange() (lo, hi float64) {
	lo, hi = s.Attributes[0], s.Attributes[0]
	for _, a := range s.Attributes[1:] {
		lo = min(lo, a)
		hi = max(hi, a)
	}
	return lo, hi
}
