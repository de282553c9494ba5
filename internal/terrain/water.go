package terrain

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// DefaultMinLakeCells is the smallest flat region reported as water.
const DefaultMinLakeCells = 512

// WaterAttribute is the color attribute assigned to water cells.
const WaterAttribute = 0.0

// SeaLevelOrder decides whether sea-level clamping happens before or after
// lake detection.
type SeaLevelOrder string

const (
	// AfterLakes detects lakes on raw elevations, then clamps the color
	// attribute of cells below sea level. Default.
	AfterLakes SeaLevelOrder = "after_lakes"
	// BeforeLakes clamps a copy of the grid to sea level first, so a
	// contiguous sea floor is detected as one flat region.
	BeforeLakes SeaLevelOrder = "before_lakes"
)

// ParseSeaLevelOrder accepts "" as AfterLakes.
func ParseSeaLevelOrder(s string) (SeaLevelOrder, error) {
	switch SeaLevelOrder(s) {
	case "", AfterLakes:
		return AfterLakes, nil
	case BeforeLakes:
		return BeforeLakes, nil
	}
	return "", &ConfigError{Field: "sea_level_order", Msg: fmt.Sprintf("unknown value %q", s)}
}

// WaterOptions configures ClassifyWater.
type WaterOptions struct {
	// MinLakeCells is the minimum region size kept as a lake. Regions
	// with fewer cells are treated as terrain.
	MinLakeCells int
	// SeaLevel: cells strictly below it get the water attribute.
	SeaLevel int
	Order    SeaLevelOrder
}

// DefaultWaterOptions returns the reference policy.
func DefaultWaterOptions() WaterOptions {
	return WaterOptions{MinLakeCells: DefaultMinLakeCells, SeaLevel: 0, Order: AfterLakes}
}

// Lake is one retained flat region.
type Lake struct {
	Label     int
	Elevation int
	Cells     int

	RowMin, RowMax int
	ColMin, ColMax int

	// Centroid in fractional grid coordinates.
	CentroidRow, CentroidCol float64
}

// Centroid converts the grid centroid to geographic degrees.
func (l Lake) Centroid(b GeoBounds, rows, cols int) (lat, lon float64) {
	lat = b.LatMin + l.CentroidRow*(b.LatMax-b.LatMin)/float64(rows-1)
	lon = b.LonMin + l.CentroidCol*(b.LonMax-b.LonMin)/float64(cols-1)
	return lat, lon
}

// WaterResult is the classifier output. Attributes and IsLake are
// row-major and parallel to the grid.
type WaterResult struct {
	Attributes []float64
	IsLake     []bool
	Lakes      []Lake
	// Regions is the number of connected flat regions, lakes or not.
	Regions int
}

// LakeCells counts cells classified as lake.
func (w WaterResult) LakeCells() int {
	n := 0
	for _, l := range w.Lakes {
		n += l.Cells
	}
	return n
}

// ClassifyWater labels 4-connected regions of equal elevation, keeps those
// with at least opts.MinLakeCells cells as lakes, and computes the color
// attribute of every cell. g is not modified.
func ClassifyWater(g *ElevationGrid, opts WaterOptions) WaterResult {
	labelled := g
	if opts.Order == BeforeLakes {
		labelled = g.Clone()
		for k, e := range labelled.Elevations {
			if e < opts.SeaLevel {
				labelled.Elevations[k] = opts.SeaLevel
			}
		}
	}

	labels, sizes := LabelRegions(labelled)

	res := WaterResult{
		Attributes: make([]float64, g.Len()),
		IsLake:     make([]bool, g.Len()),
		Regions:    len(sizes) - 1,
	}

	lakeIdx := make(map[int]int)
	for k, lbl := range labels {
		if sizes[lbl] < opts.MinLakeCells {
			continue
		}
		res.IsLake[k] = true
		i, j := k/g.Cols, k%g.Cols
		li, ok := lakeIdx[lbl]
		if !ok {
			li = len(res.Lakes)
			lakeIdx[lbl] = li
			res.Lakes = append(res.Lakes, Lake{
				Label:     lbl,
				Elevation: labelled.Elevations[k],
				RowMin:    i,
				RowMax:    i,
				ColMin:    j,
				ColMax:    j,
			})
		}
		l := &res.Lakes[li]
		l.Cells++
		l.CentroidRow += float64(i)
		l.CentroidCol += float64(j)
		l.RowMin, l.RowMax = min(l.RowMin, i), max(l.RowMax, i)
		l.ColMin, l.ColMax = min(l.ColMin, j), max(l.ColMax, j)
	}
	for i := range res.Lakes {
		l := &res.Lakes[i]
		l.CentroidRow /= float64(l.Cells)
		l.CentroidCol /= float64(l.Cells)
	}

	for k, e := range g.Elevations {
		switch {
		case res.IsLake[k], e < opts.SeaLevel:
			res.Attributes[k] = WaterAttribute
		default:
			res.Attributes[k] = float64(e)
		}
	}
	return res
}

// LabelRegions assigns a label to every cell so that two cells share a label
// iff they are joined by a path of edge-adjacent cells of equal elevation.
// Labels start at 1 and are numbered in raster order of each region's first
// cell. sizes[label] is the cell count of that region; sizes[0] is unused.
func LabelRegions(g *ElevationGrid) (labels []int, sizes []int) {
	// Only cells with an equal neighbour enter the graph; everything else
	// is a region of one cell.
	eg := simple.NewUndirectedGraph()
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			k := g.Index(i, j)
			e := g.Elevations[k]
			if j+1 < g.Cols && g.Elevations[k+1] == e {
				eg.SetEdge(eg.NewEdge(simple.Node(k), simple.Node(k+1)))
			}
			if i+1 < g.Rows && g.Elevations[k+g.Cols] == e {
				eg.SetEdge(eg.NewEdge(simple.Node(k), simple.Node(k+g.Cols)))
			}
		}
	}

	components := topo.ConnectedComponents(eg)
	compOf := make(map[int64]int, eg.Nodes().Len())
	for ci, comp := range components {
		for _, n := range comp {
			compOf[n.ID()] = ci
		}
	}

	labels = make([]int, g.Len())
	sizes = []int{0}
	for k := range labels {
		if labels[k] != 0 {
			continue
		}
		next := len(sizes)
		ci, ok := compOf[int64(k)]
		if !ok {
			labels[k] = next
			sizes = append(sizes, 1)
			continue
		}
		for _, n := range components[ci] {
			labels[n.ID()] = next
		}
		sizes = append(sizes, len(components[ci]))
	}
	return labels, sizes
}
