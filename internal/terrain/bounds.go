package terrain

import "fmt"

// GeoBounds is the sampled rectangle in degrees.
type GeoBounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Validate checks that both spans are non-degenerate.
func (b GeoBounds) Validate() error {
	if !(b.LatMin < b.LatMax) {
		return &ConfigError{Field: "latitude", Msg: fmt.Sprintf("lat_min %g must be < lat_max %g", b.LatMin, b.LatMax)}
	}
	if !(b.LonMin < b.LonMax) {
		return &ConfigError{Field: "longitude", Msg: fmt.Sprintf("lon_min %g must be < lon_max %g", b.LonMin, b.LonMax)}
	}
	return nil
}

// Latitude returns the latitude of row i in a grid with the given row count.
func (b GeoBounds) Latitude(i, rows int) float64 {
	return b.LatMin + float64(i)*(b.LatMax-b.LatMin)/float64(rows-1)
}

// Longitude returns the longitude of column j in a grid with the given column count.
func (b GeoBounds) Longitude(j, cols int) float64 {
	return b.LonMin + float64(j)*(b.LonMax-b.LonMin)/float64(cols-1)
}

// Mid returns the center of the rectangle.
func (b GeoBounds) Mid() (lat, lon float64) {
	return (b.LatMin + b.LatMax) / 2, (b.LonMin + b.LonMax) / 2
}
