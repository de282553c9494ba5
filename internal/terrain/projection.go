package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6_371_009.0

// LatitudeConvention selects how a latitude in degrees becomes the polar
// angle of the projection.
type LatitudeConvention string

const (
	// Inclination uses the latitude directly as the angle from the +Y pole.
	// This is the default and the convention the reference renders use.
	Inclination LatitudeConvention = "inclination"
	// Colatitude uses 90° − latitude, i.e. latitude measured from the equator.
	Colatitude LatitudeConvention = "colatitude"
)

// ParseLatitudeConvention accepts "" as Inclination.
func ParseLatitudeConvention(s string) (LatitudeConvention, error) {
	switch LatitudeConvention(s) {
	case "", Inclination:
		return Inclination, nil
	case Colatitude:
		return Colatitude, nil
	}
	return "", &ConfigError{Field: "latitude_convention", Msg: fmt.Sprintf("unknown value %q", s)}
}

// InclinationRad converts a latitude in degrees to the polar angle in radians.
func (c LatitudeConvention) InclinationRad(latDeg float64) float64 {
	if c == Colatitude {
		latDeg = 90 - latDeg
	}
	return latDeg * math.Pi / 180.0
}

// SpherePoint is a point in spherical coordinates. Angles are radians.
type SpherePoint struct {
	Radius      float64
	Inclination float64
	Azimuth     float64
}

// Cartesian converts p using SphericalToCartesian.
func (p SpherePoint) Cartesian() r3.Vec {
	return SphericalToCartesian(p.Radius, p.Inclination, p.Azimuth)
}

// SphericalToCartesian converts radius, inclination (angle from +Y) and
// azimuth (around +Y, measured from +Z towards +X) to Cartesian coordinates.
func SphericalToCartesian(radius, inclinationRad, azimuthRad float64) r3.Vec {
	sinInc, cosInc := math.Sincos(inclinationRad)
	sinAz, cosAz := math.Sincos(azimuthRad)
	return r3.Vec{
		X: radius * sinInc * sinAz,
		Y: radius * cosInc,
		Z: radius * sinInc * cosAz,
	}
}

// Project places a single geographic sample.
func Project(earthRadius, latDeg, lonDeg, elevation float64, conv LatitudeConvention) r3.Vec {
	return SphericalToCartesian(
		elevation+earthRadius,
		conv.InclinationRad(latDeg),
		lonDeg*math.Pi/180.0,
	)
}

// ProjectGrid returns one point per cell in row-major order, so point
// k = i*Cols + j belongs to cell (i, j). Elevations are read from g and
// never modified.
func ProjectGrid(earthRadius float64, b GeoBounds, g *ElevationGrid, conv LatitudeConvention) []r3.Vec {
	points := make([]r3.Vec, 0, g.Len())
	for i := 0; i < g.Rows; i++ {
		lat := b.Latitude(i, g.Rows)
		row := g.Row(i)
		for j, e := range row {
			points = append(points, Project(earthRadius, lat, b.Longitude(j, g.Cols), float64(e), conv))
		}
	}
	return points
}
