package terrain

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCameraDistance is the standoff of the camera above the surface at
// the bounds midpoint, in meters.
const DefaultCameraDistance = 500_000.0

// Camera describes a perspective view of the projected surface.
type Camera struct {
	Position   r3.Vec
	FocalPoint r3.Vec
	ViewUp     r3.Vec
	// ViewAngle is the full vertical field of view in degrees.
	ViewAngle float64
	Near, Far float64
}

// CameraFor aims a camera at the bounds midpoint on the sphere of radius
// earthRadius, from standoff meters straight above it. Both points go
// through Project so they share the mesh's latitude convention.
func CameraFor(earthRadius, standoff float64, b GeoBounds, conv LatitudeConvention) Camera {
	lat, lon := b.Mid()
	return Camera{
		Position:   Project(earthRadius+standoff, lat, lon, 0, conv),
		FocalPoint: Project(earthRadius, lat, lon, 0, conv),
		ViewUp:     r3.Vec{Y: 1},
		ViewAngle:  30,
		Near:       0.1,
		Far:        math.Max(1_000_000, 2*standoff),
	}
}

// Basis returns the camera's orthonormal right, up and forward vectors.
// If ViewUp is parallel to the view direction, +Z is used instead.
func (c Camera) Basis() (right, up, forward r3.Vec) {
	forward = r3.Unit(r3.Sub(c.FocalPoint, c.Position))
	right = r3.Cross(forward, c.ViewUp)
	if r3.Norm(right) < 1e-12 {
		right = r3.Cross(forward, r3.Vec{Z: 1})
	}
	right = r3.Unit(right)
	up = r3.Cross(right, forward)
	return right, up, forward
}

// Distance is the length from the camera to its focal point.
func (c Camera) Distance() float64 {
	return r3.Norm(r3.Sub(c.FocalPoint, c.Position))
}

// ViewTransform maps world points into camera space for a given aspect.
type ViewTransform struct {
	origin             r3.Vec
	right, up, forward r3.Vec
	focal              float64
	near, far          float64
}

// View builds the transform used by renderers.
func (c Camera) View() ViewTransform {
	right, up, forward := c.Basis()
	return ViewTransform{
		origin:  c.Position,
		right:   right,
		up:      up,
		forward: forward,
		focal:   1 / math.Tan(c.ViewAngle*math.Pi/360.0),
		near:    c.Near,
		far:     c.Far,
	}
}

// Project maps p to normalized device coordinates in [-1, 1] (x right,
// y up) and returns the depth along the view axis. ok is false when the
// point falls outside the clipping range.
func (v ViewTransform) Project(p r3.Vec) (x, y, depth float64, ok bool) {
	d := r3.Sub(p, v.origin)
	depth = r3.Dot(d, v.forward)
	if depth < v.near || depth > v.far {
		return 0, 0, depth, false
	}
	x = r3.Dot(d, v.right) / depth * v.focal
	y = r3.Dot(d, v.up) / depth * v.focal
	return x, y, depth, true
}

// Forward is the unit view direction.
func (v ViewTransform) Forward() r3.Vec { return v.forward }
