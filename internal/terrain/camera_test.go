package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCameraFor(t *testing.T) {
	cam := CameraFor(EarthRadius, DefaultCameraDistance, swissBounds, Inclination)

	assert.InDelta(t, EarthRadius, r3.Norm(cam.FocalPoint), 1e-6)
	assert.InDelta(t, EarthRadius+DefaultCameraDistance, r3.Norm(cam.Position), 1e-6)
	assert.InDelta(t, DefaultCameraDistance, cam.Distance(), 1e-6)

	want := r3.Vec{X: 501025.74922178837, Y: 4405635.90200634, Z: 4574833.458788475}
	assertVecRel(t, want, cam.FocalPoint, 1e-9)

	// Camera and focal point lie on the same ray from the origin.
	cross := r3.Cross(r3.Unit(cam.Position), r3.Unit(cam.FocalPoint))
	assert.InDelta(t, 0, r3.Norm(cross), 1e-12)
}

func TestCameraBasis(t *testing.T) {
	cam := CameraFor(EarthRadius, DefaultCameraDistance, swissBounds, Inclination)
	right, up, forward := cam.Basis()

	for _, v := range []r3.Vec{right, up, forward} {
		assert.InDelta(t, 1, r3.Norm(v), 1e-12)
	}
	assert.InDelta(t, 0, r3.Dot(right, up), 1e-12)
	assert.InDelta(t, 0, r3.Dot(right, forward), 1e-12)
	assert.InDelta(t, 0, r3.Dot(up, forward), 1e-12)
	assert.Greater(t, up.Y, 0.0, "view-up keeps +Y upward on screen")
}

func TestCameraBasis_DegenerateUp(t *testing.T) {
	cam := Camera{Position: r3.Vec{Y: 10}, FocalPoint: r3.Vec{}, ViewUp: r3.Vec{Y: 1}, ViewAngle: 30, Near: 0.1, Far: 100}
	right, up, _ := cam.Basis()
	assert.InDelta(t, 1, r3.Norm(right), 1e-12)
	assert.InDelta(t, 1, r3.Norm(up), 1e-12)
}

func TestViewTransform_Project(t *testing.T) {
	cam := CameraFor(EarthRadius, DefaultCameraDistance, swissBounds, Inclination)
	view := cam.View()

	x, y, depth, ok := view.Project(cam.FocalPoint)
	assert.True(t, ok)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
	assert.InDelta(t, DefaultCameraDistance, depth, 1e-6)

	// A corner of the region lands near the frame edge.
	corner := Project(EarthRadius, swissBounds.LatMin, swissBounds.LonMin, 0, Inclination)
	x, y, _, ok = view.Project(corner)
	assert.True(t, ok)
	assert.Less(t, x*x+y*y, 4.0)

	// Behind the camera is clipped.
	_, _, _, ok = view.Project(r3.Scale(2, cam.Position))
	assert.False(t, ok)
}
