// Package terrain owns the elevation model of a topomap run.
//
// Responsibilities: parsing elevation grids, projecting grid cells from
// spherical (latitude, longitude, elevation) to Cartesian coordinates,
// water-body classification and camera geometry.
// Key types: ElevationGrid, GeoBounds, Surface, WaterResult, Camera.
//
// Geometry and color are kept in separate arrays: the classifier never
// mutates the grid it is given, so lake cells are always placed at their
// true elevation even though they are colored as water.
//
// No rendering or database code is allowed in this package.
package terrain
