// Package config loads topomap render settings from JSON or TOML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/banshee-data/topomap/internal/terrain"
)

// DefaultConfigPath is the path to the canonical render defaults file.
const DefaultConfigPath = "config/topomap.defaults.json"

const maxConfigBytes = 1 * 1024 * 1024

// Output defaults shared with the renderers.
const (
	DefaultImageSize             = 800
	DefaultRenderMaxCellsPerAxis = 400
	DefaultHTMLMaxPoints         = 20000
)

// ColorStop is one control point of the elevation color ramp. Color is a
// "#RRGGBB" hex string.
type ColorStop struct {
	Value float64 `json:"value" toml:"value"`
	Color string  `json:"color" toml:"color"`
}

// RGB parses Color.
func (s ColorStop) RGB() (r, g, b uint8, err error) {
	h := strings.TrimPrefix(s.Color, "#")
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("color %q must be #RRGGBB", s.Color)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("color %q: %w", s.Color, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// RenderConfig holds every tunable of a render run. Fields are pointers so
// a partial file only overrides what it names; the Get* methods supply
// defaults for the rest.
type RenderConfig struct {
	EarthRadius    *float64 `json:"earth_radius,omitempty" toml:"earth_radius"`
	CameraDistance *float64 `json:"camera_distance,omitempty" toml:"camera_distance"`

	// Sampled rectangle, degrees.
	LatMin *float64 `json:"lat_min,omitempty" toml:"lat_min"`
	LatMax *float64 `json:"lat_max,omitempty" toml:"lat_max"`
	LonMin *float64 `json:"lon_min,omitempty" toml:"lon_min"`
	LonMax *float64 `json:"lon_max,omitempty" toml:"lon_max"`

	// Water classification
	SeaLevel           *int    `json:"sea_level,omitempty" toml:"sea_level"`
	SeaLevelOrder      *string `json:"sea_level_order,omitempty" toml:"sea_level_order"`
	MinLakeCells       *int    `json:"min_lake_cells,omitempty" toml:"min_lake_cells"`
	LatitudeConvention *string `json:"latitude_convention,omitempty" toml:"latitude_convention"`

	// Output
	ImageWidth            *int        `json:"image_width,omitempty" toml:"image_width"`
	ImageHeight           *int        `json:"image_height,omitempty" toml:"image_height"`
	RenderMaxCellsPerAxis *int        `json:"render_max_cells_per_axis,omitempty" toml:"render_max_cells_per_axis"`
	HTMLMaxPoints         *int        `json:"html_max_points,omitempty" toml:"html_max_points"`
	ColorStops            []ColorStop `json:"color_stops,omitempty" toml:"color_stops"`
}

// DefaultColorStops is the reference ramp: water, two greens, rock, snow.
func DefaultColorStops() []ColorStop {
	return []ColorStop{
		{Value: 0, Color: "#837DFF"},
		{Value: 1, Color: "#285324"},
		{Value: 500, Color: "#38B72A"},
		{Value: 900, Color: "#E2B85D"},
		{Value: 1600, Color: "#FFFFFF"},
	}
}

// EmptyRenderConfig returns a RenderConfig with all fields unset.
func EmptyRenderConfig() *RenderConfig {
	return &RenderConfig{}
}

// LoadRenderConfig loads a RenderConfig from a .json or .toml file.
// Fields omitted from the file keep their defaults.
func LoadRenderConfig(path string) (*RenderConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigBytes)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRenderConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so package tests can find it. Panics on failure.
func MustLoadDefaultConfig() *RenderConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRenderConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge copies every field set in o onto c. o wins.
func (c *RenderConfig) Merge(o *RenderConfig) {
	if o == nil {
		return
	}
	setF := func(dst **float64, src *float64) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	setI := func(dst **int, src *int) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	setS := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	setF(&c.EarthRadius, o.EarthRadius)
	setF(&c.CameraDistance, o.CameraDistance)
	setF(&c.LatMin, o.LatMin)
	setF(&c.LatMax, o.LatMax)
	setF(&c.LonMin, o.LonMin)
	setF(&c.LonMax, o.LonMax)
	setI(&c.SeaLevel, o.SeaLevel)
	setS(&c.SeaLevelOrder, o.SeaLevelOrder)
	setI(&c.MinLakeCells, o.MinLakeCells)
	setS(&c.LatitudeConvention, o.LatitudeConvention)
	setI(&c.ImageWidth, o.ImageWidth)
	setI(&c.ImageHeight, o.ImageHeight)
	setI(&c.RenderMaxCellsPerAxis, o.RenderMaxCellsPerAxis)
	setI(&c.HTMLMaxPoints, o.HTMLMaxPoints)
	if len(o.ColorStops) > 0 {
		c.ColorStops = append([]ColorStop(nil), o.ColorStops...)
	}
}

// Validate reports every invalid value, not just the first.
func (c *RenderConfig) Validate() error {
	var errs error

	if c.EarthRadius != nil && *c.EarthRadius <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("earth_radius must be positive, got %g", *c.EarthRadius))
	}
	if c.CameraDistance != nil && *c.CameraDistance <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("camera_distance must be positive, got %g", *c.CameraDistance))
	}
	if err := c.Bounds().Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.SeaLevelOrder != nil {
		if _, err := terrain.ParseSeaLevelOrder(*c.SeaLevelOrder); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.LatitudeConvention != nil {
		if _, err := terrain.ParseLatitudeConvention(*c.LatitudeConvention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.MinLakeCells != nil && *c.MinLakeCells < 1 {
		errs = multierr.Append(errs, fmt.Errorf("min_lake_cells must be >= 1, got %d", *c.MinLakeCells))
	}
	if c.ImageWidth != nil && *c.ImageWidth < 1 {
		errs = multierr.Append(errs, fmt.Errorf("image_width must be >= 1, got %d", *c.ImageWidth))
	}
	if c.ImageHeight != nil && *c.ImageHeight < 1 {
		errs = multierr.Append(errs, fmt.Errorf("image_height must be >= 1, got %d", *c.ImageHeight))
	}
	if c.RenderMaxCellsPerAxis != nil && *c.RenderMaxCellsPerAxis < 2 {
		errs = multierr.Append(errs, fmt.Errorf("render_max_cells_per_axis must be >= 2, got %d", *c.RenderMaxCellsPerAxis))
	}
	if c.HTMLMaxPoints != nil && *c.HTMLMaxPoints < 1 {
		errs = multierr.Append(errs, fmt.Errorf("html_max_points must be >= 1, got %d", *c.HTMLMaxPoints))
	}
	for i, s := range c.ColorStops {
		if _, _, _, err := s.RGB(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("color_stops[%d]: %w", i, err))
		}
		if i > 0 && s.Value <= c.ColorStops[i-1].Value {
			errs = multierr.Append(errs, fmt.Errorf("color_stops[%d]: value %g must be greater than %g", i, s.Value, c.ColorStops[i-1].Value))
		}
	}
	return errs
}

// GetEarthRadius returns the sphere radius in meters.
func (c *RenderConfig) GetEarthRadius() float64 {
	if c.EarthRadius == nil {
		return terrain.EarthRadius
	}
	return *c.EarthRadius
}

// GetCameraDistance returns the camera standoff in meters.
func (c *RenderConfig) GetCameraDistance() float64 {
	if c.CameraDistance == nil {
		return terrain.DefaultCameraDistance
	}
	return *c.CameraDistance
}

// Bounds returns the sampled rectangle, defaulting to the reference region.
func (c *RenderConfig) Bounds() terrain.GeoBounds {
	b := terrain.GeoBounds{LatMin: 45, LatMax: 47.5, LonMin: 5, LonMax: 7.5}
	if c.LatMin != nil {
		b.LatMin = *c.LatMin
	}
	if c.LatMax != nil {
		b.LatMax = *c.LatMax
	}
	if c.LonMin != nil {
		b.LonMin = *c.LonMin
	}
	if c.LonMax != nil {
		b.LonMax = *c.LonMax
	}
	return b
}

// GetSeaLevel returns the sea level in meters.
func (c *RenderConfig) GetSeaLevel() int {
	if c.SeaLevel == nil {
		return 0
	}
	return *c.SeaLevel
}

// GetSeaLevelOrder returns the parsed clamping order, falling back to the
// default on an unparsable value.
func (c *RenderConfig) GetSeaLevelOrder() terrain.SeaLevelOrder {
	if c.SeaLevelOrder == nil {
		return terrain.AfterLakes
	}
	o, err := terrain.ParseSeaLevelOrder(*c.SeaLevelOrder)
	if err != nil {
		return terrain.AfterLakes
	}
	return o
}

// GetMinLakeCells returns the lake size threshold.
func (c *RenderConfig) GetMinLakeCells() int {
	if c.MinLakeCells == nil {
		return terrain.DefaultMinLakeCells
	}
	return *c.MinLakeCells
}

// GetLatitudeConvention returns the parsed convention, default Inclination.
func (c *RenderConfig) GetLatitudeConvention() terrain.LatitudeConvention {
	if c.LatitudeConvention == nil {
		return terrain.Inclination
	}
	conv, err := terrain.ParseLatitudeConvention(*c.LatitudeConvention)
	if err != nil {
		return terrain.Inclination
	}
	return conv
}

// WaterOptions bundles the classifier settings.
func (c *RenderConfig) WaterOptions() terrain.WaterOptions {
	return terrain.WaterOptions{
		MinLakeCells: c.GetMinLakeCells(),
		SeaLevel:     c.GetSeaLevel(),
		Order:        c.GetSeaLevelOrder(),
	}
}

// GetImageWidth returns the PNG width in pixels.
func (c *RenderConfig) GetImageWidth() int {
	if c.ImageWidth == nil {
		return DefaultImageSize
	}
	return *c.ImageWidth
}

// GetImageHeight returns the PNG height in pixels.
func (c *RenderConfig) GetImageHeight() int {
	if c.ImageHeight == nil {
		return DefaultImageSize
	}
	return *c.ImageHeight
}

// GetRenderMaxCellsPerAxis bounds the quads drawn along either grid axis.
func (c *RenderConfig) GetRenderMaxCellsPerAxis() int {
	if c.RenderMaxCellsPerAxis == nil {
		return DefaultRenderMaxCellsPerAxis
	}
	return *c.RenderMaxCellsPerAxis
}

// GetHTMLMaxPoints caps the points written to the HTML view.
func (c *RenderConfig) GetHTMLMaxPoints() int {
	if c.HTMLMaxPoints == nil {
		return DefaultHTMLMaxPoints
	}
	return *c.HTMLMaxPoints
}

// GetColorStops returns the configured ramp or DefaultColorStops.
func (c *RenderConfig) GetColorStops() []ColorStop {
	if len(c.ColorStops) == 0 {
		return DefaultColorStops()
	}
	return c.ColorStops
}

// ScreenshotName is the PNG file name for the configured sea level.
func (c *RenderConfig) ScreenshotName() string {
	return fmt.Sprintf("Map_Screenshot_Sea_Level_%d.png", c.GetSeaLevel())
}

// Helper functions to create pointers
func PtrFloat64(v float64) *float64 { return &v }
func PtrInt(v int) *int             { return &v }
func PtrString(v string) *string    { return &v }
