package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"

	"github.com/banshee-data/topomap/internal/config"
)

func defaultCTF(t *testing.T) *ColorTransferFunction {
	t.Helper()
	ctf, err := ColorTransferFunctionFromConfig(config.DefaultColorStops())
	require.NoError(t, err)
	return ctf
}

func TestColorTransferFunction_Stops(t *testing.T) {
	ctf := defaultCTF(t)

	tests := []struct {
		v    float64
		want color.NRGBA
	}{
		{0, color.NRGBA{0x83, 0x7D, 0xFF, 0xFF}},
		{1, color.NRGBA{0x28, 0x53, 0x24, 0xFF}},
		{500, color.NRGBA{0x38, 0xB7, 0x2A, 0xFF}},
		{900, color.NRGBA{0xE2, 0xB8, 0x5D, 0xFF}},
		{1600, color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}},
		// Clamped at both ends.
		{-50, color.NRGBA{0x83, 0x7D, 0xFF, 0xFF}},
		{9000, color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ctf.Color(tt.v), "v=%g", tt.v)
	}
}

func TestColorTransferFunction_Interpolates(t *testing.T) {
	ctf, err := NewColorTransferFunction([]Stop{
		{Value: 0, Color: color.NRGBA{0, 0, 0, 255}},
		{Value: 100, Color: color.NRGBA{200, 100, 50, 255}},
	})
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{100, 50, 25, 255}, ctf.Color(50))
	assert.Equal(t, color.NRGBA{50, 25, 13, 255}, ctf.Color(25))
}

func TestNewColorTransferFunction_Rejects(t *testing.T) {
	_, err := NewColorTransferFunction(nil)
	assert.Error(t, err)

	_, err = NewColorTransferFunction([]Stop{{Value: 5}, {Value: 5}})
	assert.Error(t, err)

	_, err = ColorTransferFunctionFromConfig([]config.ColorStop{{Value: 0, Color: "blue"}})
	assert.Error(t, err)
}

func TestColorTransferFunction_ColorMap(t *testing.T) {
	ctf := defaultCTF(t)

	assert.Equal(t, 0.0, ctf.Min())
	assert.Equal(t, 1600.0, ctf.Max())

	_, err := ctf.At(800)
	assert.NoError(t, err)
	_, err = ctf.At(-1)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = ctf.At(1601)
	assert.ErrorIs(t, err, palette.ErrOverflow)

	ctf.SetAlpha(0.5)
	assert.Equal(t, uint8(128), ctf.Color(0).A)
	ctf.SetAlpha(3)
	assert.Equal(t, 1.0, ctf.Alpha())
}

func TestColorTransferFunction_SetMax(t *testing.T) {
	ctf, err := NewColorTransferFunction([]Stop{
		{Value: 0, Color: color.NRGBA{0, 0, 0, 255}},
		{Value: 10, Color: color.NRGBA{100, 100, 100, 255}},
		{Value: 20, Color: color.NRGBA{200, 200, 200, 255}},
	})
	require.NoError(t, err)

	ctf.SetMax(40)
	assert.Equal(t, 40.0, ctf.Max())
	assert.Equal(t, color.NRGBA{100, 100, 100, 255}, ctf.Color(20))

	ctf.SetMin(20)
	assert.Equal(t, 20.0, ctf.Min())
	assert.Equal(t, color.NRGBA{100, 100, 100, 255}, ctf.Color(30))
}

func TestColorTransferFunction_Palette(t *testing.T) {
	ctf := defaultCTF(t)

	cols := ctf.Palette(3).Colors()
	require.Len(t, cols, 3)
	assert.Equal(t, ctf.Color(0), cols[0])
	assert.Equal(t, ctf.Color(800), cols[1])
	assert.Equal(t, ctf.Color(1600), cols[2])

	assert.Len(t, ctf.Palette(0).Colors(), 1)
	assert.Equal(t, []string{"#837DFF", "#FFFFFF"}, ctf.Hex(2))
}
