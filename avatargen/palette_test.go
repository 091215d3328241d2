package avatargen

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaletteColor(t *testing.T) {
	palette := Palette{"#ff0000", "#00ff00", "#0000ff"}
	red := color.RGBAModel.Convert(palette.Color(0)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, red)

	// Indexes wrap around in both directions.
	assert.Equal(t, palette.Color(1), palette.Color(4))
	assert.Equal(t, palette.Color(2), palette.Color(-1))

	assert.Equal(t, color.Black, Palette{"nope"}.Color(0))
}

func TestPaletteFresh(t *testing.T) {
	rng := NewRand("fresh")
	for avoid := range DefaultPalette {
		for range 20 {
			i := DefaultPalette.Fresh(rng, avoid)
			assert.NotEqual(t, avoid, i)
			assert.True(t, i >= 0 && i < len(DefaultPalette))
		}
	}
	assert.Equal(t, 0, Palette{"#000000"}.Fresh(rng, 0))
}

func TestPaletteFromHue(t *testing.T) {
	palette := PaletteFromHue(200, 6)
	assert.Len(t, palette, 6)
	assert.NoError(t, palette.Validate())
	assert.NotEqual(t, palette[0], palette[5])
}

func TestDefaultPaletteIsValid(t *testing.T) {
	assert.NoError(t, DefaultPalette.Validate())
	assert.Error(t, Palette{}.Validate())
}
