package avatargen

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// A Palette is a list of hex colours. Planes refer to their colour by index.
type Palette []string

var DefaultPalette = Palette{
	"#f4ecd6",
	"#e07a5f",
	"#3d405b",
	"#81b29a",
	"#f2cc8f",
	"#6d597a",
	"#b56576",
	"#355070",
}

func (p Palette) index(i int) int {
	n := len(p)
	return ((i % n) + n) % n
}

// Color looks up colour i, wrapping around the end of the palette. Unparseable
// entries come out black; call Validate first if that matters.
func (p Palette) Color(i int) color.Color {
	c, err := colorful.Hex(p[p.index(i)])
	if err != nil {
		return color.Black
	}
	return c.Clamped()
}

// Fresh picks a random palette index, different from avoid when there's more than one
// colour to pick from.
func (p Palette) Fresh(rng *rand.Rand, avoid int) int {
	if len(p) < 2 {
		return 0
	}
	return (p.index(avoid) + 1 + rng.IntN(len(p)-1)) % len(p)
}

func (p Palette) Validate() error {
	if len(p) == 0 {
		return errors.New("palette is empty")
	}
	for i, hex := range p {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("palette entry %d (%q): %w", i, hex, err)
		}
	}
	return nil
}

// PaletteFromHue builds a palette of n tints around the hue h (in degrees), from a
// pale background tone to a dark one, with the neighbouring hues mixed in.
func PaletteFromHue(h float64, n int) Palette {
	palette := make(Palette, 0, n)
	for i := range n {
		t := float64(i) / float64(max(n-1, 1))
		hue := math.Mod(h+float64(i%3-1)*25+360, 360)
		l := 0.9 - 0.65*t
		palette = append(palette, colorful.Hsl(hue, 0.55, l).Clamped().Hex())
	}
	return palette
}
