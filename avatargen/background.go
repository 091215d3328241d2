package avatargen

// SeedBackground makes the plane that covers the whole canvas. Every mosaic starts
// from one of these. The corners wind counter-clockwise, which is what the growth
// code assumes when it works out which side of an edge is inside.
func SeedBackground(width, height float64, colourIndex int) *Plane {
	return &Plane{
		Points: []Point{
			{X: 0, Y: 0},
			{X: width, Y: 0},
			{X: width, Y: height},
			{X: 0, Y: height},
		},
		Colour: colourIndex,
	}
}
