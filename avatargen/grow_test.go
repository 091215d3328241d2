package avatargen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrowConfig(maxAttempts int) GrowConfig {
	return GrowConfig{
		MinSide:     12,
		MaxSide:     84,
		MaxAttempts: maxAttempts,
		Palette:     DefaultPalette,
	}
}

func checkPlaneInCanvas(t *testing.T, canvas Canvas, plane *Plane) {
	t.Helper()
	for _, p := range plane.Points {
		assert.True(t, p.X >= 0 && p.X <= canvas.Width, "x out of canvas: %v", p)
		assert.True(t, p.Y >= 0 && p.Y <= canvas.Height, "y out of canvas: %v", p)
	}
}

func TestSeedBackground(t *testing.T) {
	plane := SeedBackground(252, 252, 0)
	edges := plane.Edges()
	require.Len(t, edges, 4)
	for _, edge := range edges {
		assert.InDelta(t, 252, edge.Length(), 1e-9)
	}
	assert.Equal(t, 0, plane.Colour)
	assert.Positive(t, plane.Area(), "background should wind counter-clockwise")

	// Walking the adjacency from any edge gets back to it after exactly 4 steps.
	for start := range edges {
		i, steps := plane.Next(start), 1
		for i != start {
			i = plane.Next(i)
			steps++
		}
		assert.Equal(t, 4, steps)
	}
}

func TestGrowSquareOnBackground(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	background := SeedBackground(252, 252, 3)
	planes := []*Plane{background}

	outcome := GrowSquare(NewRand("test"), canvas, planes, testGrowConfig(10))
	grown, ok := outcome.(Grown)
	require.True(t, ok, "expected Grown, got %#v", outcome)

	assert.Equal(t, 0, grown.SourceIndex)
	assert.Equal(t, 3, grown.Remainder.Colour)
	assert.NotEqual(t, 3, grown.Addition.Colour, "new square should get a different colour")
	require.Len(t, grown.Addition.Points, 4)
	assert.True(t, CheckLengths(grown.Addition.Points, 12-Epsilon))
	checkPlaneInCanvas(t, canvas, grown.Addition)
	checkPlaneInCanvas(t, canvas, grown.Remainder)

	// The square is cut out of the source, so the areas add back up.
	assert.InDelta(t, background.Area(), grown.Remainder.Area()+grown.Addition.Area(), 1e-6)
	assert.Positive(t, grown.Addition.Area())

	// It's anchored on the source's border.
	assert.True(t, PointOnPlaneBorder(background, grown.Addition.Points[0]))
	assert.True(t, PointOnPlaneBorder(background, grown.Addition.Points[1]))

	// The background wasn't touched.
	assert.Equal(t, SeedBackground(252, 252, 3), background)
}

func TestGrowSquareIsDeterministic(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	planes := []*Plane{SeedBackground(252, 252, 0)}
	first := GrowSquare(NewRand("test"), canvas, planes, testGrowConfig(10))
	second := GrowSquare(NewRand("test"), canvas, planes, testGrowConfig(10))
	assert.Equal(t, first, second)
}

func assertPoints(t *testing.T, expected, actual []Point) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i].X, actual[i].X, 1e-9, "point %d: %v", i, actual[i])
		assert.InDelta(t, expected[i].Y, actual[i].Y, 1e-9, "point %d: %v", i, actual[i])
	}
}

func TestGrowSquareOnOversizedPlane(t *testing.T) {
	// Every edge is 1000 long, much longer than the canvas. Only the two edges along
	// the canvas border can host a square.
	canvas := Canvas{Width: 252, Height: 252}
	huge := SeedBackground(1000, 1000, 0)
	for _, edge := range huge.Edges() {
		require.GreaterOrEqual(t, edge.Length(), 1000.0)
	}

	outcome := GrowSquare(NewRand("test"), canvas, []*Plane{huge}, testGrowConfig(2))
	grown, ok := outcome.(Grown)
	require.True(t, ok, "expected Grown, got %#v", outcome)

	// Cut from the left edge, which runs from (0, 1000) down to (0, 0).
	assert.Equal(t, 0, grown.SourceIndex)
	assertPoints(t, []Point{{X: 0, Y: 94}, {X: 0, Y: 47}, {X: 47, Y: 47}, {X: 47, Y: 94}}, grown.Addition.Points)
	assertPoints(t, []Point{
		{X: 0, Y: 0}, {X: 252, Y: 0}, {X: 252, Y: 252}, {X: 0, Y: 252},
		{X: 0, Y: 94}, {X: 47, Y: 94}, {X: 47, Y: 47}, {X: 0, Y: 47},
	}, grown.Remainder.Points)
	assert.Equal(t, 0, grown.Remainder.Colour)
	assert.NotEqual(t, 0, grown.Addition.Colour)
	assert.True(t, CheckLengths(grown.Addition.Points, 12-Epsilon))
	checkPlaneInCanvas(t, canvas, grown.Addition)
	checkPlaneInCanvas(t, canvas, grown.Remainder)
}

func TestGrowSquareOnOversizedPlaneOtherSeeds(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	huge := SeedBackground(1000, 1000, 0)
	grownCount := 0
	for i := range 32 {
		seed := fmt.Sprintf("test-%d", i+1)
		outcome := GrowSquare(NewRand(seed), canvas, []*Plane{huge}, testGrowConfig(2))
		grown, ok := outcome.(Grown)
		if !ok {
			assert.Equal(t, Exhausted{Attempts: 2}, outcome)
			continue
		}
		grownCount++
		assert.True(t, CheckLengths(grown.Addition.Points, 12-Epsilon), "seed %s", seed)
		checkPlaneInCanvas(t, canvas, grown.Addition)
	}
	assert.Positive(t, grownCount)
}

func TestGrowSquareWithoutPlanes(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	outcome := GrowSquare(NewRand("test"), canvas, nil, testGrowConfig(10))
	assert.Equal(t, Exhausted{Attempts: 0}, outcome)
}

func TestGrowSquareExhausts(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	var testCases = []struct {
		name  string
		plane *Plane
	}{
		{"tiny square", &Plane{Points: []Point{{X: 10, Y: 10}, {X: 15, Y: 10}, {X: 15, Y: 15}, {X: 10, Y: 15}}}},
		{"thin strip", &Plane{Points: []Point{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 5}, {X: 0, Y: 5}}}},
		{"outside the canvas", &Plane{Points: []Point{{X: 300, Y: 300}, {X: 500, Y: 300}, {X: 500, Y: 500}, {X: 300, Y: 500}}}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			outcome := GrowSquare(NewRand("test"), canvas, []*Plane{testCase.plane}, testGrowConfig(50))
			assert.Equal(t, Exhausted{Attempts: 50}, outcome)
		})
	}
}

func TestGrowSquareRepeatedly(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	rng := NewRand("repeat")
	planes := []*Plane{SeedBackground(252, 252, 0)}
	for len(planes) < 32 {
		outcome := GrowSquare(rng, canvas, planes, testGrowConfig(200))
		grown, ok := outcome.(Grown)
		require.True(t, ok, "ran out of room with %d planes", len(planes))

		source := planes[grown.SourceIndex]
		assert.InDelta(t, source.Area(), grown.Remainder.Area()+grown.Addition.Area(), 1e-6)

		next := ReplacePlane(planes, grown)
		require.Len(t, next, len(planes)+1)
		assert.Same(t, grown.Remainder, next[grown.SourceIndex])
		assert.Same(t, grown.Addition, next[grown.SourceIndex+1])
		planes = next
	}

	// The tiles partition the canvas.
	var total float64
	for _, plane := range planes {
		checkPlaneInCanvas(t, canvas, plane)
		assert.True(t, CheckLengths(plane.Points, Epsilon))
		assert.Positive(t, plane.Area())
		total += plane.Area()
	}
	assert.InDelta(t, 252.0*252.0, total, 1e-3)
}

func TestClipToCanvas(t *testing.T) {
	canvas := Canvas{Width: 252, Height: 252}
	lo, hi, ok := clipToCanvas(line(0, 1000, 0, 0), canvas)
	require.True(t, ok)
	assert.InDelta(t, 748, lo, 1e-9)
	assert.InDelta(t, 1000, hi, 1e-9)

	_, _, ok = clipToCanvas(line(0, 1000, 1000, 1000), canvas)
	assert.False(t, ok)

	lo, hi, ok = clipToCanvas(line(10, 10, 20, 10), canvas)
	require.True(t, ok)
	assert.Zero(t, lo)
	assert.InDelta(t, 10, hi, 1e-9)
}

func TestReplacePlaneLeavesInputAlone(t *testing.T) {
	a, b, c := square3(), square3(), square3()
	planes := []*Plane{a, b, c}
	remainder, addition := square3(), square3()
	out := ReplacePlane(planes, Grown{Remainder: remainder, Addition: addition, SourceIndex: 1})

	assert.Equal(t, []*Plane{a, b, c}, planes)
	require.Len(t, out, 4)
	assert.Same(t, a, out[0])
	assert.Same(t, remainder, out[1])
	assert.Same(t, addition, out[2])
	assert.Same(t, c, out[3])
}
