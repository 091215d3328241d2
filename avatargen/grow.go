package avatargen

import (
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
)

// GrowConfig bounds a single GrowSquare call.
type GrowConfig struct {
	MinSide     float64
	MaxSide     float64
	MaxAttempts int
	Palette     Palette
	Logger      *zerolog.Logger // optional
}

func (c GrowConfig) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return c.Logger
}

// GrowthOutcome is either Grown or Exhausted.
type GrowthOutcome interface {
	isGrowthOutcome()
}

// Grown means planes[SourceIndex] was split into Remainder (what's left of it) and
// Addition (the new square).
type Grown struct {
	Remainder   *Plane
	Addition    *Plane
	SourceIndex int
}

// Exhausted means none of the attempts produced a valid square.
type Exhausted struct {
	Attempts int
}

func (Grown) isGrowthOutcome()     {}
func (Exhausted) isGrowthOutcome() {}

// GrowSquare tries up to cfg.MaxAttempts times to cut a new square out of one of the
// planes, flush against one of that plane's edges. Each try picks a plane and an edge
// at random; a candidate that breaks any of the geometry checks just uses up a try.
// With no planes there is nothing to try, so the result is Exhausted{Attempts: 0}.
func GrowSquare(rng *rand.Rand, canvas Canvas, planes []*Plane, cfg GrowConfig) GrowthOutcome {
	if len(planes) == 0 {
		return Exhausted{}
	}
	log := cfg.logger()
	attempt := 1
	for ; attempt <= cfg.MaxAttempts; attempt++ {
		sourceIndex := rng.IntN(len(planes))
		source := planes[sourceIndex]
		edgeIndex := rng.IntN(len(source.Points))
		grown, reason := graft(rng, canvas, source, edgeIndex, cfg)
		if reason != "" {
			log.Debug().
				Int("attempt", attempt).
				Int("plane", sourceIndex).
				Int("edge", edgeIndex).
				Str("reason", reason).
				Msg("graft rejected")
			continue
		}
		grown.SourceIndex = sourceIndex
		return grown
	}
	return Exhausted{Attempts: attempt - 1}
}

// graft builds and checks one candidate square on edge i of source. A non-empty
// reason means the candidate was rejected.
func graft(rng *rand.Rand, canvas Canvas, source *Plane, i int, cfg GrowConfig) (Grown, string) {
	edge := source.Edge(i)
	lo, hi, ok := clipToCanvas(edge, canvas)
	if !ok {
		return Grown{}, "edge is outside the canvas"
	}

	// Whole-pixel sides and offsets keep neighbouring tiles on the same pixel
	// boundaries, so there are no seams between them.
	side := float64(wholeIn(rng, cfg.MinSide, cfg.MaxSide))
	room := math.Max(0, math.Floor(hi-lo-side))
	start := lo + float64(rng.IntN(int(room)+1))

	angle := AngleBetweenLines(edge, Horizontal)
	graftPoint, ok := PointAtDistanceOnLine(edge, angle, start+side)
	if !ok {
		return Grown{}, "edge too short"
	}
	near, ok := PointAtDistanceOnLine(edge, angle, start)
	if !ok {
		return Grown{}, "edge too short"
	}
	graftPoint, near = snap(graftPoint), snap(near)
	if !PointOnLine(edge, graftPoint) || !PointOnPlaneBorder(source, graftPoint) {
		return Grown{}, "graft point is off the edge"
	}

	n := source.inwardNormal(i)
	square := []Point{
		near,
		graftPoint,
		snap(graftPoint.Plus(n.Times(side))),
		snap(near.Plus(n.Times(side))),
	}
	if !CheckLengths(square, cfg.MinSide-Epsilon) {
		return Grown{}, "square is too small"
	}
	for _, p := range square {
		if !canvas.Contains(p) {
			return Grown{}, "square leaves the canvas"
		}
	}
	if !fitsInside(source, square) {
		return Grown{}, "square overlaps the rest of the plane"
	}

	remainder := make([]Point, 0, len(source.Points)+4)
	for j, p := range source.Points {
		remainder = append(remainder, p)
		if j == i {
			remainder = append(remainder, square[0], square[3], square[2], square[1])
		}
	}
	remainder = simplify(remainder)
	if len(remainder) < 4 || !CheckLengths(remainder, Epsilon) {
		return Grown{}, "nothing left of the plane"
	}

	for j := range square {
		square[j] = canvas.clamp(square[j])
	}
	for j := range remainder {
		remainder[j] = canvas.clamp(remainder[j])
	}
	return Grown{
		Remainder: &Plane{Points: remainder, Colour: source.Colour},
		Addition:  &Plane{Points: square, Colour: cfg.Palette.Fresh(rng, source.Colour)},
	}, ""
}

// fitsInside reports whether the square lies within source: its centre has to be
// inside, and no edge of source may cut into the square's interior.
func fitsInside(source *Plane, square []Point) bool {
	centre := square[0].Plus(square[2]).Times(0.5)
	if !PointInPlane(source, centre) {
		return false
	}
	box := (&Plane{Points: square}).Bounds()
	for _, edge := range source.Edges() {
		eb := (&Plane{Points: []Point{edge.Start, edge.End}}).Bounds()
		if eb.Min.X < box.Max.X-Epsilon && eb.Max.X > box.Min.X+Epsilon &&
			eb.Min.Y < box.Max.Y-Epsilon && eb.Max.Y > box.Min.Y+Epsilon {
			return false
		}
	}
	return true
}

// clipToCanvas returns the stretch of l that's inside the canvas, as distances from
// l.Start (Liang-Barsky).
func clipToCanvas(l Line, canvas Canvas) (float64, float64, bool) {
	d := l.End.Minus(l.Start)
	p := [4]float64{-d.X, d.X, -d.Y, d.Y}
	q := [4]float64{l.Start.X, canvas.Width - l.Start.X, l.Start.Y, canvas.Height - l.Start.Y}
	t0, t1 := 0.0, 1.0
	for k := range p {
		if math.Abs(p[k]) < Epsilon {
			if q[k] < -Epsilon {
				return 0, 0, false
			}
			continue
		}
		r := q[k] / p[k]
		if p[k] < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
	}
	if t0 > t1 {
		return 0, 0, false
	}
	length := l.Length()
	return t0 * length, t1 * length, true
}

// wholeIn draws a whole number from [lo, hi].
func wholeIn(rng *rand.Rand, lo, hi float64) int {
	a, b := int(math.Ceil(lo)), int(math.Floor(hi))
	if b <= a {
		return a
	}
	return a + rng.IntN(b-a+1)
}

// ReplacePlane returns a copy of planes with the source plane swapped for the two
// planes that replace it. The original slice is left alone.
func ReplacePlane(planes []*Plane, g Grown) []*Plane {
	out := make([]*Plane, 0, len(planes)+1)
	out = append(out, planes[:g.SourceIndex]...)
	out = append(out, g.Remainder, g.Addition)
	return append(out, planes[g.SourceIndex+1:]...)
}
