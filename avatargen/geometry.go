package avatargen

import (
	"math"

	"github.com/jbeda/geom"
)

// Epsilon is the tolerance used by every floating point comparison in this package.
// Coordinates are on a pixel grid of a few hundred units, so this is plenty.
const Epsilon = 1e-6

type Point = geom.Coord

// A Line is one edge of a Plane, running from Start to End.
type Line struct {
	Start Point
	End   Point
}

// Horizontal is the reference line angles are measured against.
var Horizontal = Line{Start: Point{X: 0, Y: 0}, End: Point{X: 1, Y: 0}}

func (l Line) Length() float64 {
	return Length(l.Start, l.End)
}

// Slope returns dy/dx. The second return value is false for vertical lines, where
// the slope is undefined.
func Slope(p1, p2 Point) (float64, bool) {
	dx := p2.X - p1.X
	if math.Abs(dx) < Epsilon {
		return 0, false
	}
	return (p2.Y - p1.Y) / dx, true
}

func Length(p1, p2 Point) float64 {
	return p2.Minus(p1).Magnitude()
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// AngleBetweenSlopes returns the unsigned angle, in degrees, between two lines with
// slopes s1 and s2. The result is in [0, 90].
func AngleBetweenSlopes(s1, s2 float64) float64 {
	denom := 1 + s1*s2
	if math.Abs(denom) < Epsilon {
		return 90
	}
	return degrees(math.Atan(math.Abs((s2 - s1) / denom)))
}

// AngleBetweenLines is AngleBetweenSlopes for two edges. Vertical edges have no slope,
// so they're measured against a 90 degree reference instead.
func AngleBetweenLines(l1, l2 Line) float64 {
	s1, ok1 := Slope(l1.Start, l1.End)
	s2, ok2 := Slope(l2.Start, l2.End)
	switch {
	case !ok1 && !ok2:
		return 0
	case !ok1:
		return 90 - degrees(math.Atan(math.Abs(s2)))
	case !ok2:
		return 90 - degrees(math.Atan(math.Abs(s1)))
	}
	return AngleBetweenSlopes(s1, s2)
}

func between(v, a, b float64) bool {
	return v >= math.Min(a, b)-Epsilon && v <= math.Max(a, b)+Epsilon
}

// PointOnLine reports whether p is on the segment l: it has to satisfy the line
// equation and sit inside the segment's bounding box. Collinear points past either
// end don't count.
func PointOnLine(l Line, p Point) bool {
	if !between(p.X, l.Start.X, l.End.X) || !between(p.Y, l.Start.Y, l.End.Y) {
		return false
	}
	m, ok := Slope(l.Start, l.End)
	if !ok {
		return math.Abs(p.X-l.Start.X) < Epsilon
	}
	return math.Abs(p.Y-(l.Start.Y+m*(p.X-l.Start.X))) < Epsilon
}

func PointOnPlaneBorder(plane *Plane, p Point) bool {
	for _, edge := range plane.Edges() {
		if PointOnLine(edge, p) {
			return true
		}
	}
	return false
}

// CheckLengths reports whether every pair of consecutive points (wrapping around from
// the last point back to the first) is at least min apart.
func CheckLengths(points []Point, min float64) bool {
	for i := range points {
		if Length(points[i], points[(i+1)%len(points)]) < min {
			return false
		}
	}
	return true
}

// PointAtDistanceOnLine walks length units from l.Start toward l.End. The angle is the
// unsigned angle between l and Horizontal, so it only fixes the direction up to sign;
// we always take the candidate pointing along l's own direction vector.
//
// Returns false when length is longer than the edge itself.
func PointAtDistanceOnLine(l Line, angle, length float64) (Point, bool) {
	if length < -Epsilon || length > l.Length()+Epsilon {
		return Point{}, false
	}
	along := l.End.Minus(l.Start)
	cos, sin := math.Cos(radians(angle)), math.Sin(radians(angle))
	candidates := [4]Point{
		{X: cos, Y: sin},
		{X: -cos, Y: sin},
		{X: cos, Y: -sin},
		{X: -cos, Y: -sin},
	}
	dir := candidates[0]
	best := math.Inf(-1)
	for _, c := range candidates {
		if dot := c.X*along.X + c.Y*along.Y; dot > best {
			best = dot
			dir = c
		}
	}
	return l.Start.Plus(dir.Times(length)), true
}

// PointInPlane is an even-odd ray cast. Points on the border may land either way.
func PointInPlane(plane *Plane, p Point) bool {
	inside := false
	n := len(plane.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := plane.Points[i], plane.Points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// snap rounds away the 1e-17 noise that cos(90°) and friends leave behind.
func snap(p Point) Point {
	const scale = 1 / Epsilon
	return Point{
		X: math.Round(p.X*scale) / scale,
		Y: math.Round(p.Y*scale) / scale,
	}
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
