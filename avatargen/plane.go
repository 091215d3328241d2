package avatargen

import (
	"math"

	"github.com/jbeda/geom"
)

// A Plane is one tile of the mosaic: a closed polygon plus a palette index.
//
// Planes are compared by pointer, never by value, and are never modified once they've
// been handed out. Growing the mosaic replaces a plane with two new ones instead.
type Plane struct {
	Points []Point
	Colour int
}

// Edges returns the boundary of the plane. Edge i runs from Points[i] to
// Points[Next(i)], so the last edge closes the polygon.
func (p *Plane) Edges() []Line {
	edges := make([]Line, len(p.Points))
	for i := range p.Points {
		edges[i] = p.Edge(i)
	}
	return edges
}

func (p *Plane) Edge(i int) Line {
	return Line{Start: p.Points[i], End: p.Points[p.Next(i)]}
}

// Next is the index of the edge that follows edge i when walking the boundary.
func (p *Plane) Next(i int) int {
	return (i + 1) % len(p.Points)
}

func (p *Plane) Bounds() geom.Rect {
	r := geom.Rect{Min: p.Points[0], Max: p.Points[0]}
	for _, pt := range p.Points[1:] {
		r.ExpandToContainCoord(pt)
	}
	return r
}

// Area is the signed shoelace area: positive when the points wind counter-clockwise.
func (p *Plane) Area() float64 {
	var sum float64
	for i, a := range p.Points {
		b := p.Points[p.Next(i)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// inwardNormal is the unit vector perpendicular to edge i that points into the plane.
func (p *Plane) inwardNormal(i int) Point {
	d := p.Edge(i).End.Minus(p.Edge(i).Start).Unit()
	if p.Area() >= 0 {
		return Point{X: -d.Y, Y: d.X}
	}
	return Point{X: d.Y, Y: -d.X}
}

// Canvas is the bounding rectangle every plane has to stay inside.
type Canvas struct {
	Width  float64
	Height float64
}

func (c Canvas) Rect() geom.Rect {
	return geom.Rect{Min: Point{X: 0, Y: 0}, Max: Point{X: c.Width, Y: c.Height}}
}

func (c Canvas) Contains(p Point) bool {
	return between(p.X, 0, c.Width) && between(p.Y, 0, c.Height)
}

func (c Canvas) clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, 0), c.Width),
		Y: math.Min(math.Max(p.Y, 0), c.Height),
	}
}

// simplify drops repeated points and points that sit on the straight line between
// their neighbours (including the back-and-forth spikes left when a square is cut
// flush against a corner).
func simplify(points []Point) []Point {
	out := append([]Point(nil), points...)
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := 0; i < len(out) && len(out) >= 3; i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if Length(prev, out[i]) < Epsilon || math.Abs(cross(prev, out[i], next)) < Epsilon {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}
