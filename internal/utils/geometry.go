// Package utils provides small planar geometry primitives shared by the
// quad fitting and edge refinement stages.
package utils

import "math"

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Box represents an axis-aligned bounding box in float coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from min/max coordinates ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Cross returns the z component of (b-a) x (c-a).
func Cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// SignedArea returns the signed shoelace area of a polygon. Positive area
// means the vertices are in counter-clockwise order under the pipeline's
// y-down pixel convention.
func SignedArea(pts []Point) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// Line is an infinite line given by a point and a unit direction.
type Line struct {
	Px, Py float64 // point on the line
	Dx, Dy float64 // direction
}

// Intersect returns the intersection of two lines. ok is false when the
// lines are (near) parallel.
func (l Line) Intersect(m Line) (Point, bool) {
	// l.P + s*l.D == m.P + t*m.D
	det := m.Dx*l.Dy - m.Dy*l.Dx
	if math.Abs(det) < 1e-10 {
		return Point{}, false
	}
	s := (m.Dx*(m.Py-l.Py) - m.Dy*(m.Px-l.Px)) / det
	return Point{X: l.Px + s*l.Dx, Y: l.Py + s*l.Dy}, true
}
