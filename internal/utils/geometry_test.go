package utils

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	assert.InDelta(t, 5.0, a.Distance(b), 1e-12)
	assert.InDelta(t, 5.0, b.Distance(a), 1e-12)
	assert.Zero(t, a.Distance(a))
}

func TestNewBoxOrdersCoordinates(t *testing.T) {
	b := NewBox(5, 7, 1, 2)
	assert.Equal(t, 1.0, b.MinX)
	assert.Equal(t, 2.0, b.MinY)
	assert.Equal(t, 4.0, b.Width())
	assert.Equal(t, 5.0, b.Height())
}

func TestCross(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 1, Y: 0}
	c := Point{X: 0, Y: 1}
	assert.Equal(t, 1.0, Cross(a, b, c))
	assert.Equal(t, -1.0, Cross(a, c, b))
}

func TestSignedAreaWinding(t *testing.T) {
	// Counter-clockwise under y-down: top-left, top-right, bottom-right,
	// bottom-left.
	ccw := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	assert.InDelta(t, 4.0, SignedArea(ccw), 1e-12)

	cw := []Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	assert.InDelta(t, -4.0, SignedArea(cw), 1e-12)
}

func TestLineIntersect(t *testing.T) {
	horiz := Line{Px: 0, Py: 2, Dx: 1, Dy: 0}
	vert := Line{Px: 5, Py: 0, Dx: 0, Dy: 1}

	p, ok := horiz.Intersect(vert)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p.X, 1e-12)
	assert.InDelta(t, 2.0, p.Y, 1e-12)
}

func TestLineIntersectParallel(t *testing.T) {
	a := Line{Px: 0, Py: 0, Dx: 1, Dy: 1}
	b := Line{Px: 3, Py: 0, Dx: 1, Dy: 1}
	_, ok := a.Intersect(b)
	assert.False(t, ok)
}

func TestSignedAreaReversalProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	coord := gen.Float64Range(-1000, 1000)

	properties.Property("reversing a polygon negates its area", prop.ForAll(
		func(xs, ys []float64) bool {
			n := min(len(xs), len(ys))
			if n < 3 {
				return true
			}
			pts := make([]Point, n)
			rev := make([]Point, n)
			for i := 0; i < n; i++ {
				pts[i] = Point{X: xs[i], Y: ys[i]}
				rev[n-1-i] = pts[i]
			}
			return math.Abs(SignedArea(pts)+SignedArea(rev)) < 1e-6
		},
		gen.SliceOf(coord),
		gen.SliceOf(coord),
	))

	properties.Property("intersection point lies on both lines", prop.ForAll(
		func(px, py, qx, qy, theta1, theta2 float64) bool {
			l := Line{Px: px, Py: py, Dx: math.Cos(theta1), Dy: math.Sin(theta1)}
			m := Line{Px: qx, Py: qy, Dx: math.Cos(theta2), Dy: math.Sin(theta2)}
			// Near-parallel pairs intersect far away where rounding
			// swamps the check.
			if math.Abs(m.Dx*l.Dy-m.Dy*l.Dx) < 1e-3 {
				return true
			}
			p, ok := l.Intersect(m)
			if !ok {
				return true
			}
			// Perpendicular distance from p to each line must vanish.
			d1 := math.Abs((p.X-l.Px)*l.Dy - (p.Y-l.Py)*l.Dx)
			d2 := math.Abs((p.X-m.Px)*m.Dy - (p.Y-m.Py)*m.Dx)
			return d1 < 1e-6 && d2 < 1e-6
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.Float64Range(0, math.Pi),
		gen.Float64Range(0, math.Pi),
	))

	properties.TestingRun(t)
}
