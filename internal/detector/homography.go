package detector

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/fiducial/internal/utils"
)

// idealCorners are the canonical tag-square corners, in the same winding
// the quad fitter produces: (-1,-1) maps to Corners[0].
var idealCorners = [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

var errSingularHomography = errors.New("detector: singular homography")

// computeHomography solves for the 3x3 projective transform mapping the
// idealized tag square to the quad's pixel corners, and its inverse.
// Degenerate corner geometry yields errSingularHomography and the quad is
// dropped; the quad fitter should have rejected such quads already, but the
// solve re-checks defensively.
func computeHomography(corners [4]utils.Point) (h, hinv *mat.Dense, err error) {
	// Eight equations in the eight unknowns h11..h32, fixing h33 = 1.
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := idealCorners[i][0], idealCorners[i][1]
		u, v := corners[i].X, corners[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, nil, errSingularHomography
	}

	h = mat.NewDense(3, 3, []float64{
		sol.AtVec(0), sol.AtVec(1), sol.AtVec(2),
		sol.AtVec(3), sol.AtVec(4), sol.AtVec(5),
		sol.AtVec(6), sol.AtVec(7), 1,
	})

	hinv = mat.NewDense(3, 3, nil)
	if err := hinv.Inverse(h); err != nil {
		return nil, nil, errSingularHomography
	}
	return h, hinv, nil
}

// project maps a tag-space coordinate through a homography into pixel
// space.
func project(h *mat.Dense, x, y float64) utils.Point {
	xx := h.At(0, 0)*x + h.At(0, 1)*y + h.At(0, 2)
	yy := h.At(1, 0)*x + h.At(1, 1)*y + h.At(1, 2)
	zz := h.At(2, 0)*x + h.At(2, 1)*y + h.At(2, 2)
	return utils.Point{X: xx / zz, Y: yy / zz}
}

// rotateHomography post-multiplies H by a quarter-turn rotation about the
// tag center, used to orient a detection to the decoded rotation.
func rotateHomography(h *mat.Dense, quarterTurns int) *mat.Dense {
	quarterTurns %= 4
	if quarterTurns < 0 {
		quarterTurns += 4
	}
	// cos/sin for multiples of 90 degrees, kept exact.
	cs := [4][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	c, s := cs[quarterTurns][0], cs[quarterTurns][1]
	r := mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
	out := mat.NewDense(3, 3, nil)
	out.Mul(h, r)
	return out
}
