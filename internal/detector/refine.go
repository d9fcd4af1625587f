package detector

import (
	"math"

	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/utils"
)

// refineEdges snaps each quad edge to the strongest nearby image gradient
// in the full-resolution image, recovering precision lost to decimation.
// It refits each edge line from gradient-weighted samples and recomputes
// the corners as line intersections. The refinement never rejects a quad:
// edges without a usable gradient, or degenerate intersections, keep their
// unrefined geometry.
func refineEdges(im *gray.Image, q *Quad, quadDecimate float64) {
	var lines [4]utils.Line
	var refined [4]bool

	searchRange := quadDecimate + 1

	for edge := 0; edge < 4; edge++ {
		a := q.Corners[edge]
		b := q.Corners[(edge+1)%4]

		ex, ey := b.X-a.X, b.Y-a.Y
		edgeLen := math.Hypot(ex, ey)
		if edgeLen < 1e-9 {
			continue
		}

		// Outward normal for the CCW corner order; flipped for reversed
		// borders where the intensity polarity inverts.
		nx, ny := ey/edgeLen, -ex/edgeLen
		if q.ReversedBorder {
			nx, ny = -nx, -ny
		}

		nsamples := max(16, int(edgeLen/8))

		var mx, my, mxx, mxy, myy float64
		var nfit int
		for s := 0; s < nsamples; s++ {
			alpha := float64(s+1) / float64(nsamples+1)
			x0 := a.X + alpha*ex
			y0 := a.Y + alpha*ey

			// Weighted mean offset of the gradient response along the
			// normal.
			var mn, mcount float64
			for n := -searchRange; n <= searchRange; n += 0.25 {
				g1 := im.InterpolateBilinear(x0+(n+1)*nx, y0+(n+1)*ny)
				g2 := im.InterpolateBilinear(x0+(n-1)*nx, y0+(n-1)*ny)
				if g1 < 0 || g2 < 0 {
					continue
				}
				// Expect brighter outside the border; skip samples with
				// the wrong polarity.
				if g1 < g2 {
					continue
				}
				weight := (g1 - g2) * (g1 - g2)
				mn += weight * n
				mcount += weight
			}
			if mcount == 0 {
				continue
			}
			n0 := mn / mcount
			bx := x0 + n0*nx
			by := y0 + n0*ny
			mx += bx
			my += by
			mxx += bx * bx
			mxy += bx * by
			myy += by * by
			nfit++
		}
		if nfit < 2 {
			continue
		}

		fn := float64(nfit)
		exm := mx / fn
		eym := my / fn
		cxx := mxx/fn - exm*exm
		cxy := mxy/fn - exm*eym
		cyy := myy/fn - eym*eym

		disc := math.Sqrt((cxx-cyy)*(cxx-cyy) + 4*cxy*cxy)
		eigLarge := 0.5 * (cxx + cyy + disc)
		dx1, dy1 := cxy, eigLarge-cxx
		dx2, dy2 := eigLarge-cyy, cxy
		var dx, dy float64
		if dx1*dx1+dy1*dy1 > dx2*dx2+dy2*dy2 {
			dx, dy = dx1, dy1
		} else {
			dx, dy = dx2, dy2
		}
		mag := math.Hypot(dx, dy)
		if mag < 1e-12 {
			continue
		}
		lines[edge] = utils.Line{Px: exm, Py: eym, Dx: dx / mag, Dy: dy / mag}
		refined[edge] = true
	}

	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		if !refined[i] || !refined[j] {
			continue
		}
		if p, ok := lines[i].Intersect(lines[j]); ok {
			q.Corners[j] = p
		}
	}
}
