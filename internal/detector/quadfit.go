package detector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/mempool"
	"github.com/MeKo-Tech/fiducial/internal/utils"
)

// Quad is a candidate tag boundary: four corners in counter-clockwise order
// (positive shoelace area under the y-down pixel convention), the border
// polarity inferred from the cluster's gradient, and the homographies
// computed for it. H and Hinv are owned by the quad.
type Quad struct {
	Corners        [4]utils.Point
	ReversedBorder bool
	H              *mat.Dense
	Hinv           *mat.Dense
}

// lineMoments accumulates weighted first and second moments for line
// fitting over a contiguous run of boundary points.
type lineMoments struct {
	Mx, My        float64
	Mxx, Mxy, Myy float64
	W             float64
}

func (m *lineMoments) add(o lineMoments) {
	m.Mx += o.Mx
	m.My += o.My
	m.Mxx += o.Mxx
	m.Mxy += o.Mxy
	m.Myy += o.Myy
	m.W += o.W
}

func (m *lineMoments) sub(o lineMoments) {
	m.Mx -= o.Mx
	m.My -= o.My
	m.Mxx -= o.Mxx
	m.Mxy -= o.Mxy
	m.Myy -= o.Myy
	m.W -= o.W
}

// buildLineFitPrefix computes cumulative moments over the angularly sorted
// boundary points. Points are weighted by the image gradient magnitude at
// their location so strong edges dominate the fit.
func buildLineFitPrefix(pts []clusterPoint, im *gray.Image) []lineMoments {
	lfps := make([]lineMoments, len(pts))
	var acc lineMoments
	for i, p := range pts {
		px := float64(p.X) / 2
		py := float64(p.Y) / 2

		w := 1.0
		ix, iy := int(px), int(py)
		if ix > 0 && ix+1 < im.Width && iy > 0 && iy+1 < im.Height {
			gx := int(im.At(ix+1, iy)) - int(im.At(ix-1, iy))
			gy := int(im.At(ix, iy+1)) - int(im.At(ix, iy-1))
			w = math.Sqrt(float64(gx*gx+gy*gy)) + 1
		}

		acc.Mx += w * px
		acc.My += w * py
		acc.Mxx += w * px * px
		acc.Mxy += w * px * py
		acc.Myy += w * py * py
		acc.W += w
		lfps[i] = acc
	}
	return lfps
}

// rangeMoments returns the moments over the circular index range [i0, i1].
func rangeMoments(lfps []lineMoments, i0, i1 int) lineMoments {
	sz := len(lfps)
	var m lineMoments
	if i0 <= i1 {
		m = lfps[i1]
		if i0 > 0 {
			m.sub(lfps[i0-1])
		}
		return m
	}
	m = lfps[sz-1]
	m.sub(lfps[i0-1])
	m.add(lfps[i1])
	return m
}

// fitLineRange fits a straight line to the boundary points in the circular
// range [i0, i1], returning the line and the mean squared perpendicular
// error (the small eigenvalue of the point covariance).
func fitLineRange(lfps []lineMoments, i0, i1 int) (utils.Line, float64) {
	m := rangeMoments(lfps, i0, i1)
	if m.W <= 0 {
		return utils.Line{}, math.MaxFloat64
	}
	ex := m.Mx / m.W
	ey := m.My / m.W
	cxx := m.Mxx/m.W - ex*ex
	cxy := m.Mxy/m.W - ex*ey
	cyy := m.Myy/m.W - ey*ey

	disc := math.Sqrt((cxx-cyy)*(cxx-cyy) + 4*cxy*cxy)
	eigSmall := 0.5 * (cxx + cyy - disc)
	eigLarge := 0.5 * (cxx + cyy + disc)

	// Eigenvector of the large eigenvalue; pick the better-conditioned
	// of the two equivalent expressions.
	nx1, ny1 := cxy, eigLarge-cxx
	nx2, ny2 := eigLarge-cyy, cxy
	var dx, dy float64
	if nx1*nx1+ny1*ny1 > nx2*nx2+ny2*ny2 {
		dx, dy = nx1, ny1
	} else {
		dx, dy = nx2, ny2
	}
	mag := math.Hypot(dx, dy)
	if mag < 1e-12 {
		// Isotropic cloud; direction is arbitrary.
		dx, dy, mag = 1, 0, 1
	}
	return utils.Line{Px: ex, Py: ey, Dx: dx / mag, Dy: dy / mag}, eigSmall
}

// errSmoothSigma and errSmoothCutoff shape the small Gaussian used to
// smooth the per-point line fit error before locating corner candidates.
const (
	errSmoothSigma  = 1.0
	errSmoothCutoff = 0.05
)

// quadSegmentMaxima locates up to four corner indices by examining local
// maxima of the windowed line fit error along the boundary, then searching
// all admissible 4-combinations for the lowest combined MSE.
func quadSegmentMaxima(qp QuadThreshParams, lfps []lineMoments) ([4]int, bool) {
	sz := len(lfps)
	ksz := min(20, sz/12)
	if ksz < 2 {
		return [4]int{}, false
	}

	errs := mempool.GetFloat64(sz)
	defer mempool.PutFloat64(errs)
	for i := 0; i < sz; i++ {
		_, mse := fitLineRange(lfps, (i-ksz+sz)%sz, (i+ksz)%sz)
		errs[i] = mse * float64(2*ksz+1)
	}

	smoothCircular(errs, sz)

	type maximum struct {
		idx int
		val float64
	}
	var maxima []maximum
	for i := 0; i < sz; i++ {
		if errs[i] > errs[(i+sz-1)%sz] && errs[i] > errs[(i+1)%sz] {
			maxima = append(maxima, maximum{idx: i, val: errs[i]})
		}
	}
	if len(maxima) < 4 {
		return [4]int{}, false
	}

	if len(maxima) > qp.MaxNMaxima {
		vals := make([]float64, len(maxima))
		for i, m := range maxima {
			vals[i] = m.val
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
		thresh := vals[qp.MaxNMaxima-1]
		kept := maxima[:0]
		for _, m := range maxima {
			if m.val >= thresh && len(kept) < qp.MaxNMaxima {
				kept = append(kept, m)
			}
		}
		maxima = kept
	}

	best := math.MaxFloat64
	var bestIdx [4]int
	n := len(maxima)
	for m0 := 0; m0 < n-3; m0++ {
		i0 := maxima[m0].idx
		for m1 := m0 + 1; m1 < n-2; m1++ {
			i1 := maxima[m1].idx
			_, mse01 := fitLineRange(lfps, i0, i1)
			if mse01 > qp.MaxLineFitMSE {
				continue
			}
			for m2 := m1 + 1; m2 < n-1; m2++ {
				i2 := maxima[m2].idx
				_, mse12 := fitLineRange(lfps, i1, i2)
				if mse12 > qp.MaxLineFitMSE {
					continue
				}
				for m3 := m2 + 1; m3 < n; m3++ {
					i3 := maxima[m3].idx
					_, mse23 := fitLineRange(lfps, i2, i3)
					if mse23 > qp.MaxLineFitMSE {
						continue
					}
					_, mse30 := fitLineRange(lfps, i3, i0)
					if mse30 > qp.MaxLineFitMSE {
						continue
					}
					total := mse01 + mse12 + mse23 + mse30
					if total < best {
						best = total
						bestIdx = [4]int{i0, i1, i2, i3}
					}
				}
			}
		}
	}
	if best == math.MaxFloat64 {
		return [4]int{}, false
	}
	return bestIdx, true
}

// smoothCircular convolves the first sz entries of errs with a small
// Gaussian, treating the array as circular.
func smoothCircular(errs []float64, sz int) {
	fsz := int(math.Sqrt(-math.Log(errSmoothCutoff)*2*errSmoothSigma*errSmoothSigma)) + 1
	fsz = 2*fsz + 1
	kernel := make([]float64, fsz)
	for i := 0; i < fsz; i++ {
		d := float64(i - fsz/2)
		kernel[i] = math.Exp(-d * d / (2 * errSmoothSigma * errSmoothSigma))
	}

	orig := mempool.GetFloat64(sz)
	defer mempool.PutFloat64(orig)
	copy(orig, errs[:sz])
	for i := 0; i < sz; i++ {
		var acc float64
		for k := 0; k < fsz; k++ {
			acc += orig[(i+k-fsz/2+sz)%sz] * kernel[k]
		}
		errs[i] = acc
	}
}

// fitQuad fits a quadrilateral to one boundary cluster. It returns nil when
// the cluster cannot form an admissible quad: too few points, too small a
// span, the wrong border polarity for the registered families, excessive
// line fit error, or degenerate corner geometry.
func fitQuad(qp QuadThreshParams, im *gray.Image, cl cluster, minTagWidth int, normalOK, reversedOK bool) *Quad {
	pts := cl.pts
	sz := len(pts)
	if sz < 24 {
		return nil
	}

	// Bounding box span check against the smallest registered tag.
	xmin, xmax := pts[0].X, pts[0].X
	ymin, ymax := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.X < xmin {
			xmin = p.X
		}
		if p.X > xmax {
			xmax = p.X
		}
		if p.Y < ymin {
			ymin = p.Y
		}
		if p.Y > ymax {
			ymax = p.Y
		}
	}
	// Coordinates are doubled, hence the factor of 4 on the area bound.
	if int64(xmax-xmin)*int64(ymax-ymin) < 4*int64(minTagWidth)*int64(minTagWidth) {
		return nil
	}

	// The 0.05 offset breaks ties in the angular sort for symmetric
	// clusters.
	cx := 0.05
	cy := 0.05
	for _, p := range pts {
		cx += float64(p.X) / 2 / float64(sz)
		cy += float64(p.Y) / 2 / float64(sz)
	}

	// Border polarity: gradients point dark-to-light, so a positive dot
	// product against the outward radial direction means a normal border
	// (dark tag frame, light surround).
	var dot float64
	for _, p := range pts {
		dot += (float64(p.X)/2-cx)*float64(p.Gx) + (float64(p.Y)/2-cy)*float64(p.Gy)
	}
	reversed := dot < 0
	if reversed && !reversedOK {
		return nil
	}
	if !reversed && !normalOK {
		return nil
	}

	for i := range pts {
		pts[i].Slope = math.Atan2(float64(pts[i].Y)/2-cy, float64(pts[i].X)/2-cx)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Slope != pts[j].Slope {
			return pts[i].Slope < pts[j].Slope
		}
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})

	lfps := buildLineFitPrefix(pts, im)

	corners, ok := quadSegmentMaxima(qp, lfps)
	if !ok {
		return nil
	}

	// Fit the four edge lines and intersect consecutive pairs.
	var lines [4]utils.Line
	for i := 0; i < 4; i++ {
		line, mse := fitLineRange(lfps, corners[i], corners[(i+1)%4])
		if mse > qp.MaxLineFitMSE {
			return nil
		}
		lines[i] = line
	}

	q := &Quad{ReversedBorder: reversed}
	for i := 0; i < 4; i++ {
		p, ok := lines[i].Intersect(lines[(i+1)%4])
		if !ok {
			return nil
		}
		q.Corners[(i+1)%4] = p
	}

	area := utils.SignedArea(q.Corners[:])
	if area < 0 {
		// Angular sort yields CCW order; a negative area means the
		// corner assignment crossed over itself.
		return nil
	}
	if area < 0.95*float64(minTagWidth)*float64(minTagWidth) {
		return nil
	}

	// Reject corners that are too close to straight (or reflex) angles.
	for i := 0; i < 4; i++ {
		a := q.Corners[i]
		b := q.Corners[(i+1)%4]
		c := q.Corners[(i+2)%4]
		d1x, d1y := b.X-a.X, b.Y-a.Y
		d2x, d2y := c.X-b.X, c.Y-b.Y
		n1 := math.Hypot(d1x, d1y)
		n2 := math.Hypot(d2x, d2y)
		if n1 < 1e-9 || n2 < 1e-9 {
			return nil
		}
		cosTheta := (d1x*d2x + d1y*d2y) / (n1 * n2)
		if math.Abs(cosTheta) > qp.CosCriticalRad {
			return nil
		}
		if d1x*d2y-d1y*d2x < 0 {
			// Non-convex turn; spurious corner combination.
			return nil
		}
	}
	return q
}
