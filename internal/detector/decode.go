package detector

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/mempool"
)

// maxCorrectableBits caps the registered error correction budget; larger
// radii consume prohibitive amounts of table memory and sharply raise the
// false positive rate.
const maxCorrectableBits = 3

// quickDecodeEntry maps a (possibly corrupted) codeword to the family code
// it decodes as.
type quickDecodeEntry struct {
	id      uint16
	hamming uint8
}

// quickDecode is the per-family decode acceleration cache: every codeword
// within the correctable Hamming radius of a family code, keyed for O(1)
// lookup. Built lazily on first use by the owning detector.
type quickDecode struct {
	variant string
	table   map[uint64]quickDecodeEntry
}

// Variant implements family.AccelCache.
func (q *quickDecode) Variant() string { return q.variant }

func quickDecodeVariant(maxHamming int) string {
	return fmt.Sprintf("quickdecode/h=%d", maxHamming)
}

func buildQuickDecode(fam *family.Family, maxHamming int) *quickDecode {
	q := &quickDecode{
		variant: quickDecodeVariant(maxHamming),
		table:   make(map[uint64]quickDecodeEntry, len(fam.Codes)),
	}
	put := func(word uint64, id int, hamming int) {
		e, exists := q.table[word]
		if exists && int(e.hamming) <= hamming {
			return
		}
		q.table[word] = quickDecodeEntry{id: uint16(id), hamming: uint8(hamming)} //nolint:gosec // bounded values
	}
	n := fam.NBits
	for id, code := range fam.Codes {
		put(code, id, 0)
		if maxHamming < 1 {
			continue
		}
		for i := 0; i < n; i++ {
			put(code^(uint64(1)<<i), id, 1)
		}
		if maxHamming < 2 {
			continue
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				put(code^(uint64(1)<<i)^(uint64(1)<<j), id, 2)
			}
		}
		if maxHamming < 3 {
			continue
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				for k := j + 1; k < n; k++ {
					put(code^(uint64(1)<<i)^(uint64(1)<<j)^(uint64(1)<<k), id, 3)
				}
			}
		}
	}
	return q
}

// lookup searches the table under all four quarter-turn rotations of the
// sampled word.
func (q *quickDecode) lookup(word uint64, nbits int) (id, hamming, rotation int, ok bool) {
	for r := 0; r < 4; r++ {
		if e, found := q.table[word]; found {
			return int(e.id), int(e.hamming), r, true
		}
		word = family.Rotate90(word, nbits)
	}
	return 0, 0, 0, false
}

// grayModel fits an intensity plane v = Cx*x + Cy*y + C1 over sampled
// calibration points, giving a locally varying black or white reference.
type grayModel struct {
	a [3][3]float64
	b [3]float64
	c [3]float64
	n int
}

func (g *grayModel) add(x, y, v float64) {
	g.a[0][0] += x * x
	g.a[0][1] += x * y
	g.a[0][2] += x
	g.a[1][1] += y * y
	g.a[1][2] += y
	g.a[2][2] += 1
	g.b[0] += x * v
	g.b[1] += y * v
	g.b[2] += v
	g.n++
}

func (g *grayModel) solve() {
	if g.n >= 3 {
		a := mat.NewDense(3, 3, []float64{
			g.a[0][0], g.a[0][1], g.a[0][2],
			g.a[0][1], g.a[1][1], g.a[1][2],
			g.a[0][2], g.a[1][2], g.a[2][2],
		})
		b := mat.NewVecDense(3, []float64{g.b[0], g.b[1], g.b[2]})
		var sol mat.VecDense
		if err := sol.SolveVec(a, b); err == nil {
			g.c[0] = sol.AtVec(0)
			g.c[1] = sol.AtVec(1)
			g.c[2] = sol.AtVec(2)
			return
		}
	}
	// Too few samples or a singular system: fall back to a flat model.
	g.c[0], g.c[1] = 0, 0
	if g.n > 0 {
		g.c[2] = g.b[2] / float64(g.n)
	}
}

func (g *grayModel) interpolate(x, y float64) float64 {
	return g.c[0]*x + g.c[1]*y + g.c[2]
}

// rawDetection is one successful decode of a quad against a family, before
// deduplication.
type rawDetection struct {
	family   *family.Family
	id       int
	hamming  int
	margin   float64
	rotation int
	quad     *Quad
}

// quadDecode samples the family's data bits under the quad's homography
// from the full-resolution image, classifies them against border-calibrated
// black/white models, optionally sharpens, and searches for the nearest
// codeword within the registered Hamming bound. A miss is a silent
// rejection, not an error.
func quadDecode(fam *family.Family, maxHamming int, im *gray.Image, q *Quad, sharpening float64) (rawDetection, bool) {
	if q.ReversedBorder != fam.ReversedBorder {
		return rawDetection{}, false
	}
	accel := fam.Accel(quickDecodeVariant(maxHamming), func() family.AccelCache {
		return buildQuickDecode(fam, maxHamming)
	})
	qd, ok := accel.(*quickDecode)
	if !ok {
		return rawDetection{}, false
	}

	wab := float64(fam.WidthAtBorder)

	// Calibration sample runs along each side of the border: a white run
	// just outside and a black run just inside.
	patterns := [8][5]float64{
		{-0.5, 0.5, 0, 1, 1},
		{0.5, 0.5, 0, 1, 0},
		{wab + 0.5, 0.5, 0, 1, 1},
		{wab - 0.5, 0.5, 0, 1, 0},
		{0.5, -0.5, 1, 0, 1},
		{0.5, 0.5, 1, 0, 0},
		{0.5, wab + 0.5, 1, 0, 1},
		{0.5, wab - 0.5, 1, 0, 0},
	}

	var whiteModel, blackModel grayModel
	for _, pat := range patterns {
		isWhite := pat[4] != 0
		if fam.ReversedBorder {
			isWhite = !isWhite
		}
		for i := 0; i < fam.WidthAtBorder; i++ {
			tagx := 2 * ((pat[0]+float64(i)*pat[2])/wab - 0.5)
			tagy := 2 * ((pat[1]+float64(i)*pat[3])/wab - 0.5)
			p := project(q.H, tagx, tagy)
			v := im.InterpolateBilinear(p.X, p.Y)
			if v < 0 {
				continue
			}
			if isWhite {
				whiteModel.add(tagx, tagy, v)
			} else {
				blackModel.add(tagx, tagy, v)
			}
		}
	}
	whiteModel.solve()
	blackModel.solve()

	if whiteModel.interpolate(0, 0)-blackModel.interpolate(0, 0) < 0 {
		return rawDetection{}, false
	}

	// Sample each data bit relative to its local decision threshold.
	gridSize := fam.TotalWidth
	values := mempool.GetFloat64(gridSize * gridSize)
	defer mempool.PutFloat64(values)
	bias := (fam.TotalWidth - fam.WidthAtBorder) / 2
	for i := 0; i < fam.NBits; i++ {
		tagx := 2 * ((float64(fam.BitX[i])+0.5)/wab - 0.5)
		tagy := 2 * ((float64(fam.BitY[i])+0.5)/wab - 0.5)
		p := project(q.H, tagx, tagy)
		v := im.InterpolateBilinear(p.X, p.Y)
		if v < 0 {
			continue
		}
		thresh := (blackModel.interpolate(tagx, tagy) + whiteModel.interpolate(tagx, tagy)) / 2
		values[(fam.BitY[i]+bias)*gridSize+fam.BitX[i]+bias] = v - thresh
	}

	if sharpening > 0 {
		sharpenValues(values, gridSize, sharpening)
	}

	var rcode uint64
	var whiteScore, blackScore float64
	var whiteCount, blackCount int
	for i := 0; i < fam.NBits; i++ {
		v := values[(fam.BitY[i]+bias)*gridSize+fam.BitX[i]+bias]
		rcode <<= 1
		if v > 0 {
			rcode |= 1
			whiteScore += v
			whiteCount++
		} else {
			blackScore -= v
			blackCount++
		}
	}

	id, hamming, rotation, found := qd.lookup(rcode, fam.NBits)
	if !found {
		return rawDetection{}, false
	}

	margin := 0.0
	if whiteCount > 0 && blackCount > 0 {
		margin = min(whiteScore/float64(whiteCount), blackScore/float64(blackCount))
	}

	return rawDetection{
		family:   fam,
		id:       id,
		hamming:  hamming,
		margin:   margin,
		rotation: rotation,
		quad:     q,
	}, true
}

// sharpenValues applies a 3x3 Laplacian scaled by the configured sharpening
// amount to the sampled bit grid, amplifying each bit's distance from the
// decision boundary.
func sharpenValues(values []float64, size int, amount float64) {
	sharpened := mempool.GetFloat64(size * size)
	defer mempool.PutFloat64(sharpened)

	kernel := [3][3]float64{
		{0, -1, 0},
		{-1, 4, -1},
		{0, -1, 0},
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var acc float64
			for ky := 0; ky < 3; ky++ {
				yy := y + ky - 1
				if yy < 0 || yy >= size {
					continue
				}
				for kx := 0; kx < 3; kx++ {
					xx := x + kx - 1
					if xx < 0 || xx >= size {
						continue
					}
					acc += values[yy*size+xx] * kernel[ky][kx]
				}
			}
			sharpened[y*size+x] = acc
		}
	}
	for i := 0; i < size*size; i++ {
		values[i] += amount * sharpened[i]
	}
}
