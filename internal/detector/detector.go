// Package detector implements the fiducial tag detection pipeline:
// adaptive thresholding, boundary segmentation, quad fitting, homography
// estimation, and codeword decoding, parallelized across image tiles and
// candidate quads.
package detector

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/fiducial/internal/common"
	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/workers"
)

// familyEntry pairs a registered family with its error correction budget.
type familyEntry struct {
	fam     *family.Family
	maxBits int
}

// Stats holds per-call pipeline counters from the last detection.
type Stats struct {
	NEdges    uint32 // boundary points fed to the segmenter
	NSegments uint32 // clusters surviving the size gate
	NQuads    uint32 // quads that passed fitting
}

// Detector runs the detection pipeline. A detector is not reentrant: a
// single instance must not have two detection calls in flight, and its
// configuration must not be mutated during a call. Families may be shared
// across detectors only once their acceleration cache is warm.
type Detector struct {
	cfg Config

	mu       sync.Mutex // guards families
	families []familyEntry

	pool  *workers.Pool
	stats Stats
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) (*Detector, error) {
	cfg.normalize()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// Close releases the worker pool. The detector must be idle.
func (d *Detector) Close() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
}

// GetConfig returns a copy of the detector's configuration.
func (d *Detector) GetConfig() Config { return d.cfg }

// SetConfig replaces the configuration. Must not be called while a
// detection call is in flight.
func (d *Detector) SetConfig(cfg Config) error {
	cfg.normalize()
	if err := validateConfig(cfg); err != nil {
		return err
	}
	d.cfg = cfg
	return nil
}

// AddFamily registers a family with the default correction budget of two
// bits.
func (d *Detector) AddFamily(fam *family.Family) error {
	return d.AddFamilyBits(fam, 2)
}

// AddFamilyBits registers a family, accepting decodes with up to maxBits
// corrected bit errors. The budget is deliberately tighter than the
// family's own minimum separation to bound the false positive rate.
func (d *Detector) AddFamilyBits(fam *family.Family, maxBits int) error {
	if err := fam.Validate(); err != nil {
		return err
	}
	if maxBits < 0 || maxBits > maxCorrectableBits {
		return fmt.Errorf("detector: correction budget %d outside [0,%d]", maxBits, maxCorrectableBits)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.families {
		if e.fam == fam {
			d.families[i].maxBits = maxBits
			return nil
		}
	}
	d.families = append(d.families, familyEntry{fam: fam, maxBits: maxBits})
	return nil
}

// RemoveFamily unregisters a family. The family itself is caller-owned and
// is not touched.
func (d *Detector) RemoveFamily(fam *family.Family) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.families {
		if e.fam == fam {
			d.families = append(d.families[:i], d.families[i+1:]...)
			return
		}
	}
}

// ClearFamilies unregisters all families.
func (d *Detector) ClearFamilies() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.families = nil
}

// LastStats returns the pipeline counters from the most recent call.
func (d *Detector) LastStats() Stats { return d.stats }

func (d *Detector) ensurePool() *workers.Pool {
	if d.pool != nil && d.pool.Size() == d.cfg.NThreads {
		return d.pool
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.pool = workers.NewPool(d.cfg.NThreads)
	return d.pool
}

func (d *Detector) snapshotFamilies() []familyEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]familyEntry, len(d.families))
	copy(out, d.families)
	return out
}

// Detect finds all registered tags in the image. The call is synchronous:
// it returns only after both parallel pipeline regions have completed. An
// image without tags yields an empty, non-nil result.
func (d *Detector) Detect(im *gray.Image) (Detections, error) {
	raw, _, err := d.run(im, true)
	if err != nil {
		return nil, err
	}
	return assemble(raw), nil
}

// DetectQuads runs the geometric half of the pipeline only, returning the
// candidate quads (with homographies) without decoding them.
func (d *Detector) DetectQuads(im *gray.Image) ([]*Quad, error) {
	_, quads, err := d.run(im, false)
	return quads, err
}

// run executes the pipeline through quad fitting, refinement, homography
// estimation and (when decode is set) per-family decoding.
func (d *Detector) run(im *gray.Image, decode bool) ([]rawDetection, []*Quad, error) {
	if err := im.Validate(); err != nil {
		return nil, nil, err
	}
	cfg := d.cfg
	fams := d.snapshotFamilies()
	pool := d.ensurePool()
	total := common.NewNamedTimer("detect")

	// Stage 1: working image for quad detection. Decoding later samples
	// the original full-resolution input.
	quadIm := im
	if cfg.QuadDecimate > 1 {
		quadIm = im.Decimate(cfg.QuadDecimate)
	}
	if cfg.QuadSigma > 0 {
		quadIm = quadIm.GaussianBlur(cfg.QuadSigma)
	} else if cfg.QuadSigma < 0 {
		quadIm = quadIm.Sharpen(-cfg.QuadSigma)
	}

	// Stage 2: adaptive threshold (first parallel region, with its
	// barrier inside).
	tTh := common.NewNamedTimer("threshold")
	threshim := threshold(quadIm, cfg.QuadParams, pool)
	thDur := tTh.Stop()

	// Stage 3: segmentation.
	tSeg := common.NewNamedTimer("segment")
	uf := connectedComponents(threshim)
	clusters, nedges := gradientClusters(threshim, uf, cfg.QuadParams.MinClusterPixels)
	segDur := tSeg.Stop()
	releaseThreshim(threshim)

	d.stats = Stats{
		NEdges:    uint32(nedges),        //nolint:gosec // counter
		NSegments: uint32(len(clusters)), //nolint:gosec // counter
	}

	// Border polarity and minimum tag size follow from the registered
	// families. The quad-only entry point accepts both polarities.
	normalOK, reversedOK := !decode, !decode
	minTagWidth := 1 << 30
	for _, e := range fams {
		if e.fam.WidthAtBorder < minTagWidth {
			minTagWidth = e.fam.WidthAtBorder
		}
		if e.fam.ReversedBorder {
			reversedOK = true
		} else {
			normalOK = true
		}
	}
	if len(fams) == 0 {
		// Quad-only use with no registered families: no size hint.
		minTagWidth = 3
	}
	minTagWidth = int(float64(minTagWidth) / cfg.QuadDecimate)
	if minTagWidth < 3 {
		minTagWidth = 3
	}

	// Stage 4-7: fit, refine, estimate, decode - second parallel region,
	// chunked over clusters, merged after the pool barrier.
	tQuad := common.NewNamedTimer("quads")
	type taskOut struct {
		quads []*Quad
		dets  []rawDetection
	}
	chunk := workers.ChunkSize(len(clusters), pool.Size())
	ntasks := (len(clusters) + chunk - 1) / chunk
	outs := make([]taskOut, ntasks)
	for t := 0; t < ntasks; t++ {
		lo := t * chunk
		hi := min(lo+chunk, len(clusters))
		pool.Submit(func() {
			out := &outs[t]
			for _, cl := range clusters[lo:hi] {
				q := fitQuad(cfg.QuadParams, quadIm, cl, minTagWidth, normalOK, reversedOK)
				if q == nil {
					continue
				}
				scaleQuad(q, cfg.QuadDecimate)
				if cfg.RefineEdges && cfg.QuadDecimate > 1 {
					refineEdges(im, q, cfg.QuadDecimate)
				}
				h, hinv, err := computeHomography(q.Corners)
				if err != nil {
					continue
				}
				q.H, q.Hinv = h, hinv
				out.quads = append(out.quads, q)
				if !decode {
					continue
				}
				for _, e := range fams {
					if det, ok := quadDecode(e.fam, e.maxBits, im, q, cfg.DecodeSharpening); ok {
						out.dets = append(out.dets, det)
					}
				}
			}
		})
	}
	pool.Run()
	quadDur := tQuad.Stop()

	var quads []*Quad
	var raw []rawDetection
	for _, out := range outs {
		quads = append(quads, out.quads...)
		raw = append(raw, out.dets...)
	}
	d.stats.NQuads = uint32(len(quads)) //nolint:gosec // counter

	if cfg.Debug {
		slog.Debug("detection pipeline finished",
			"threshold", thDur,
			"segment", segDur,
			"quads", quadDur,
			"total", total.Stop(),
			"nedges", nedges,
			"nsegments", len(clusters),
			"nquads", len(quads),
			"ndecodes", len(raw))
	}
	return raw, quads, nil
}

// scaleQuad maps quad corners fitted on the decimated working image back to
// full-resolution pixel coordinates.
func scaleQuad(q *Quad, decimate float64) {
	if decimate <= 1 {
		return
	}
	factor := decimate
	if decimate != 1.5 {
		factor = float64(int(decimate))
	}
	for i := 0; i < 4; i++ {
		q.Corners[i].X *= factor
		q.Corners[i].Y *= factor
	}
}
