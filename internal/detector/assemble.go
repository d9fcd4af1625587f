package detector

import (
	"math"
	"sort"
)

// assemble turns raw decodes into detection records, deduplicates quads
// that resolved to the same physical tag via different orientations or
// border interpretations, and imposes a deterministic output order
// independent of thread scheduling.
func assemble(raw []rawDetection) Detections {
	dets := make(Detections, 0, len(raw))
	for _, r := range raw {
		h := rotateHomography(r.quad.H, r.rotation)
		det := &Detection{
			Family:         r.family,
			ID:             r.id,
			Hamming:        r.hamming,
			DecisionMargin: r.margin,
			H:              h,
			Center:         project(h, 0, 0),
		}
		for i := 0; i < 4; i++ {
			det.Corners[i] = project(h, idealCorners[i][0], idealCorners[i][1])
		}
		dets = append(dets, det)
	}

	dets = dedupe(dets)

	sort.SliceStable(dets, func(i, j int) bool {
		a, b := dets[i], dets[j]
		if a.Family.Name != b.Family.Name {
			return a.Family.Name < b.Family.Name
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		return a.Center.X < b.Center.X
	})
	return dets
}

// dedupe collapses detections with the same family and id whose centers lie
// within a tag-relative tolerance, keeping the one with fewer corrected
// bits, then the higher decision margin.
func dedupe(dets Detections) Detections {
	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] {
				continue
			}
			a, b := dets[i], dets[j]
			if a.Family != b.Family || a.ID != b.ID {
				continue
			}
			tol := 0.5 * math.Min(minEdgeLen(a), minEdgeLen(b))
			if a.Center.Distance(b.Center) > tol {
				// Genuinely distinct physical tags with the same id.
				continue
			}
			if better(b, a) {
				suppressed[i] = true
				break
			}
			suppressed[j] = true
		}
	}

	out := dets[:0]
	for i, d := range dets {
		if !suppressed[i] {
			out = append(out, d)
		}
	}
	return out
}

// better reports whether a is a preferable decode over b of the same tag.
func better(a, b *Detection) bool {
	if a.Hamming != b.Hamming {
		return a.Hamming < b.Hamming
	}
	return a.DecisionMargin > b.DecisionMargin
}

func minEdgeLen(d *Detection) float64 {
	m := math.MaxFloat64
	for i := 0; i < 4; i++ {
		l := d.Corners[i].Distance(d.Corners[(i+1)%4])
		if l < m {
			m = l
		}
	}
	return m
}
