package detector

import (
	"sort"

	"github.com/MeKo-Tech/fiducial/internal/gray"
)

// clusterPoint is one boundary sample between a black and a white connected
// component. Coordinates are doubled so boundary midpoints land on integer
// values; Gx/Gy point from the dark side toward the light side.
type clusterPoint struct {
	X, Y   int32
	Gx, Gy int16
	Slope  float64 // angle sort key, filled in by the quad fitter
}

// cluster is the set of boundary points shared by one (black, white)
// component pair.
type cluster struct {
	pts []clusterPoint
}

// connectedComponents merges same-class pixels of the threshold map into
// components. Black and white pixels use 4-connectivity; white pixels
// additionally merge diagonally, which keeps tag borders from fusing with
// checkerboard-adjacent black regions.
func connectedComponents(tim *gray.Image) *unionFind {
	w, h := tim.Width, tim.Height
	uf := newUnionFind(w * h)

	for y := 0; y < h; y++ {
		row := tim.Pix[y*w : y*w+w]
		for x := 0; x < w; x++ {
			v := row[x]
			if v == pixelAmbiguous {
				continue
			}
			id := uint32(y*w + x)
			if x > 0 && v == row[x-1] {
				uf.union(id, id-1)
			}
			if y > 0 {
				up := tim.Pix[(y-1)*w : (y-1)*w+w]
				if v == up[x] {
					uf.union(id, id-uint32(w))
				}
				if v == pixelWhite {
					if x > 0 && v == up[x-1] {
						uf.union(id, id-uint32(w)-1)
					}
					if x+1 < w && v == up[x+1] {
						uf.union(id, id-uint32(w)+1)
					}
				}
			}
		}
	}
	return uf
}

// gradientClusters walks black/white transitions of the threshold map and
// groups boundary points by the pair of components they separate. Pairs
// whose components are below the minimum cluster size are skipped early.
// The second return value counts all boundary points found.
func gradientClusters(tim *gray.Image, uf *unionFind, minClusterPixels int) ([]cluster, int) {
	w, h := tim.Width, tim.Height
	buckets := make(map[uint64][]clusterPoint)

	// Neighbor offsets considered for boundary transitions.
	offsets := [4][2]int32{{1, 0}, {0, 1}, {-1, 1}, {1, 1}}

	minSize := uint32(minClusterPixels) //nolint:gosec // bounded config value

	for y := int32(1); y < int32(h)-1; y++ {
		for x := int32(1); x < int32(w)-1; x++ {
			v0 := tim.Pix[y*int32(w)+x]
			if v0 == pixelAmbiguous {
				continue
			}
			for _, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || nx >= int32(w) || ny >= int32(h) {
					continue
				}
				v1 := tim.Pix[ny*int32(w)+nx]
				if int(v0)+int(v1) != pixelBlack+pixelWhite {
					continue
				}
				rep0 := uf.find(uint32(y)*uint32(w) + uint32(x))
				rep1 := uf.find(uint32(ny)*uint32(w) + uint32(nx))
				if uf.size[rep0] < minSize || uf.size[rep1] < minSize {
					continue
				}
				if rep0 > rep1 {
					rep0, rep1 = rep1, rep0
				}
				key := uint64(rep0)<<32 | uint64(rep1)
				grad := int16(int(v1) - int(v0))
				buckets[key] = append(buckets[key], clusterPoint{
					X:  2*x + off[0],
					Y:  2*y + off[1],
					Gx: int16(off[0]) * grad,
					Gy: int16(off[1]) * grad,
				})
			}
		}
	}

	// Deterministic cluster order regardless of map iteration.
	nedges := 0
	keys := make([]uint64, 0, len(buckets))
	for k, pts := range buckets {
		nedges += len(pts)
		if len(pts) < minClusterPixels {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	clusters := make([]cluster, 0, len(keys))
	for _, k := range keys {
		clusters = append(clusters, cluster{pts: buckets[k]})
	}
	return clusters, nedges
}
