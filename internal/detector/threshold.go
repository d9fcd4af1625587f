package detector

import (
	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/mempool"
	"github.com/MeKo-Tech/fiducial/internal/workers"
)

// Threshold map pixel classes.
const (
	pixelBlack     = 0
	pixelAmbiguous = 127
	pixelWhite     = 255
)

// threshTileSize is the side of the tiles used to build the local
// black/white intensity model.
const threshTileSize = 4

// tileModel holds the per-tile intensity extrema.
type tileModel struct {
	min uint8
	max uint8
}

// threshold classifies every working-image pixel as black, white, or
// ambiguous using a tiled local intensity model. The per-tile extrema are
// computed in parallel on the pool; the neighbor smoothing pass reads
// adjacent tiles' results and therefore only starts after the pool barrier.
func threshold(im *gray.Image, qp QuadThreshParams, pool *workers.Pool) *gray.Image {
	w, h := im.Width, im.Height
	tw := w / threshTileSize
	th := h / threshTileSize

	threshim := &gray.Image{Width: w, Height: h, Stride: w, Pix: mempool.GetUint8(w * h)}
	if tw == 0 || th == 0 {
		// Image smaller than one tile: nothing reliable to model.
		for i := range threshim.Pix {
			threshim.Pix[i] = pixelAmbiguous
		}
		return threshim
	}

	// Phase 1: per-tile min/max, independent per tile.
	tiles := make([]tileModel, tw*th)
	chunk := workers.ChunkSize(th, pool.Size())
	for ty0 := 0; ty0 < th; ty0 += chunk {
		ty1 := min(ty0+chunk, th)
		pool.Submit(func() {
			computeTileExtrema(im, tiles, tw, ty0, ty1)
		})
	}
	pool.Run()

	// Phase 2: smooth the model across 3x3 tile neighborhoods, then
	// classify each pixel against the interpolated threshold.
	smoothed := make([]tileModel, tw*th)
	for ty := 0; ty < th; ty++ {
		for tx := 0; tx < tw; tx++ {
			lo, hi := uint8(255), uint8(0)
			for dy := -1; dy <= 1; dy++ {
				ny := ty + dy
				if ny < 0 || ny >= th {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := tx + dx
					if nx < 0 || nx >= tw {
						continue
					}
					t := tiles[ny*tw+nx]
					if t.min < lo {
						lo = t.min
					}
					if t.max > hi {
						hi = t.max
					}
				}
			}
			smoothed[ty*tw+tx] = tileModel{min: lo, max: hi}
		}
	}

	for y := 0; y < h; y++ {
		ty := min(y/threshTileSize, th-1)
		for x := 0; x < w; x++ {
			tx := min(x/threshTileSize, tw-1)
			t := smoothed[ty*tw+tx]
			if int(t.max)-int(t.min) < qp.MinWhiteBlackDiff {
				threshim.Pix[y*w+x] = pixelAmbiguous
				continue
			}
			thresh := t.min + (t.max-t.min)/2
			if im.At(x, y) > thresh {
				threshim.Pix[y*w+x] = pixelWhite
			} else {
				threshim.Pix[y*w+x] = pixelBlack
			}
		}
	}

	if qp.Deglitch {
		deglitch(threshim)
	}
	return threshim
}

func computeTileExtrema(im *gray.Image, tiles []tileModel, tw, ty0, ty1 int) {
	for ty := ty0; ty < ty1; ty++ {
		for tx := 0; tx < tw; tx++ {
			lo, hi := uint8(255), uint8(0)
			for dy := 0; dy < threshTileSize; dy++ {
				y := ty*threshTileSize + dy
				for dx := 0; dx < threshTileSize; dx++ {
					v := im.At(tx*threshTileSize+dx, y)
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
			}
			tiles[ty*tw+tx] = tileModel{min: lo, max: hi}
		}
	}
}

// deglitch flips pixels whose eight neighbors all carry the opposite
// black/white class. Ambiguous pixels and image borders are left alone.
func deglitch(tim *gray.Image) {
	w, h := tim.Width, tim.Height
	orig := mempool.GetUint8(w * h)
	defer mempool.PutUint8(orig)
	copy(orig, tim.Pix[:w*h])

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := orig[y*w+x]
			if v == pixelAmbiguous {
				continue
			}
			opp := pixelWhite - v
			isolated := true
			for dy := -1; dy <= 1 && isolated; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if orig[(y+dy)*w+x+dx] != opp {
						isolated = false
						break
					}
				}
			}
			if isolated {
				tim.Pix[y*w+x] = opp
			}
		}
	}
}

// releaseThreshim returns the classification map's buffer to the pool.
func releaseThreshim(tim *gray.Image) {
	mempool.PutUint8(tim.Pix)
	tim.Pix = nil
}
