package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/workers"
)

func newTestPool(t *testing.T, n int) *workers.Pool {
	t.Helper()
	p := workers.NewPool(n)
	t.Cleanup(p.Close)
	return p
}

func TestThresholdFlatImageIsAmbiguous(t *testing.T) {
	im := gray.New(32, 32)
	im.Fill(128)

	qp := DefaultConfig().QuadParams
	tim := threshold(im, qp, newTestPool(t, 1))
	defer releaseThreshim(tim)

	for y := 0; y < tim.Height; y++ {
		for x := 0; x < tim.Width; x++ {
			assert.Equal(t, uint8(pixelAmbiguous), tim.At(x, y))
		}
	}
}

func TestThresholdSeparatesHalves(t *testing.T) {
	im := gray.New(32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if x < 16 {
				im.Set(x, y, 20)
			} else {
				im.Set(x, y, 220)
			}
		}
	}

	qp := DefaultConfig().QuadParams
	tim := threshold(im, qp, newTestPool(t, 1))
	defer releaseThreshim(tim)

	// Near the boundary the tile neighborhood spans both halves, so the
	// local model separates them cleanly.
	assert.Equal(t, uint8(pixelBlack), tim.At(14, 16))
	assert.Equal(t, uint8(pixelWhite), tim.At(17, 16))

	// Deep inside a flat half there is no local contrast to model.
	assert.Equal(t, uint8(pixelAmbiguous), tim.At(2, 16))
	assert.Equal(t, uint8(pixelAmbiguous), tim.At(30, 16))
}

func TestThresholdTinyImage(t *testing.T) {
	im := gray.New(3, 3)
	im.Fill(200)

	qp := DefaultConfig().QuadParams
	tim := threshold(im, qp, newTestPool(t, 1))
	defer releaseThreshim(tim)

	require.Equal(t, 3, tim.Width)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, uint8(pixelAmbiguous), tim.At(x, y))
		}
	}
}

func TestThresholdThreadCountInvariant(t *testing.T) {
	im := gray.New(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			im.Set(x, y, uint8((x*7+y*13)%256)) //nolint:gosec // test pattern
		}
	}

	qp := DefaultConfig().QuadParams
	tim1 := threshold(im, qp, newTestPool(t, 1))
	defer releaseThreshim(tim1)
	tim4 := threshold(im, qp, newTestPool(t, 4))
	defer releaseThreshim(tim4)

	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			require.Equal(t, tim1.At(x, y), tim4.At(x, y), "at (%d,%d)", x, y)
		}
	}
}

func TestDeglitchFlipsIsolatedPixel(t *testing.T) {
	tim := gray.New(8, 8)
	tim.Fill(pixelWhite)
	tim.Set(4, 4, pixelBlack)

	deglitch(tim)
	assert.Equal(t, uint8(pixelWhite), tim.At(4, 4))
}

func TestDeglitchKeepsEdgesAndPairs(t *testing.T) {
	tim := gray.New(8, 8)
	tim.Fill(pixelWhite)
	// Two adjacent black pixels support each other.
	tim.Set(3, 3, pixelBlack)
	tim.Set(4, 3, pixelBlack)

	deglitch(tim)
	assert.Equal(t, uint8(pixelBlack), tim.At(3, 3))
	assert.Equal(t, uint8(pixelBlack), tim.At(4, 3))
}
