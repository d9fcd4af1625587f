package gray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimateIdentity(t *testing.T) {
	im := New(8, 8)
	assert.Same(t, im, im.Decimate(1))
	assert.Same(t, im, im.Decimate(0.5))
}

func TestDecimateInteger(t *testing.T) {
	im := New(9, 9)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			im.Set(x, y, uint8(10*y+x))
		}
	}
	out := im.Decimate(2)
	require.Equal(t, 5, out.Width)
	require.Equal(t, 5, out.Height)

	// Point sampling keeps every second source pixel.
	for sy := 0; sy < out.Height; sy++ {
		for sx := 0; sx < out.Width; sx++ {
			assert.Equal(t, im.At(2*sx, 2*sy), out.At(sx, sy))
		}
	}
}

func TestDecimateThreeHalves(t *testing.T) {
	im := New(9, 9)
	im.Fill(90)
	out := im.Decimate(1.5)
	require.Equal(t, 6, out.Width)
	require.Equal(t, 6, out.Height)

	// Averaging a constant image keeps the constant.
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			assert.Equal(t, uint8(90), out.At(x, y))
		}
	}
}

func TestGaussianBlurConstant(t *testing.T) {
	im := New(16, 16)
	im.Fill(128)
	out := im.GaussianBlur(0.8)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			assert.InDelta(t, 128, float64(out.At(x, y)), 1)
		}
	}
}

func TestGaussianBlurTinySigmaCopies(t *testing.T) {
	im := New(8, 8)
	im.Set(4, 4, 255)
	out := im.GaussianBlur(0.1)
	assert.NotSame(t, im, out)
	assert.Equal(t, im.Pix, out.Pix)
}

func TestGaussianBlurSpreadsEdges(t *testing.T) {
	im := New(16, 16)
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			im.Set(x, y, 255)
		}
	}
	out := im.GaussianBlur(1.0)

	// The step edge must be softened on both sides.
	assert.Greater(t, out.At(7, 8), uint8(0))
	assert.Less(t, out.At(8, 8), uint8(255))
	// Far from the edge the image is untouched.
	assert.Equal(t, uint8(0), out.At(0, 8))
	assert.Equal(t, uint8(255), out.At(15, 8))
}

func TestSharpenConstant(t *testing.T) {
	im := New(12, 12)
	im.Fill(100)
	out := im.Sharpen(0.8)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			assert.InDelta(t, 100, float64(out.At(x, y)), 1)
		}
	}
}

func TestSharpenSteepensEdge(t *testing.T) {
	im := New(16, 16)
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			im.Set(x, y, 200)
		}
	}
	blurred := im.GaussianBlur(1.0)
	out := blurred.Sharpen(1.0)

	// Sharpening the blurred step must increase the contrast across it.
	blurContrast := int(blurred.At(9, 8)) - int(blurred.At(6, 8))
	sharpContrast := int(out.At(9, 8)) - int(out.At(6, 8))
	assert.GreaterOrEqual(t, sharpContrast, blurContrast)
}
