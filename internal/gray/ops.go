package gray

import "math"

// Decimate downsamples the image by the given factor. A factor of 1.5 is
// handled specially by collapsing each 3x3 block into a weighted 2x2 block;
// other factors are truncated to integers and point-sampled. Factors <= 1
// return the receiver unchanged.
func (im *Image) Decimate(factor float64) *Image {
	if factor <= 1 {
		return im
	}
	if factor == 1.5 {
		return im.decimate32()
	}

	k := int(factor)
	sw := 1 + (im.Width-1)/k
	sh := 1 + (im.Height-1)/k
	out := New(sw, sh)
	for sy := 0; sy < sh; sy++ {
		y := sy * k
		for sx := 0; sx < sw; sx++ {
			out.Set(sx, sy, im.At(sx*k, y))
		}
	}
	return out
}

// decimate32 shrinks the image by 3/2: every 3x3 input block becomes a 2x2
// output block, with corner-weighted averaging.
func (im *Image) decimate32() *Image {
	sw := im.Width / 3 * 2
	sh := im.Height / 3 * 2
	out := New(sw, sh)

	for by := 0; by+2 < im.Height && by/3*2+1 < sh; by += 3 {
		oy := by / 3 * 2
		for bx := 0; bx+2 < im.Width && bx/3*2+1 < sw; bx += 3 {
			ox := bx / 3 * 2
			a := int(im.At(bx, by))
			b := int(im.At(bx+1, by))
			c := int(im.At(bx+2, by))
			d := int(im.At(bx, by+1))
			e := int(im.At(bx+1, by+1))
			f := int(im.At(bx+2, by+1))
			g := int(im.At(bx, by+2))
			h := int(im.At(bx+1, by+2))
			i := int(im.At(bx+2, by+2))

			out.Set(ox, oy, uint8((4*a+2*b+2*d+e)/9))
			out.Set(ox+1, oy, uint8((4*c+2*b+2*f+e)/9))
			out.Set(ox, oy+1, uint8((4*g+2*d+2*h+e)/9))
			out.Set(ox+1, oy+1, uint8((4*i+2*f+2*h+e)/9))
		}
	}
	return out
}

// GaussianBlur returns a blurred copy of the image. The kernel size is
// derived from sigma (4 sigma, rounded up to odd). Sigma values that produce
// a kernel of size 1 return a plain copy.
func (im *Image) GaussianBlur(sigma float64) *Image {
	ksz := int(4 * sigma)
	if ksz%2 == 0 {
		ksz++
	}
	if ksz <= 1 {
		return im.Clone()
	}
	kernel := gaussianKernel(sigma, ksz)

	// Separable convolution, horizontal then vertical.
	tmp := make([]float64, im.Height*im.Width)
	half := ksz / 2
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			var acc float64
			for k := 0; k < ksz; k++ {
				acc += kernel[k] * float64(im.AtClamped(x+k-half, y))
			}
			tmp[y*im.Width+x] = acc
		}
	}
	out := New(im.Width, im.Height)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			var acc float64
			for k := 0; k < ksz; k++ {
				yy := y + k - half
				if yy < 0 {
					yy = 0
				} else if yy >= im.Height {
					yy = im.Height - 1
				}
				acc += kernel[k] * tmp[yy*im.Width+x]
			}
			out.Set(x, y, clampU8(acc))
		}
	}
	return out
}

// Sharpen returns an unsharp-masked copy: 2*im - blur(im, sigma), clamped.
// Used when the configured blur sigma is negative.
func (im *Image) Sharpen(sigma float64) *Image {
	blurred := im.GaussianBlur(sigma)
	out := New(im.Width, im.Height)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			v := 2*int(im.At(x, y)) - int(blurred.At(x, y))
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Set(x, y, uint8(v))
		}
	}
	return out
}

func gaussianKernel(sigma float64, ksz int) []float64 {
	kernel := make([]float64, ksz)
	half := ksz / 2
	var sum float64
	for i := 0; i < ksz; i++ {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
