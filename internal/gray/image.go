// Package gray provides the 8-bit grayscale image buffer consumed by the
// tag detection pipeline, along with the resampling operations (decimation,
// Gaussian blur, sharpening) used to build the working image.
package gray

import (
	"errors"
	"fmt"
)

// Stride is padded to a multiple of 8 bytes so row starts stay aligned.
const strideAlign = 8

// Image is a grayscale image with an explicit row stride.
// Pixel (x, y) lives at Pix[y*Stride+x].
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// ErrEmptyImage is returned when an operation receives a nil or
// zero-dimension image.
var ErrEmptyImage = errors.New("gray: empty image")

// New allocates a zeroed image of the given dimensions.
func New(width, height int) *Image {
	stride := width
	if r := stride % strideAlign; r != 0 {
		stride += strideAlign - r
	}
	return &Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]uint8, height*stride),
	}
}

// Validate reports whether the image is usable as pipeline input.
func (im *Image) Validate() error {
	if im == nil || im.Width <= 0 || im.Height <= 0 {
		return ErrEmptyImage
	}
	if len(im.Pix) < im.Height*im.Stride {
		return fmt.Errorf("gray: pixel buffer too small: have %d, need %d", len(im.Pix), im.Height*im.Stride)
	}
	return nil
}

// At returns the pixel value at (x, y). Bounds are not checked.
func (im *Image) At(x, y int) uint8 {
	return im.Pix[y*im.Stride+x]
}

// Set writes the pixel value at (x, y). Bounds are not checked.
func (im *Image) Set(x, y int, v uint8) {
	im.Pix[y*im.Stride+x] = v
}

// AtClamped returns the pixel value at (x, y) with coordinates clamped to
// the image bounds.
func (im *Image) AtClamped(x, y int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= im.Width {
		x = im.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= im.Height {
		y = im.Height - 1
	}
	return im.Pix[y*im.Stride+x]
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{
		Width:  im.Width,
		Height: im.Height,
		Stride: im.Stride,
		Pix:    make([]uint8, len(im.Pix)),
	}
	copy(out.Pix, im.Pix)
	return out
}

// Fill sets every pixel to v.
func (im *Image) Fill(v uint8) {
	for y := 0; y < im.Height; y++ {
		row := im.Pix[y*im.Stride : y*im.Stride+im.Width]
		for x := range row {
			row[x] = v
		}
	}
}

// InterpolateBilinear samples the image at a fractional coordinate using
// bilinear interpolation. Coordinates outside the image return -1 so the
// caller can skip the sample.
func (im *Image) InterpolateBilinear(x, y float64) float64 {
	x1 := int(x)
	y1 := int(y)
	if x < 0 || y < 0 || x1+1 >= im.Width || y1+1 >= im.Height {
		return -1
	}
	fx := x - float64(x1)
	fy := y - float64(y1)

	v00 := float64(im.At(x1, y1))
	v10 := float64(im.At(x1+1, y1))
	v01 := float64(im.At(x1, y1+1))
	v11 := float64(im.At(x1+1, y1+1))

	return v00*(1-fx)*(1-fy) + v10*fx*(1-fy) + v01*(1-fx)*fy + v11*fx*fy
}
