package testutil

import (
	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/MeKo-Tech/fiducial/internal/utils"
	"github.com/disintegration/imaging"
)

// Scene is a rendered test image with ground truth for one tag.
type Scene struct {
	Image *gray.Image

	// Corners of the detection border in image coordinates, counter
	// clockwise from the top-left. Cell boundaries sit half a pixel before
	// the first pixel of a cell, matching the detector's convention.
	Corners [4]utils.Point

	Center utils.Point
}

// RenderScene draws family member id at scale pixels per cell onto a white
// canvas with the given pixel margin on every side.
func RenderScene(fam *family.Family, id, scale, margin int) (Scene, error) {
	tile, err := fam.RenderImage(id)
	if err != nil {
		return Scene{}, err
	}
	tag := Upscale(tile, scale)

	canvas := gray.New(tag.Width+2*margin, tag.Height+2*margin)
	canvas.Fill(255)
	Paste(canvas, tag, margin, margin)

	bs := (fam.TotalWidth - fam.WidthAtBorder) / 2
	x0 := float64(margin+bs*scale) - 0.5
	x1 := float64(margin+(bs+fam.WidthAtBorder)*scale) - 0.5
	s := Scene{
		Image: canvas,
		Corners: [4]utils.Point{
			{X: x0, Y: x0},
			{X: x1, Y: x0},
			{X: x1, Y: x1},
			{X: x0, Y: x1},
		},
		Center: utils.Point{X: (x0 + x1) / 2, Y: (x0 + x1) / 2},
	}
	return s, nil
}

// Upscale magnifies the image by an integer factor with nearest-neighbor
// sampling, keeping cell edges sharp.
func Upscale(im *gray.Image, scale int) *gray.Image {
	if scale <= 1 {
		return im.Clone()
	}
	out := gray.New(im.Width*scale, im.Height*scale)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, im.At(x/scale, y/scale))
		}
	}
	return out
}

// Paste copies src into dst with its top-left at (ox, oy). Pixels falling
// outside dst are dropped.
func Paste(dst, src *gray.Image, ox, oy int) {
	for y := 0; y < src.Height; y++ {
		dy := oy + y
		if dy < 0 || dy >= dst.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			dx := ox + x
			if dx < 0 || dx >= dst.Width {
				continue
			}
			dst.Set(dx, dy, src.At(x, y))
		}
	}
}

// RotateQuarters returns the image rotated counter-clockwise by k quarter
// turns.
func RotateQuarters(im *gray.Image, k int) *gray.Image {
	out := im
	for _i := 0; _i < ((k%4)+4)%4; _i++ {
		out = gray.FromImage(imaging.Rotate90(out.ToImage()))
	}
	return out
}
