package gray

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
)

// FromImage converts any decoded image to a grayscale buffer.
func FromImage(img image.Image) *Image {
	g := imaging.Grayscale(img)
	bounds := g.Bounds()
	out := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			// NRGBA from imaging.Grayscale has R==G==B.
			out.Set(x, y, g.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R)
		}
	}
	return out
}

// ToImage converts the buffer back to a standard library grayscale image.
func (im *Image) ToImage() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+im.Width], im.Pix[y*im.Stride:y*im.Stride+im.Width])
	}
	return out
}

// LoadFile decodes a PNG/JPEG/BMP file into a grayscale buffer.
func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: reading a user-provided image path is expected
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing image file: %v\n", cerr)
		}
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// SavePNG writes the buffer to a PNG file.
func (im *Image) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: writing a user-provided output path is expected
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing image file: %v\n", cerr)
		}
	}()

	if err := png.Encode(f, im.ToImage()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
