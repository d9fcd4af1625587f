package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/fiducial/internal/gray"
)

func TestRenderSceneGeometry(t *testing.T) {
	fam := GenerateFamily("r16", 6, 2, 6)
	scene, err := RenderScene(fam, 0, 8, 24)
	require.NoError(t, err)

	// 8 cells at 8 px plus a 24 px margin on each side.
	assert.Equal(t, 112, scene.Image.Width)
	assert.Equal(t, 112, scene.Image.Height)

	// The border starts one cell inside the rendered tile.
	assert.Equal(t, 31.5, scene.Corners[0].X)
	assert.Equal(t, 31.5, scene.Corners[0].Y)
	assert.Equal(t, 79.5, scene.Corners[2].X)
	assert.Equal(t, 79.5, scene.Corners[2].Y)
	assert.Equal(t, 55.5, scene.Center.X)

	// Margin is white, border ring is black.
	assert.Equal(t, uint8(255), scene.Image.At(5, 5))
	assert.Equal(t, uint8(0), scene.Image.At(36, 36))
}

func TestRenderSceneBadID(t *testing.T) {
	fam := GenerateFamily("r16", 6, 2, 6)
	_, err := RenderScene(fam, 99, 8, 24)
	assert.Error(t, err)
}

func TestUpscale(t *testing.T) {
	im := gray.New(2, 2)
	im.Set(0, 0, 10)
	im.Set(1, 0, 20)
	im.Set(0, 1, 30)
	im.Set(1, 1, 40)

	up := Upscale(im, 3)
	assert.Equal(t, 6, up.Width)
	assert.Equal(t, 6, up.Height)
	assert.Equal(t, uint8(10), up.At(2, 2))
	assert.Equal(t, uint8(20), up.At(3, 0))
	assert.Equal(t, uint8(30), up.At(0, 5))
	assert.Equal(t, uint8(40), up.At(5, 5))

	// Factor one clones rather than aliasing.
	same := Upscale(im, 1)
	assert.Equal(t, im.Pix, same.Pix)
	same.Set(0, 0, 99)
	assert.Equal(t, uint8(10), im.At(0, 0))
}

func TestPasteClipped(t *testing.T) {
	dst := gray.New(4, 4)
	src := gray.New(3, 3)
	src.Fill(200)

	// Partially off the top-left corner.
	Paste(dst, src, -1, -1)
	assert.Equal(t, uint8(200), dst.At(0, 0))
	assert.Equal(t, uint8(200), dst.At(1, 1))
	assert.Equal(t, uint8(0), dst.At(2, 2))

	// Partially off the bottom-right corner.
	Paste(dst, src, 3, 3)
	assert.Equal(t, uint8(200), dst.At(3, 3))
}

func TestRotateQuarters(t *testing.T) {
	im := gray.New(4, 2)
	im.Set(0, 0, 50)
	im.Set(3, 1, 90)

	r1 := RotateQuarters(im, 1)
	assert.Equal(t, 2, r1.Width)
	assert.Equal(t, 4, r1.Height)

	r0 := RotateQuarters(im, 0)
	assert.Equal(t, im.Pix, r0.Pix)

	r4 := RotateQuarters(im, 4)
	assert.Equal(t, im.Width, r4.Width)
	assert.Equal(t, im.Pix, r4.Pix)
}
