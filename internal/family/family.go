// Package family defines the tag family data consumed by the detector: the
// codeword set, the spatial bit layout, and the border geometry. Family
// tables are externally generated data; this package only carries and
// renders them.
package family

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/fiducial/internal/gray"
)

// Family is an immutable set of codewords plus their spatial layout within
// a square marker. A family may be shared between detectors, but its decode
// acceleration cache must only be warmed and used by one detector at a time.
type Family struct {
	// Name is a human-readable identifier, e.g. "tag36h11".
	Name string

	// Codes holds the codewords, bit 0 of the layout at the MSB end.
	Codes []uint64

	// NBits is the number of data bits; BitX/BitY give each bit's cell
	// coordinate relative to the border grid, listed in rotational order
	// (quarter blocks) so codeword rotation matches spatial rotation.
	NBits int
	BitX  []int
	BitY  []int

	// WidthAtBorder is the tag width in cells measured at the outer edge
	// of the detection border; TotalWidth includes the outer quiet zone.
	WidthAtBorder int
	TotalWidth    int

	// ReversedBorder marks families whose border polarity is inverted
	// (light border on dark surround).
	ReversedBorder bool

	// MinHamming is the guaranteed minimum pairwise Hamming distance
	// between codewords, e.g. 11 for tag36h11. Trusted, never verified.
	MinHamming int

	mu    sync.Mutex
	accel AccelCache
}

// AccelCache is an opaque decode acceleration structure built lazily by a
// decoder implementation. The variant key ties the cache to the decoder
// parameters it was built for.
type AccelCache interface {
	Variant() string
}

// Validate checks the structural consistency of the family tables.
func (f *Family) Validate() error {
	if f == nil {
		return errors.New("family: nil family")
	}
	if f.NBits <= 0 || f.NBits > 64 {
		return fmt.Errorf("family %s: unsupported bit count %d", f.Name, f.NBits)
	}
	if len(f.BitX) != f.NBits || len(f.BitY) != f.NBits {
		return fmt.Errorf("family %s: bit layout length mismatch", f.Name)
	}
	if len(f.Codes) == 0 {
		return fmt.Errorf("family %s: no codewords", f.Name)
	}
	if f.WidthAtBorder <= 0 || f.TotalWidth < f.WidthAtBorder {
		return fmt.Errorf("family %s: invalid border geometry %d/%d", f.Name, f.WidthAtBorder, f.TotalWidth)
	}
	return nil
}

// Accel returns the family's acceleration cache for the given decoder
// variant, building it on first use. A cache built for a different variant
// is replaced. Sharing one family instance between detectors with an active
// cache is not supported; the lock only serializes the build itself.
func (f *Family) Accel(variant string, build func() AccelCache) AccelCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accel != nil && f.accel.Variant() == variant {
		return f.accel
	}
	f.accel = build()
	return f.accel
}

// Rotate90 rotates a codeword by a quarter turn. Bit layouts list bits in
// rotational quarter blocks (with an odd center bit, if any, last), so
// rotating the word corresponds to rotating the tag.
func Rotate90(w uint64, numBits int) uint64 {
	p := numBits
	var l uint64
	if numBits%4 == 1 {
		p = numBits - 1
		l = 1
	}
	w = ((w >> l) << (uint(p)/4 + uint(l))) | (w >> (3*uint(p)/4 + uint(l)) << l) | (w & l)
	if numBits < 64 {
		w &= (uint64(1) << numBits) - 1
	}
	return w
}

// RenderImage renders family member idx as a grayscale image with one pixel
// per cell: black border, white quiet zone, data bits per the layout.
func (f *Family) RenderImage(idx int) (*gray.Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(f.Codes) {
		return nil, fmt.Errorf("family %s: code index %d out of range [0,%d)", f.Name, idx, len(f.Codes))
	}

	im := gray.New(f.TotalWidth, f.TotalWidth)

	// Quiet zone: a one-cell white ring just outside the detection border
	// for normal families, or coinciding with it for reversed ones.
	whiteWidth := f.WidthAtBorder
	if !f.ReversedBorder {
		whiteWidth += 2
	}
	ws := (f.TotalWidth - whiteWidth) / 2
	for i := 0; i < whiteWidth; i++ {
		im.Set(ws+i, ws, 255)
		im.Set(ws+i, ws+whiteWidth-1, 255)
		im.Set(ws, ws+i, 255)
		im.Set(ws+whiteWidth-1, ws+i, 255)
	}

	// Data bits, MSB first.
	code := f.Codes[idx]
	bs := (f.TotalWidth - f.WidthAtBorder) / 2
	for i := 0; i < f.NBits; i++ {
		if code&(uint64(1)<<(f.NBits-1-i)) != 0 {
			im.Set(f.BitX[i]+bs, f.BitY[i]+bs, 255)
		}
	}
	return im, nil
}

// StandardBitLayout returns the conventional bit layout for a family whose
// data cells fill the (widthAtBorder-2)^2 grid inside a one-cell border.
// Bits are emitted in four rotational quarter blocks so that Rotate90 on
// the codeword matches a quarter-turn of the tag; an odd center cell is
// emitted last.
func StandardBitLayout(widthAtBorder int) (bitX, bitY []int) {
	d := widthAtBorder - 2

	// Representative wedge: one cell per 4-rotation orbit.
	type cell struct{ x, y int }
	var quarter []cell
	for y := 1; y <= d/2; y++ {
		for x := y; x <= d-y; x++ {
			quarter = append(quarter, cell{x, y})
		}
	}

	rot := func(c cell) cell { return cell{x: d + 1 - c.y, y: c.x} }
	for r := 0; r < 4; r++ {
		for _, c := range quarter {
			bitX = append(bitX, c.x)
			bitY = append(bitY, c.y)
		}
		for i, c := range quarter {
			quarter[i] = rot(c)
		}
	}
	if d%2 == 1 {
		bitX = append(bitX, (d+1)/2)
		bitY = append(bitY, (d+1)/2)
	}
	return bitX, bitY
}
