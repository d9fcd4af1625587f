// Package testutil provides synthetic tag families and scene renderers for
// detector tests. Families are generated with a fixed seed so fixtures stay
// stable across runs.
package testutil

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/MeKo-Tech/fiducial/internal/family"
)

// GenerateFamily builds a synthetic tag family with the standard bit layout
// for the given border width. Codewords are selected greedily from a seeded
// pseudo-random stream so that every pair of codes, under every relative
// rotation, differs in at least minHamming bits. Panics when the parameters
// cannot yield the requested count; test parameters are chosen to fit.
func GenerateFamily(name string, widthAtBorder, count, minHamming int) *family.Family {
	bitX, bitY := family.StandardBitLayout(widthAtBorder)
	nbits := len(bitX)
	if nbits <= 0 || nbits > 64 {
		panic(fmt.Sprintf("testutil: bad layout width %d", widthAtBorder))
	}

	mask := ^uint64(0)
	if nbits < 64 {
		mask = (uint64(1) << nbits) - 1
	}

	rng := rand.New(rand.NewSource(0x7a95)) //nolint:gosec // deterministic fixtures
	var codes []uint64

	const maxAttempts = 1 << 22
	for attempt := 0; len(codes) < count; attempt++ {
		if attempt >= maxAttempts {
			panic(fmt.Sprintf("testutil: only %d/%d codes for width %d h%d",
				len(codes), count, widthAtBorder, minHamming))
		}
		c := rng.Uint64() & mask
		if admissible(c, codes, nbits, minHamming) {
			codes = append(codes, c)
		}
	}

	return &family.Family{
		Name:          name,
		Codes:         codes,
		NBits:         nbits,
		BitX:          bitX,
		BitY:          bitY,
		WidthAtBorder: widthAtBorder,
		TotalWidth:    widthAtBorder + 2,
		MinHamming:    minHamming,
	}
}

// admissible reports whether candidate c keeps the family's rotational
// minimum distance: every rotation of c must be far from every accepted code,
// and c must be far from its own nontrivial rotations so a tag's orientation
// stays decodable.
func admissible(c uint64, codes []uint64, nbits, minHamming int) bool {
	r := c
	for rot := 0; rot < 4; rot++ {
		if rot > 0 {
			r = family.Rotate90(r, nbits)
			if bits.OnesCount64(c^r) < minHamming {
				return false
			}
		}
		for _, a := range codes {
			if bits.OnesCount64(a^r) < minHamming {
				return false
			}
		}
	}
	return true
}
