package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/testutil"
	"github.com/MeKo-Tech/fiducial/internal/utils"
)

// assembleFam is shared by the assembly tests; identity only, never decoded.
var assembleFam = testutil.GenerateFamily("t16-assemble", 6, 2, 6)

// rawAt builds a raw detection whose quad is an axis-aligned square of the
// given side centered at (cx, cy).
func rawAt(t *testing.T, fam *family.Family, id, hamming int, margin, cx, cy, side float64) rawDetection {
	t.Helper()
	half := side / 2
	q := &Quad{Corners: [4]utils.Point{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}}
	h, hinv, err := computeHomography(q.Corners)
	require.NoError(t, err)
	q.H, q.Hinv = h, hinv
	return rawDetection{family: fam, id: id, hamming: hamming, margin: margin, quad: q}
}

func TestAssembleBasic(t *testing.T) {
	fam := assembleFam
	raw := []rawDetection{
		rawAt(t, fam, 3, 0, 50, 100, 100, 40),
		rawAt(t, fam, 1, 0, 60, 200, 50, 40),
	}

	dets := assemble(raw)
	require.Len(t, dets, 2)

	// Deterministic order: by id within one family.
	assert.Equal(t, 1, dets[0].ID)
	assert.Equal(t, 3, dets[1].ID)

	for _, d := range dets {
		assert.Positive(t, utils.SignedArea(d.Corners[:]))
	}

	// Centers come from the homography.
	assert.InDelta(t, 200, dets[0].Center.X, 1e-9)
	assert.InDelta(t, 50, dets[0].Center.Y, 1e-9)
}

func TestAssembleRotationReordersCorners(t *testing.T) {
	fam := assembleFam
	r0 := rawAt(t, fam, 0, 0, 50, 100, 100, 40)
	r1 := rawAt(t, fam, 1, 0, 50, 200, 100, 40)
	r1.rotation = 1

	dets := assemble([]rawDetection{r0, r1})
	require.Len(t, dets, 2)

	// Rotation shifts which physical corner lands in slot 0, but the
	// corner set and the winding stay the same.
	q := r1.quad
	var want []utils.Point
	for i := 0; i < 4; i++ {
		want = append(want, q.Corners[i])
	}
	for _, c := range dets[1].Corners {
		found := false
		for _, w := range want {
			if c.Distance(w) < 1e-6 {
				found = true
				break
			}
		}
		assert.True(t, found, "corner %v not among quad corners", c)
	}
	assert.Positive(t, utils.SignedArea(dets[1].Corners[:]))
}

func TestDedupePrefersLowerHamming(t *testing.T) {
	fam := assembleFam
	raw := []rawDetection{
		rawAt(t, fam, 5, 2, 80, 100, 100, 40),
		rawAt(t, fam, 5, 0, 30, 101, 100, 40),
	}
	dets := assemble(raw)
	require.Len(t, dets, 1)
	assert.Equal(t, 0, dets[0].Hamming)
}

func TestDedupePrefersHigherMarginAtEqualHamming(t *testing.T) {
	fam := assembleFam
	raw := []rawDetection{
		rawAt(t, fam, 5, 1, 30, 100, 100, 40),
		rawAt(t, fam, 5, 1, 80, 100, 101, 40),
	}
	dets := assemble(raw)
	require.Len(t, dets, 1)
	assert.InDelta(t, 80, dets[0].DecisionMargin, 1e-9)
}

func TestDedupeKeepsDistinctTagsWithSameID(t *testing.T) {
	fam := assembleFam
	raw := []rawDetection{
		rawAt(t, fam, 5, 0, 50, 100, 100, 40),
		rawAt(t, fam, 5, 0, 50, 400, 100, 40),
	}
	dets := assemble(raw)
	assert.Len(t, dets, 2)
}

func TestAssembleEmptyInput(t *testing.T) {
	dets := assemble(nil)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}
