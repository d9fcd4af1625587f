package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/fiducial/internal/gray"
)

// makeThreshMap builds a classification map (stride == width) from a byte
// grid of 'b' (black), 'w' (white) and '.' (ambiguous) runes.
func makeThreshMap(rows []string) *gray.Image {
	h := len(rows)
	w := len(rows[0])
	im := &gray.Image{Width: w, Height: h, Stride: w, Pix: make([]uint8, w*h)}
	for y, row := range rows {
		for x, r := range row {
			switch r {
			case 'b':
				im.Pix[y*w+x] = pixelBlack
			case 'w':
				im.Pix[y*w+x] = pixelWhite
			default:
				im.Pix[y*w+x] = pixelAmbiguous
			}
		}
	}
	return im
}

func TestConnectedComponentsMergesRuns(t *testing.T) {
	tim := makeThreshMap([]string{
		"bbbbw",
		"b..bw",
		"bbbbw",
	})
	uf := connectedComponents(tim)

	w := tim.Width
	id := func(x, y int) uint32 { return uint32(y*w + x) }

	// The black frame is one component.
	assert.Equal(t, uf.find(id(0, 0)), uf.find(id(3, 2)))
	assert.Equal(t, uint32(10), uf.setSize(id(0, 0)))

	// The white column is separate.
	assert.NotEqual(t, uf.find(id(0, 0)), uf.find(id(4, 0)))
	assert.Equal(t, uint32(3), uf.setSize(id(4, 1)))
}

func TestConnectedComponentsWhiteDiagonal(t *testing.T) {
	// White pixels connect diagonally; black pixels do not.
	timWhite := makeThreshMap([]string{
		"w.",
		".w",
	})
	ufW := connectedComponents(timWhite)
	assert.Equal(t, ufW.find(0), ufW.find(3))

	timBlack := makeThreshMap([]string{
		"b.",
		".b",
	})
	ufB := connectedComponents(timBlack)
	assert.NotEqual(t, ufB.find(0), ufB.find(3))
}

func TestGradientClustersSquare(t *testing.T) {
	// A 6x6 black square centered in a white field, with an ambiguous
	// frame far outside so the image border plays no role.
	rows := make([]string, 14)
	for y := 0; y < 14; y++ {
		row := make([]byte, 14)
		for x := 0; x < 14; x++ {
			switch {
			case x >= 4 && x < 10 && y >= 4 && y < 10:
				row[x] = 'b'
			default:
				row[x] = 'w'
			}
		}
		rows[y] = string(row)
	}
	tim := makeThreshMap(rows)
	uf := connectedComponents(tim)

	clusters, nedges := gradientClusters(tim, uf, 4)
	require.Len(t, clusters, 1)
	assert.Positive(t, nedges)
	// The square's boundary contributes at least one point per border
	// pixel.
	assert.GreaterOrEqual(t, len(clusters[0].pts), 20)

	for _, p := range clusters[0].pts {
		// Doubled coordinates stay inside the doubled image bounds.
		assert.GreaterOrEqual(t, p.X, int32(0))
		assert.Less(t, p.X, int32(2*tim.Width))
		assert.GreaterOrEqual(t, p.Y, int32(0))
		assert.Less(t, p.Y, int32(2*tim.Height))
		// The gradient must be set and point dark to light.
		assert.True(t, p.Gx != 0 || p.Gy != 0)
	}
}

func TestGradientClustersMinSizeGate(t *testing.T) {
	// A 2x2 black blob produces a boundary, but both components must meet
	// the minimum size, and the cluster itself must have enough points.
	rows := []string{
		"wwwwww",
		"wwwwww",
		"wwbbww",
		"wwbbww",
		"wwwwww",
		"wwwwww",
	}
	tim := makeThreshMap(rows)
	uf := connectedComponents(tim)

	clusters, _ := gradientClusters(tim, uf, 100)
	assert.Empty(t, clusters)

	clusters, _ = gradientClusters(tim, uf, 1)
	assert.Len(t, clusters, 1)
}

func TestGradientClustersDeterministicOrder(t *testing.T) {
	rows := []string{
		"wwwwwwwwwwwwww",
		"wwwwwwwwwwwwww",
		"wwbbbwwwbbbwww",
		"wwbbbwwwbbbwww",
		"wwbbbwwwbbbwww",
		"wwwwwwwwwwwwww",
		"wwwwwwwwwwwwww",
	}
	first, _ := gradientClusters(makeThreshMap(rows), connectedComponents(makeThreshMap(rows)), 2)
	for _i := 0; _i < 10; _i++ {
		tim := makeThreshMap(rows)
		clusters, _ := gradientClusters(tim, connectedComponents(tim), 2)
		require.Len(t, clusters, len(first))
		for i := range clusters {
			require.Equal(t, len(first[i].pts), len(clusters[i].pts))
			require.Equal(t, first[i].pts[0], clusters[i].pts[0])
		}
	}
}
