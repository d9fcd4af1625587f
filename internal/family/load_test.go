package family

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fam := testFamily()
	path := filepath.Join(t.TempDir(), "fam.yaml")
	require.NoError(t, SaveFile(fam, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fam.Name, loaded.Name)
	assert.Equal(t, fam.Codes, loaded.Codes)
	assert.Equal(t, fam.NBits, loaded.NBits)
	assert.Equal(t, fam.BitX, loaded.BitX)
	assert.Equal(t, fam.BitY, loaded.BitY)
	assert.Equal(t, fam.WidthAtBorder, loaded.WidthAtBorder)
	assert.Equal(t, fam.TotalWidth, loaded.TotalWidth)
	assert.Equal(t, fam.MinHamming, loaded.MinHamming)
}

func TestParseDefaultLayout(t *testing.T) {
	doc := []byte(`
name: mini
codes: ["0x3", "0xc"]
width_at_border: 4
total_width: 6
min_hamming: 2
`)
	fam, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "mini", fam.Name)
	assert.Equal(t, []uint64{3, 12}, fam.Codes)

	// Layout defaults to the standard 2x2 grid for width 4.
	wantX, wantY := StandardBitLayout(4)
	assert.Equal(t, wantX, fam.BitX)
	assert.Equal(t, wantY, fam.BitY)
	assert.Equal(t, len(wantX), fam.NBits)
}

func TestParseBadHex(t *testing.T) {
	doc := []byte(`
name: broken
codes: ["zzzz"]
width_at_border: 4
total_width: 6
`)
	_, err := Parse(doc)
	assert.Error(t, err)
}

func TestParseInvalidGeometry(t *testing.T) {
	doc := []byte(`
name: broken
codes: ["0x1"]
width_at_border: 6
total_width: 4
`)
	_, err := Parse(doc)
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{nope"), 0o600))
	_, err := LoadFile(path)
	assert.Error(t, err)
}
