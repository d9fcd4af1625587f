package family

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk representation of a family table. Codes are hex
// strings; the bit layout may be omitted when the family uses the standard
// layout for its border width.
type fileFormat struct {
	Name           string   `yaml:"name" json:"name"`
	Codes          []string `yaml:"codes" json:"codes"`
	NBits          int      `yaml:"nbits" json:"nbits"`
	BitX           []int    `yaml:"bit_x,omitempty" json:"bit_x,omitempty"`
	BitY           []int    `yaml:"bit_y,omitempty" json:"bit_y,omitempty"`
	WidthAtBorder  int      `yaml:"width_at_border" json:"width_at_border"`
	TotalWidth     int      `yaml:"total_width" json:"total_width"`
	ReversedBorder bool     `yaml:"reversed_border" json:"reversed_border"`
	MinHamming     int      `yaml:"min_hamming" json:"min_hamming"`
}

// LoadFile reads a family table from a YAML (or JSON) file.
func LoadFile(path string) (*Family, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied path
	if err != nil {
		return nil, fmt.Errorf("family: reading %s: %w", path, err)
	}
	fam, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("family: parsing %s: %w", path, err)
	}
	return fam, nil
}

// Parse decodes a family table from YAML or JSON bytes.
func Parse(data []byte) (*Family, error) {
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, err
	}

	f := &Family{
		Name:           ff.Name,
		NBits:          ff.NBits,
		BitX:           ff.BitX,
		BitY:           ff.BitY,
		WidthAtBorder:  ff.WidthAtBorder,
		TotalWidth:     ff.TotalWidth,
		ReversedBorder: ff.ReversedBorder,
		MinHamming:     ff.MinHamming,
	}
	if len(f.BitX) == 0 && len(f.BitY) == 0 {
		f.BitX, f.BitY = StandardBitLayout(f.WidthAtBorder)
	}
	if ff.NBits == 0 {
		f.NBits = len(f.BitX)
	}

	f.Codes = make([]uint64, 0, len(ff.Codes))
	for i, s := range ff.Codes {
		c, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("code %d (%q): %w", i, s, err)
		}
		f.Codes = append(f.Codes, c)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveFile writes the family table as YAML.
func SaveFile(f *Family, path string) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ff := fileFormat{
		Name:           f.Name,
		Codes:          make([]string, len(f.Codes)),
		NBits:          f.NBits,
		BitX:           f.BitX,
		BitY:           f.BitY,
		WidthAtBorder:  f.WidthAtBorder,
		TotalWidth:     f.TotalWidth,
		ReversedBorder: f.ReversedBorder,
		MinHamming:     f.MinHamming,
	}
	for i, c := range f.Codes {
		ff.Codes[i] = fmt.Sprintf("0x%016x", c)
	}
	data, err := yaml.Marshal(&ff)
	if err != nil {
		return fmt.Errorf("family: encoding %s: %w", f.Name, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("family: writing %s: %w", path, err)
	}
	return nil
}
