package detector

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/utils"
)

// Detection is one decoded tag. The Family reference is non-owning (family
// lifetime is managed by the caller); everything else is owned by the
// detection and handed to the caller with the returned set.
type Detection struct {
	// Family the tag belongs to.
	Family *family.Family

	// ID is the decoded codeword index within the family.
	ID int

	// Hamming is the number of bit errors corrected during decode. Never
	// exceeds the correction budget the family was registered with.
	Hamming int

	// DecisionMargin is the average distance of each sampled bit from its
	// local decision threshold; larger is a cleaner decode. Always
	// non-negative.
	DecisionMargin float64

	// H maps the idealized tag square (corners at (±1, ±1)) to image
	// pixels, oriented to the decoded rotation.
	H *mat.Dense

	// Center of the tag in image pixel coordinates.
	Center utils.Point

	// Corners in counter-clockwise order.
	Corners [4]utils.Point
}

// String summarizes the detection for logs.
func (d *Detection) String() string {
	return fmt.Sprintf("%s id=%d hamming=%d margin=%.1f center=(%.1f,%.1f)",
		d.Family.Name, d.ID, d.Hamming, d.DecisionMargin, d.Center.X, d.Center.Y)
}

// Detections is the ordered result of one detection call. Ownership
// transfers to the caller; an empty (non-nil) set means no tags were found,
// which is success.
type Detections []*Detection
