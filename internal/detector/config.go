package detector

import (
	"errors"
	"fmt"
	"math"
)

// QuadThreshParams tunes the adaptive threshold and quad fitting stages.
type QuadThreshParams struct {
	// MinClusterPixels rejects boundary clusters containing fewer pixels.
	MinClusterPixels int

	// MaxNMaxima bounds how many corner candidates are considered when
	// segmenting a cluster into a quad.
	MaxNMaxima int

	// CriticalRad rejects quads with corner angles closer than this to 0
	// or pi radians. CosCriticalRad is derived; zero CriticalRad disables
	// the check.
	CriticalRad    float64
	CosCriticalRad float64

	// MaxLineFitMSE is the maximum mean squared error tolerated when
	// fitting lines to cluster boundaries. Rejecting bad contours here
	// saves expensive decoding downstream.
	MaxLineFitMSE float64

	// MinWhiteBlackDiff is the minimum intensity separation between the
	// local white and black models; tiles below it are left ambiguous.
	MinWhiteBlackDiff int

	// Deglitch removes isolated misclassified pixels from the threshold
	// map. Only useful for very noisy images.
	Deglitch bool
}

// Config holds the user-tunable detector parameters. Fields may be changed
// between detection calls via SetConfig, but never while a call is in
// flight.
type Config struct {
	// NThreads is the worker count for the parallel pipeline regions.
	NThreads int

	// QuadDecimate detects quads on a lower-resolution image, improving
	// speed at some cost in pose accuracy. Decoding always reads the
	// full-resolution input.
	QuadDecimate float64

	// QuadSigma is the Gaussian blur (in pixels) applied to the working
	// image; negative values sharpen instead. Zero disables.
	QuadSigma float64

	// RefineEdges snaps quad edges to strong gradients in the
	// full-resolution image. Ignored unless QuadDecimate > 1.
	RefineEdges bool

	// DecodeSharpening is how much sharpening is applied to sampled bit
	// values before thresholding. Helps small tags.
	DecodeSharpening float64

	// Debug enables verbose stage logging.
	Debug bool

	QuadParams QuadThreshParams
}

// DefaultConfig returns the standard detector tuning.
func DefaultConfig() Config {
	return Config{
		NThreads:         1,
		QuadDecimate:     2.0,
		QuadSigma:        0.0,
		RefineEdges:      true,
		DecodeSharpening: 0.25,
		Debug:            false,
		QuadParams: QuadThreshParams{
			MinClusterPixels:  5,
			MaxNMaxima:        10,
			CriticalRad:       10 * math.Pi / 180,
			CosCriticalRad:    math.Cos(10 * math.Pi / 180),
			MaxLineFitMSE:     10.0,
			MinWhiteBlackDiff: 5,
			Deglitch:          false,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.NThreads < 0 {
		return errors.New("detector: negative thread count")
	}
	if cfg.QuadDecimate < 0 {
		return errors.New("detector: negative quad decimation")
	}
	if cfg.DecodeSharpening < 0 {
		return errors.New("detector: negative decode sharpening")
	}
	if cfg.QuadParams.MaxNMaxima < 4 {
		return fmt.Errorf("detector: max_nmaxima %d below 4", cfg.QuadParams.MaxNMaxima)
	}
	return nil
}

// normalize fills derived and defaulted fields.
func (c *Config) normalize() {
	if c.NThreads == 0 {
		c.NThreads = 1
	}
	if c.QuadDecimate == 0 {
		c.QuadDecimate = 1
	}
	if c.QuadParams.CriticalRad > 0 {
		c.QuadParams.CosCriticalRad = math.Cos(c.QuadParams.CriticalRad)
	} else {
		c.QuadParams.CosCriticalRad = 1
	}
}
