// Package config defines the application configuration for the tagscan CLI
// and maps it onto the detector's tuning parameters. Values are loaded from
// configuration files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/fiducial/internal/detector"
)

// Config is the complete tagscan configuration.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Family definition files to register before detecting.
	Families []string `mapstructure:"families" yaml:"families" json:"families"`

	// Detector tuning
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Output formatting
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// DetectorConfig contains detection pipeline settings.
type DetectorConfig struct {
	NumThreads       int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	QuadDecimate     float64 `mapstructure:"quad_decimate" yaml:"quad_decimate" json:"quad_decimate"`
	QuadSigma        float64 `mapstructure:"quad_sigma" yaml:"quad_sigma" json:"quad_sigma"`
	RefineEdges      bool    `mapstructure:"refine_edges" yaml:"refine_edges" json:"refine_edges"`
	DecodeSharpening float64 `mapstructure:"decode_sharpening" yaml:"decode_sharpening" json:"decode_sharpening"`
	MaxHammingBits   int     `mapstructure:"max_hamming_bits" yaml:"max_hamming_bits" json:"max_hamming_bits"`
	Debug            bool    `mapstructure:"debug" yaml:"debug" json:"debug"`

	Quad QuadConfig `mapstructure:"quad" yaml:"quad" json:"quad"`
}

// QuadConfig contains quad extraction tuning.
type QuadConfig struct {
	MinClusterPixels  int     `mapstructure:"min_cluster_pixels" yaml:"min_cluster_pixels" json:"min_cluster_pixels"`
	MaxMaxima         int     `mapstructure:"max_maxima" yaml:"max_maxima" json:"max_maxima"`
	CriticalAngleDeg  float64 `mapstructure:"critical_angle_deg" yaml:"critical_angle_deg" json:"critical_angle_deg"`
	MaxLineFitMSE     float64 `mapstructure:"max_line_fit_mse" yaml:"max_line_fit_mse" json:"max_line_fit_mse"`
	MinWhiteBlackDiff int     `mapstructure:"min_white_black_diff" yaml:"min_white_black_diff" json:"min_white_black_diff"`
	Deglitch          bool    `mapstructure:"deglitch" yaml:"deglitch" json:"deglitch"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	Precision int    `mapstructure:"precision" yaml:"precision" json:"precision"`
}

// DefaultConfig returns a Config mirroring the detector package defaults.
func DefaultConfig() *Config {
	d := detector.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Detector: DetectorConfig{
			NumThreads:       d.NThreads,
			QuadDecimate:     d.QuadDecimate,
			QuadSigma:        d.QuadSigma,
			RefineEdges:      d.RefineEdges,
			DecodeSharpening: d.DecodeSharpening,
			MaxHammingBits:   2,
			Quad: QuadConfig{
				MinClusterPixels:  d.QuadParams.MinClusterPixels,
				MaxMaxima:         d.QuadParams.MaxNMaxima,
				CriticalAngleDeg:  d.QuadParams.CriticalRad * 180 / math.Pi,
				MaxLineFitMSE:     d.QuadParams.MaxLineFitMSE,
				MinWhiteBlackDiff: d.QuadParams.MinWhiteBlackDiff,
				Deglitch:          d.QuadParams.Deglitch,
			},
		},
		Output: OutputConfig{
			Format:    "text",
			Precision: 2,
		},
	}
}

// Validate checks cross-field consistency of the configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	switch c.Output.Format {
	case "", "text", "json", "yaml":
	default:
		return fmt.Errorf("config: unknown output format %q", c.Output.Format)
	}
	if c.Detector.NumThreads < 0 {
		return fmt.Errorf("config: negative thread count %d", c.Detector.NumThreads)
	}
	if c.Detector.QuadDecimate < 0 {
		return fmt.Errorf("config: negative quad decimation %g", c.Detector.QuadDecimate)
	}
	if c.Detector.MaxHammingBits < 0 || c.Detector.MaxHammingBits > 3 {
		return fmt.Errorf("config: max hamming bits %d outside [0,3]", c.Detector.MaxHammingBits)
	}
	if c.Output.Precision < 0 {
		return fmt.Errorf("config: negative output precision %d", c.Output.Precision)
	}
	return nil
}

// ToDetector converts the file-level detector settings into the detector
// package's parameter struct.
func (c *DetectorConfig) ToDetector() detector.Config {
	return detector.Config{
		NThreads:         c.NumThreads,
		QuadDecimate:     c.QuadDecimate,
		QuadSigma:        c.QuadSigma,
		RefineEdges:      c.RefineEdges,
		DecodeSharpening: c.DecodeSharpening,
		Debug:            c.Debug,
		QuadParams: detector.QuadThreshParams{
			MinClusterPixels:  c.Quad.MinClusterPixels,
			MaxNMaxima:        c.Quad.MaxMaxima,
			CriticalRad:       c.Quad.CriticalAngleDeg * math.Pi / 180,
			MaxLineFitMSE:     c.Quad.MaxLineFitMSE,
			MinWhiteBlackDiff: c.Quad.MinWhiteBlackDiff,
			Deglitch:          c.Quad.Deglitch,
		},
	}
}
