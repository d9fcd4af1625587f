package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/fiducial/internal/config"
	"github.com/MeKo-Tech/fiducial/internal/detector"
	"github.com/MeKo-Tech/fiducial/internal/family"
	"github.com/MeKo-Tech/fiducial/internal/gray"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
)

// detectionRecord is the serializable form of one detection.
type detectionRecord struct {
	File    string        `json:"file" yaml:"file"`
	Family  string        `json:"family" yaml:"family"`
	ID      int           `json:"id" yaml:"id"`
	Hamming int           `json:"hamming" yaml:"hamming"`
	Margin  float64       `json:"margin" yaml:"margin"`
	Center  [2]float64    `json:"center" yaml:"center"`
	Corners [4][2]float64 `json:"corners" yaml:"corners"`
}

// detectCmd finds tags in one or more images.
var detectCmd = &cobra.Command{
	Use:   "detect [images...]",
	Short: "Detect fiducial tags in images",
	Long: `Detect fiducial tags in one or more image files.

Supported formats: PNG, JPEG, BMP

Examples:
  tagscan detect photo.png --family tag36h11.yaml
  tagscan detect *.jpg --family tags.yaml --format json --output results.json
  tagscan detect noisy.png --family tags.yaml --decimate 1 --sigma 0.8`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if len(cfg.Families) == 0 {
			return errors.New("no tag families given (use --family)")
		}

		det, err := detector.NewDetector(cfg.Detector.ToDetector())
		if err != nil {
			return err
		}
		defer det.Close()

		for _, path := range cfg.Families {
			fam, err := family.LoadFile(path)
			if err != nil {
				return err
			}
			if err := det.AddFamilyBits(fam, cfg.Detector.MaxHammingBits); err != nil {
				return err
			}
		}

		var records []detectionRecord
		for _, path := range args {
			im, err := gray.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			dets, err := det.Detect(im)
			if err != nil {
				return fmt.Errorf("detecting in %s: %w", path, err)
			}
			for _, d := range dets {
				rec := detectionRecord{
					File:    path,
					Family:  d.Family.Name,
					ID:      d.ID,
					Hamming: d.Hamming,
					Margin:  d.DecisionMargin,
					Center:  [2]float64{d.Center.X, d.Center.Y},
				}
				for i, c := range d.Corners {
					rec.Corners[i] = [2]float64{c.X, c.Y}
				}
				records = append(records, rec)
			}
		}

		out := cmd.OutOrStdout()
		if cfg.Output.File != "" {
			f, err := os.Create(cfg.Output.File)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		return writeRecords(out, records, cfg.Output.Format, cfg.Output.Precision)
	},
}

func writeRecords(w io.Writer, records []detectionRecord, format string, precision int) error {
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case outputFormatYAML:
		return yaml.NewEncoder(w).Encode(records)
	case outputFormatText, "":
		for _, r := range records {
			_, err := fmt.Fprintf(w, "%s: %s id=%d hamming=%d margin=%.*f center=(%.*f,%.*f)\n",
				r.File, r.Family, r.ID, r.Hamming,
				precision, r.Margin, precision, r.Center[0], precision, r.Center[1])
			if err != nil {
				return err
			}
		}
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "no tags found")
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

func init() {
	rootCmd.AddCommand(detectCmd)

	// Flag defaults mirror the config defaults so an unchanged flag and an
	// unset config key resolve to the same value.
	d := config.DefaultConfig()
	detectCmd.Flags().StringSlice("family", nil, "family definition file (repeatable)")
	detectCmd.Flags().Int("threads", d.Detector.NumThreads, "worker threads for the parallel pipeline stages")
	detectCmd.Flags().Float64("decimate", d.Detector.QuadDecimate, "quad detection decimation factor")
	detectCmd.Flags().Float64("sigma", d.Detector.QuadSigma, "Gaussian blur sigma for quad detection (negative sharpens)")
	detectCmd.Flags().Bool("refine-edges", d.Detector.RefineEdges, "snap quad edges to full-resolution gradients")
	detectCmd.Flags().Float64("sharpening", d.Detector.DecodeSharpening, "decode sharpening amount")
	detectCmd.Flags().Int("max-hamming", d.Detector.MaxHammingBits, "maximum bit errors to correct when decoding")
	detectCmd.Flags().StringP("format", "f", d.Output.Format, "output format (text, json, yaml)")
	detectCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	_ = viper.BindPFlag("families", detectCmd.Flags().Lookup("family"))
	_ = viper.BindPFlag("detector.num_threads", detectCmd.Flags().Lookup("threads"))
	_ = viper.BindPFlag("detector.quad_decimate", detectCmd.Flags().Lookup("decimate"))
	_ = viper.BindPFlag("detector.quad_sigma", detectCmd.Flags().Lookup("sigma"))
	_ = viper.BindPFlag("detector.refine_edges", detectCmd.Flags().Lookup("refine-edges"))
	_ = viper.BindPFlag("detector.decode_sharpening", detectCmd.Flags().Lookup("sharpening"))
	_ = viper.BindPFlag("detector.max_hamming_bits", detectCmd.Flags().Lookup("max-hamming"))
	_ = viper.BindPFlag("output.format", detectCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output.file", detectCmd.Flags().Lookup("output"))
}
