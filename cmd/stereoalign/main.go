// Command stereoalign runs the feature-based alignment pipeline: prep
// warps the right image into the left frame before correlation, and
// correct maps a disparity field computed on the aligned pair back into
// the original image geometry.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"jitreg/internal/alignment"
	"jitreg/internal/cache"
	"jitreg/internal/disparity"
	"jitreg/internal/feature"
	"jitreg/internal/raster"
	"jitreg/internal/version"
)

const defaultMatchRatio = 0.75

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := &cobra.Command{
		Use:           "stereoalign",
		Short:         "Feature-based pre-alignment and disparity correction",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPrepCmd(log))
	root.AddCommand(newCorrectCmd(log))

	if err := root.Execute(); err != nil {
		log.Error("stereoalign failed", "err", err)
		os.Exit(1)
	}
}

func newPrepCmd(log *slog.Logger) *cobra.Command {
	var (
		outPrefix string
		trials    int
		grid      bool
	)

	cmd := &cobra.Command{
		Use:   "prep <left> <right>",
		Short: "Align the right image into the left frame and persist the transform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrep(log, args[0], args[1], outPrefix, trials, grid)
		},
	}
	cmd.Flags().StringVar(&outPrefix, "out-prefix", "stereo", "Output path prefix")
	cmd.Flags().IntVar(&trials, "trials", alignment.DefaultTrials, "RANSAC trial count")
	cmd.Flags().BoolVar(&grid, "grid", false, "Write tiled grid rasters instead of PNG, for strips too large to decode whole")
	return cmd
}

func runPrep(log *slog.Logger, leftPath, rightPath, outPrefix string, trials int, grid bool) error {
	left, err := raster.LoadGray(leftPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", leftPath, err)
	}
	right, err := raster.LoadGray(rightPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rightPath, err)
	}

	// Stretch both inputs to a shared range so detection thresholds
	// behave the same on either image.
	leftNorm := raster.Normalize(left, raster.MinMax(left))
	rightNorm := raster.Normalize(right, raster.MinMax(right))

	store, err := newFeatureStore(outPrefix, log)
	if err != nil {
		return err
	}

	aligner := alignment.NewAligner(store, outPrefix, trials, log)
	alignedL, alignedR, err := aligner.Prep(leftPath, rightPath, leftNorm, rightNorm, nil, nil)
	if err != nil {
		return err
	}

	save, ext := raster.SaveGrayPNG, ".png"
	if grid {
		save = func(path string, img raster.Image) error {
			return raster.WriteGridFile(path, img, raster.DefaultTileSize)
		}
		ext = ".jrg"
	}

	leftOut := outPrefix + "-L" + ext
	rightOut := outPrefix + "-R" + ext
	if err := save(leftOut, alignedL); err != nil {
		return fmt.Errorf("writing %s: %w", leftOut, err)
	}
	if err := save(rightOut, alignedR); err != nil {
		return fmt.Errorf("writing %s: %w", rightOut, err)
	}
	log.Info("wrote pre-aligned pair", "left", leftOut, "right", rightOut)
	return nil
}

func newCorrectCmd(log *slog.Logger) *cobra.Command {
	var (
		outPrefix string
		rightPath string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "correct <disparity>",
		Short: "Map an aligned-frame disparity field back to the original geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrect(log, args[0], outPrefix, rightPath, outPath)
		},
	}
	cmd.Flags().StringVar(&outPrefix, "out-prefix", "stereo", "Prefix used during prep")
	cmd.Flags().StringVar(&rightPath, "right", "", "Original right image, for bounds checking")
	cmd.Flags().StringVar(&outPath, "out", "", "Corrected field path (default <disparity>-corrected.jdf)")
	_ = cmd.MarkFlagRequired("right")
	return cmd
}

func runCorrect(log *slog.Logger, fieldPath, outPrefix, rightPath, outPath string) error {
	field, err := disparity.ReadFile(fieldPath)
	if err != nil {
		return fmt.Errorf("loading disparity field %s: %w", fieldPath, err)
	}

	right, err := raster.LoadGray(rightPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rightPath, err)
	}

	store, err := newFeatureStore(outPrefix, log)
	if err != nil {
		return err
	}

	aligner := alignment.NewAligner(store, outPrefix, alignment.DefaultTrials, log)
	corrected, err := aligner.Correct(field, right.Cols(), right.Rows(), nil, nil)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(fieldPath, filepath.Ext(fieldPath)) + "-corrected.jdf"
	}
	if err := disparity.WriteFile(outPath, corrected); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	log.Info("wrote corrected disparity field",
		"path", outPath, "valid", corrected.ValidCount())
	return nil
}

// newFeatureStore keeps the interest-point cache next to the other
// prefix outputs so repeated runs reuse detection and matching work.
func newFeatureStore(outPrefix string, log *slog.Logger) (*feature.Store, error) {
	dir := filepath.Dir(outPrefix)
	cacheStore, err := cache.NewDirStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache dir %s: %w", dir, err)
	}
	det := feature.ORBDetector{}
	matcher := feature.NewRatioMatcher(defaultMatchRatio, true)
	return feature.NewStore(cacheStore, det, matcher, log), nil
}
