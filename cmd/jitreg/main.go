// Command jitreg estimates the global sample/line offset between two
// nearly-aligned grayscale images by windowed correlation over a
// central crop band.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jitreg/internal/correlate"
	"jitreg/internal/offset"
	"jitreg/internal/raster"
	"jitreg/internal/version"
)

type params struct {
	hMin, hMax int
	vMin, vMax int
	xKernel    int
	yKernel    int
	lrThresh   int
	corrType   int
	pyramid    bool
	cropWidth  int
	logSigma   float64
	rowLogPath string
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := newRootCmd(log).Execute(); err != nil {
		log.Error("jitreg failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(log *slog.Logger) *cobra.Command {
	var p params

	cmd := &cobra.Command{
		Use:   "jitreg <left> <right>",
		Short: "Estimate the mean sample/line offset between two images",
		Long: `jitreg runs a windowed disparity search between the central bands of
two nearly-aligned grayscale images and reduces the result to global
mean sample (horizontal) and line (vertical) offsets.`,
		Args:          cobra.ExactArgs(2),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(log, args[0], args[1], p)
		},
	}

	f := cmd.Flags()
	f.IntVar(&p.hMin, "h-corr-min", -30, "Minimum horizontal disparity")
	f.IntVar(&p.hMax, "h-corr-max", 30, "Maximum horizontal disparity")
	f.IntVar(&p.vMin, "v-corr-min", -5, "Minimum vertical disparity")
	f.IntVar(&p.vMax, "v-corr-max", 5, "Maximum vertical disparity")
	f.IntVar(&p.xKernel, "xkernel", 15, "Correlation kernel width (odd)")
	f.IntVar(&p.yKernel, "ykernel", 15, "Correlation kernel height (odd)")
	f.IntVar(&p.lrThresh, "lrthresh", 2, "Left/right consistency threshold in pixels (negative disables)")
	f.IntVar(&p.corrType, "correlator-type", 0, "Cost function: 0 absolute difference, 1 squared difference, 2 cross correlation")
	f.BoolVar(&p.pyramid, "pyramid", false, "Use pyramidal coarse-to-fine search")
	f.IntVar(&p.cropWidth, "crop-width", 300, "Width of the central band to correlate")
	f.Float64Var(&p.logSigma, "log", 1.4, "Laplacian-of-Gaussian pre-filter sigma (0 disables)")
	f.StringVar(&p.rowLogPath, "row-log", "", "Write the per-row registration report to this path")

	return cmd
}

func costFunc(corrType int) correlate.CostFunc {
	switch corrType {
	case 1:
		return correlate.SquaredDifference
	case 2:
		return correlate.CrossCorrelation
	default:
		return correlate.AbsoluteDifference
	}
}

// openInput loads a correlation input. Tiled grid rasters are scanned
// straight off disk; anything else is decoded fully into memory.
func openInput(path string) (raster.Image, error) {
	if filepath.Ext(path) == ".jrg" {
		return raster.OpenGridFile(path)
	}
	return raster.LoadGray(path)
}

func closeInput(img raster.Image) {
	if c, ok := img.(io.Closer); ok {
		c.Close()
	}
}

func run(log *slog.Logger, leftPath, rightPath string, p params) error {
	for _, path := range []string{leftPath, rightPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file %s is missing", path)
		}
	}

	log.Info("loading images", "left", leftPath, "right", rightPath)
	left, err := openInput(leftPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", leftPath, err)
	}
	defer closeInput(left)
	right, err := openInput(rightPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rightPath, err)
	}
	defer closeInput(right)

	// Clip both to the shared extent.
	cols := min(left.Cols(), right.Cols())
	rows := min(left.Rows(), right.Rows())
	log.Info("input image size", "cols", cols, "rows", rows)

	// Both inputs come out of the same projection step, so the overlap
	// sits in about the same central band of each.
	cropWidth := p.cropWidth
	if cropWidth > cols {
		cropWidth = cols
	}
	cropStartX := cols/2 - cropWidth/2

	leftBand, err := raster.NewCrop(left, cropStartX, 0, cropWidth, rows)
	if err != nil {
		return fmt.Errorf("cropping %s: %w", leftPath, err)
	}
	rightBand, err := raster.NewCrop(right, cropStartX, 0, cropWidth, rows)
	if err != nil {
		return fmt.Errorf("cropping %s: %w", rightPath, err)
	}
	log.Info("disparity search image size", "cols", cropWidth, "rows", rows)

	opts := correlate.Options{
		Search:      correlate.SearchRange{HMin: p.hMin, HMax: p.hMax, VMin: p.vMin, VMax: p.vMax},
		Kernel:      correlate.Kernel{X: p.xKernel, Y: p.yKernel},
		Cost:        costFunc(p.corrType),
		LRThreshold: p.lrThresh,
		Pyramid:     p.pyramid,
		LogSigma:    p.logSigma,
	}

	log.Info("running stereo correlation", "pyramid", p.pyramid, "cost", opts.Cost.String())
	field, err := correlate.Correlate(leftBand, rightBand, opts)
	if err != nil {
		return err
	}

	log.Info("accumulating offsets")
	res, reduceErr := offset.Reduce(field)

	if p.rowLogPath != "" {
		info := offset.ReportInfo{
			LeftPath:        leftPath,
			RightPath:       rightPath,
			ImageWidth:      cols,
			ImageHeight:     rows,
			LeftCropStartX:  cropStartX,
			RightCropStartX: cropStartX,
			CropWidth:       cropWidth,
			Kernel:          opts.Kernel,
			Cost:            opts.Cost,
		}
		if err := writeReportFile(p.rowLogPath, info, res); err != nil {
			return err
		}
		log.Info("wrote registration report", "path", p.rowLogPath)
	}

	if reduceErr != nil {
		return reduceErr
	}

	log.Info("offset statistics",
		"valid_pixels", res.ValidPixels, "valid_rows", res.ValidRows)
	fmt.Printf("Mean sample offset = %f\n", res.MeanX)
	fmt.Printf("Mean line   offset = %f\n", res.MeanY)
	return nil
}

func writeReportFile(path string, info offset.ReportInfo, res *offset.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file %s: %w", path, err)
	}
	defer f.Close()

	if err := offset.WriteReport(f, info, res); err != nil {
		return err
	}
	return f.Close()
}
