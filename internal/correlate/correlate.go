package correlate

import (
	"fmt"
	"math"
	"time"

	"jitreg/internal/disparity"
	"jitreg/internal/raster"
)

// SearchRange bounds the 2D disparity search, inclusive on all four
// sides.
type SearchRange struct {
	HMin, HMax int
	VMin, VMax int
}

// valid reports whether the range is non-empty.
func (r SearchRange) valid() bool {
	return r.HMin <= r.HMax && r.VMin <= r.VMax
}

// halve scales the range down one pyramid level, keeping it non-empty.
func (r SearchRange) halve() SearchRange {
	return SearchRange{
		HMin: floorDiv2(r.HMin), HMax: ceilDiv2(r.HMax),
		VMin: floorDiv2(r.VMin), VMax: ceilDiv2(r.VMax),
	}
}

func floorDiv2(v int) int {
	if v < 0 {
		return -((-v + 1) / 2)
	}
	return v / 2
}

func ceilDiv2(v int) int {
	if v < 0 {
		return -(-v / 2)
	}
	return (v + 1) / 2
}

// Kernel is the correlation window footprint. Both sides must be odd.
type Kernel struct {
	X, Y int
}

// Options configures a correlation run.
type Options struct {
	Search SearchRange
	Kernel Kernel
	Cost   CostFunc

	// LRThreshold is the maximum allowed disagreement, in pixels per
	// axis, between the forward and reverse best matches. Negative
	// disables the consistency check.
	LRThreshold int

	// Pyramid selects coarse-to-fine search instead of exhaustive
	// search, trading some accuracy for speed on large ranges.
	Pyramid bool

	// LogSigma applies a Laplacian-of-Gaussian pre-filter to both
	// windows before matching; 0 disables.
	LogSigma float64

	// Budget optionally bounds total runtime. Exceeding it fails the
	// whole operation; there is no degraded output.
	Budget time.Duration
}

// maxPyramidLevels bounds coarse-to-fine recursion depth.
const maxPyramidLevels = 5

// minPyramidDim stops the pyramid before windows degenerate.
const minPyramidDim = 16

// Correlate computes a dense disparity field describing, for each pixel
// of left, the displacement to its best match in right. The two windows
// must be the same size. Cells whose match is ambiguous under the
// left/right consistency check come back invalid.
func Correlate(left, right raster.Image, opts Options) (*disparity.Field, error) {
	if left.Cols() != right.Cols() || left.Rows() != right.Rows() {
		return nil, fmt.Errorf("correlate: window sizes differ: %dx%d vs %dx%d",
			left.Cols(), left.Rows(), right.Cols(), right.Rows())
	}
	if left.Cols() == 0 || left.Rows() == 0 {
		return nil, fmt.Errorf("correlate: empty windows")
	}
	if opts.Kernel.X <= 0 || opts.Kernel.Y <= 0 || opts.Kernel.X%2 == 0 || opts.Kernel.Y%2 == 0 {
		return nil, fmt.Errorf("correlate: kernel sides must be odd and positive, got %dx%d",
			opts.Kernel.X, opts.Kernel.Y)
	}
	if !opts.Search.valid() {
		return nil, fmt.Errorf("correlate: empty search range %+v", opts.Search)
	}

	l := raster.LaplacianOfGaussian(left, opts.LogSigma)
	r := raster.LaplacianOfGaussian(right, opts.LogSigma)

	deadline := time.Time{}
	if opts.Budget > 0 {
		deadline = time.Now().Add(opts.Budget)
	}

	run := &runner{opts: opts, deadline: deadline}
	if opts.Pyramid {
		return run.pyramid(l, r, opts.Search, maxPyramidLevels)
	}
	return run.direct(l, r, opts.Search)
}

// runner carries the per-call state shared by the search strategies.
type runner struct {
	opts     Options
	deadline time.Time
}

// checkBudget returns an error once the optional cost budget is spent.
func (r *runner) checkBudget() error {
	if !r.deadline.IsZero() && time.Now().After(r.deadline) {
		return fmt.Errorf("correlate: cost budget exceeded")
	}
	return nil
}

// direct does exhaustive search over the full range, then applies the
// left/right consistency check.
func (r *runner) direct(left, right *raster.Gray32, search SearchRange) (*disparity.Field, error) {
	forward, err := r.bestMatches(left, right, search, nil)
	if err != nil {
		return nil, err
	}
	if r.opts.LRThreshold < 0 {
		return forward, nil
	}

	reverse, err := r.bestMatches(right, left, search.negate(), nil)
	if err != nil {
		return nil, err
	}
	applyLRCheck(forward, reverse, r.opts.LRThreshold)
	return forward, nil
}

// negate mirrors a search range for the reverse direction.
func (r SearchRange) negate() SearchRange {
	return SearchRange{HMin: -r.HMax, HMax: -r.HMin, VMin: -r.VMax, VMax: -r.VMin}
}

// bestMatches scans every pixel of left for its lowest-cost displacement
// into right. When seed is non-nil the search is confined to a small
// neighborhood around each seeded displacement and unseeded cells stay
// invalid.
func (r *runner) bestMatches(left, right *raster.Gray32, search SearchRange, seed *disparity.Field) (*disparity.Field, error) {
	cols, rows := left.Cols(), left.Rows()
	extL := raster.NewEdgeExtend(left, cols, rows)
	extR := raster.NewEdgeExtend(right, cols, rows)
	out := disparity.NewField(cols, rows)

	for y := 0; y < rows; y++ {
		if err := r.checkBudget(); err != nil {
			return nil, err
		}
		for x := 0; x < cols; x++ {
			cellSearch := search
			if seed != nil {
				sdx, sdy, ok := seed.Get(x, y)
				if !ok {
					continue
				}
				cellSearch = SearchRange{
					HMin: int(sdx) - 1, HMax: int(sdx) + 1,
					VMin: int(sdy) - 1, VMax: int(sdy) + 1,
				}
			}

			// Targets beyond the window edge are evaluated through the
			// edge-extended views rather than excluded, matching the
			// crop-view semantics of the search this reimplements.
			bestCost := math.Inf(1)
			bestDX, bestDY := 0, 0
			for dy := cellSearch.VMin; dy <= cellSearch.VMax; dy++ {
				for dx := cellSearch.HMin; dx <= cellSearch.HMax; dx++ {
					c := windowCost(extL, extR, x, y, x+dx, y+dy, r.opts.Kernel, r.opts.Cost)
					if c < bestCost {
						bestCost = c
						bestDX, bestDY = dx, dy
					}
				}
			}
			out.Set(x, y, float32(bestDX), float32(bestDY))
		}
	}
	return out, nil
}

// applyLRCheck invalidates forward cells whose reverse best match
// disagrees by more than the threshold on either axis. The reverse
// lookup is clamped to the field bounds so that matches found through
// edge extension are checked against the nearest real reverse cell.
func applyLRCheck(forward, reverse *disparity.Field, threshold int) {
	cols, rows := forward.Cols(), forward.Rows()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx, dy, ok := forward.Get(x, y)
			if !ok {
				continue
			}
			qx := clampInt(x+int(math.Round(float64(dx))), 0, cols-1)
			qy := clampInt(y+int(math.Round(float64(dy))), 0, rows-1)
			rdx, rdy, rok := reverse.Get(qx, qy)
			if !rok ||
				math.Abs(float64(dx+rdx)) > float64(threshold) ||
				math.Abs(float64(dy+rdy)) > float64(threshold) {
				forward.Invalidate(x, y)
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
