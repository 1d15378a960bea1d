package correlate

import (
	"jitreg/internal/disparity"
	"jitreg/internal/raster"
)

// pyramid runs coarse-to-fine search: the full range is only swept at
// the coarsest level, and each finer level refines the upsampled
// disparities within a one-pixel neighborhood. The left/right check runs
// on the final full-resolution result.
func (r *runner) pyramid(left, right *raster.Gray32, search SearchRange, levels int) (*disparity.Field, error) {
	seed, err := r.pyramidLevel(left, right, search, levels)
	if err != nil {
		return nil, err
	}

	if r.opts.LRThreshold >= 0 {
		reverse, err := r.bestMatches(right, left, search.negate(), nil)
		if err != nil {
			return nil, err
		}
		applyLRCheck(seed, reverse, r.opts.LRThreshold)
	}
	return seed, nil
}

func (r *runner) pyramidLevel(left, right *raster.Gray32, search SearchRange, levels int) (*disparity.Field, error) {
	if err := r.checkBudget(); err != nil {
		return nil, err
	}

	if levels <= 1 || left.Cols() < minPyramidDim || left.Rows() < minPyramidDim {
		return r.bestMatches(left, right, search, nil)
	}

	coarse, err := r.pyramidLevel(raster.HalfScale(left), raster.HalfScale(right), search.halve(), levels-1)
	if err != nil {
		return nil, err
	}

	seed := upsampleDisparity(coarse, left.Cols(), left.Rows())
	return r.bestMatches(left, right, search, seed)
}

// upsampleDisparity doubles a disparity field to the given size,
// replicating each coarse cell into its 2x2 block and doubling the
// displacement magnitudes.
func upsampleDisparity(coarse *disparity.Field, cols, rows int) *disparity.Field {
	out := disparity.NewField(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cx, cy := x/2, y/2
			if cx >= coarse.Cols() {
				cx = coarse.Cols() - 1
			}
			if cy >= coarse.Rows() {
				cy = coarse.Rows() - 1
			}
			dx, dy, ok := coarse.Get(cx, cy)
			if ok {
				out.Set(x, y, 2*dx, 2*dy)
			}
		}
	}
	return out
}
