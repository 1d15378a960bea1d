package correlate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitreg/internal/raster"
)

// shiftedPair cuts two equal-size windows out of a shared textured scene
// so that every pixel p of left has its true match at p+(dx,dy) in
// right. The texture varies randomly across columns and ramps smoothly
// down rows, which makes both axes of the search discriminable.
func shiftedPair(cols, rows, dx, dy int) (*raster.Gray32, *raster.Gray32) {
	const pad = 16
	rng := rand.New(rand.NewSource(7))

	scols, srows := cols+2*pad, rows+2*pad
	colTex := make([]float32, scols)
	for x := range colTex {
		colTex[x] = rng.Float32() * 0.6
	}
	scene := raster.NewGray32(scols, srows)
	for y := 0; y < srows; y++ {
		for x := 0; x < scols; x++ {
			scene.Set(x, y, colTex[x]+0.015*float32(y))
		}
	}

	left := raster.NewGray32(cols, rows)
	right := raster.NewGray32(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			left.Set(x, y, scene.At(x+pad, y+pad))
			right.Set(x, y, scene.At(x-dx+pad, y-dy+pad))
		}
	}
	return left, right
}

func defaultOptions() Options {
	return Options{
		Search:      SearchRange{HMin: -5, HMax: 5, VMin: -5, VMax: 5},
		Kernel:      Kernel{X: 7, Y: 7},
		Cost:        AbsoluteDifference,
		LRThreshold: 2,
	}
}

// TestCorrelateRejectsBadInput covers the argument validation paths.
func TestCorrelateRejectsBadInput(t *testing.T) {
	left, right := shiftedPair(40, 30, 0, 0)

	opts := defaultOptions()
	_, err := Correlate(left, raster.NewGray32(41, 30), opts)
	assert.Error(t, err, "mismatched sizes")

	_, err = Correlate(raster.NewGray32(0, 0), raster.NewGray32(0, 0), opts)
	assert.Error(t, err, "empty windows")

	opts = defaultOptions()
	opts.Kernel = Kernel{X: 8, Y: 7}
	_, err = Correlate(left, right, opts)
	assert.Error(t, err, "even kernel side")

	opts = defaultOptions()
	opts.Search = SearchRange{HMin: 3, HMax: -3, VMin: 0, VMax: 0}
	_, err = Correlate(left, right, opts)
	assert.Error(t, err, "empty search range")
}

// TestDirectRecoversShift verifies exhaustive search finds a known
// integer displacement at every interior pixel.
func TestDirectRecoversShift(t *testing.T) {
	left, right := shiftedPair(60, 40, 3, -2)

	field, err := Correlate(left, right, defaultOptions())
	require.NoError(t, err)

	for y := 5; y < 35; y++ {
		for x := 5; x < 54; x++ {
			dx, dy, ok := field.Get(x, y)
			require.True(t, ok, "pixel (%d,%d) should be valid", x, y)
			assert.Equal(t, float32(3), dx, "dx at (%d,%d)", x, y)
			assert.Equal(t, float32(-2), dy, "dy at (%d,%d)", x, y)
		}
	}
}

// TestPyramidRecoversShift runs the same recovery through the
// coarse-to-fine path on an image large enough to actually build
// pyramid levels.
func TestPyramidRecoversShift(t *testing.T) {
	left, right := shiftedPair(96, 64, 4, 2)

	opts := defaultOptions()
	opts.Search = SearchRange{HMin: -6, HMax: 6, VMin: -4, VMax: 4}
	opts.Pyramid = true

	field, err := Correlate(left, right, opts)
	require.NoError(t, err)

	// Coarse-to-fine can lose a few isolated pixels to the consistency
	// check where the upsampled seed was off; what matters is that the
	// surviving field carries the true displacement.
	var sumX, sumY float64
	valid := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 96; x++ {
			dx, dy, ok := field.Get(x, y)
			if !ok {
				continue
			}
			sumX += float64(dx)
			sumY += float64(dy)
			valid++
		}
	}
	require.Greater(t, valid, 96*64*8/10, "most pixels should survive")
	assert.InDelta(t, 4, sumX/float64(valid), 0.3)
	assert.InDelta(t, 2, sumY/float64(valid), 0.3)
}

// TestConsistencyCheckRejectsAmbiguity feeds featureless windows where
// every candidate ties, so the forward and reverse sweeps settle on
// inconsistent corners and the check must discard everything.
func TestConsistencyCheckRejectsAmbiguity(t *testing.T) {
	flatL := raster.NewGray32(30, 30)
	flatR := raster.NewGray32(30, 30)

	field, err := Correlate(flatL, flatR, defaultOptions())
	require.NoError(t, err)
	assert.Zero(t, field.ValidCount())

	// Disabling the check keeps every cell, ambiguous or not.
	opts := defaultOptions()
	opts.LRThreshold = -1
	field, err = Correlate(flatL, flatR, opts)
	require.NoError(t, err)
	assert.Equal(t, 30*30, field.ValidCount())
}

// TestCrossCorrelationIgnoresGain matches windows related by a gain and
// bias change that defeats the difference costs.
func TestCrossCorrelationIgnoresGain(t *testing.T) {
	left, right := shiftedPair(50, 40, 2, 1)
	scaled := raster.NewGray32(50, 40)
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			scaled.Set(x, y, 0.5*right.At(x, y)+0.3)
		}
	}

	opts := defaultOptions()
	opts.Cost = CrossCorrelation

	field, err := Correlate(left, scaled, opts)
	require.NoError(t, err)

	for y := 5; y < 35; y++ {
		for x := 5; x < 45; x++ {
			dx, dy, ok := field.Get(x, y)
			require.True(t, ok, "pixel (%d,%d) should be valid", x, y)
			assert.Equal(t, float32(2), dx, "dx at (%d,%d)", x, y)
			assert.Equal(t, float32(1), dy, "dy at (%d,%d)", x, y)
		}
	}
}

// TestLogPrefilterRemovesBias checks that the Laplacian-of-Gaussian
// pre-filter lets a difference cost survive a constant brightness
// offset between the two windows.
func TestLogPrefilterRemovesBias(t *testing.T) {
	left, right := shiftedPair(50, 40, 3, -1)
	biased := raster.NewGray32(50, 40)
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			biased.Set(x, y, right.At(x, y)+0.25)
		}
	}

	opts := defaultOptions()
	opts.LogSigma = 1.4

	field, err := Correlate(left, biased, opts)
	require.NoError(t, err)

	// Margins clear the pre-filter support so both windows see the same
	// filtered content.
	for y := 12; y < 29; y++ {
		for x := 12; x < 36; x++ {
			dx, dy, ok := field.Get(x, y)
			require.True(t, ok, "pixel (%d,%d) should be valid", x, y)
			assert.Equal(t, float32(3), dx, "dx at (%d,%d)", x, y)
			assert.Equal(t, float32(-1), dy, "dy at (%d,%d)", x, y)
		}
	}
}

// TestBudgetExceeded makes the deadline unreachable so the run must
// fail outright instead of returning partial output.
func TestBudgetExceeded(t *testing.T) {
	left, right := shiftedPair(60, 40, 1, 1)

	opts := defaultOptions()
	opts.Budget = time.Nanosecond

	_, err := Correlate(left, right, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
}

func TestCostFuncNames(t *testing.T) {
	assert.Equal(t, "ABSOLUTE_DIFFERENCE", AbsoluteDifference.String())
	assert.Equal(t, "SQUARED_DIFFERENCE", SquaredDifference.String())
	assert.Equal(t, "CROSS_CORRELATION", CrossCorrelation.String())
}

func TestSearchRangeHalve(t *testing.T) {
	r := SearchRange{HMin: -5, HMax: 5, VMin: -3, VMax: 3}
	h := r.halve()
	assert.Equal(t, SearchRange{HMin: -3, HMax: 3, VMin: -2, VMax: 2}, h)
	assert.True(t, h.valid())

	assert.Equal(t, SearchRange{HMin: 0, HMax: 0, VMin: 0, VMax: 0},
		SearchRange{}.halve())
}
