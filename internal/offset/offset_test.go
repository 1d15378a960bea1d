package offset

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitreg/internal/correlate"
	"jitreg/internal/disparity"
	"jitreg/internal/raster"
)

// TestReducePerRowMeans checks row averaging over valid cells only,
// alongside the single-pass global statistics.
func TestReducePerRowMeans(t *testing.T) {
	field := disparity.NewField(4, 3)
	field.Set(0, 0, 1, 2)
	field.Set(2, 0, 3, 4)
	// Row 1 stays fully invalid.
	field.Set(1, 2, -1, -1)

	res, err := Reduce(field)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 0, -1}, res.RowVertical)
	assert.Equal(t, []float64{2, 0, -1}, res.RowHorizontal)
	assert.Equal(t, 3, res.ValidPixels)
	assert.Equal(t, 2, res.ValidRows)
	assert.InDelta(t, 1.0, res.MeanX, 1e-12)
	assert.InDelta(t, 5.0/3.0, res.MeanY, 1e-12)
}

// TestReduceNoValidRows must fail loudly rather than hand back a
// zero-confidence global offset, but still populate the result so a
// report can be rendered.
func TestReduceNoValidRows(t *testing.T) {
	field := disparity.NewField(5, 4)

	res, err := Reduce(field)
	require.ErrorIs(t, err, ErrNoValidRows)
	require.NotNil(t, res)
	assert.Zero(t, res.ValidRows)
	assert.Zero(t, res.ValidPixels)
	assert.Len(t, res.RowVertical, 4)
}

func TestWriteReportLayout(t *testing.T) {
	field := disparity.NewField(2, 2)
	field.Set(0, 0, 2.5, 1.5)
	field.Set(1, 0, 2.5, 1.5)
	res, err := Reduce(field)
	require.NoError(t, err)

	info := ReportInfo{
		LeftPath:        "left.png",
		RightPath:       "right.png",
		ImageWidth:      2,
		ImageHeight:     2,
		LeftCropStartX:  0,
		RightCropStartX: 0,
		CropWidth:       2,
		Kernel:          correlate.Kernel{X: 15, Y: 15},
		Cost:            correlate.CrossCorrelation,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, info, res))
	out := buf.String()

	assert.Contains(t, out, "#  FROM:  left.png")
	assert.Contains(t, out, "#  MATCH: right.png")
	assert.Contains(t, out, "\n0, 1.5, 2.5\n")
	assert.Contains(t, out, "\n1, 0, 0\n")
	assert.Contains(t, out, "#  **** Registration Data ****")
	assert.Contains(t, out, "#   Columns, Rows:    15 15")
	assert.Contains(t, out, "#   Corr. Algorithm:  CROSS_CORRELATION")
	assert.Contains(t, out, "#   Average Sample Offset: 2.5")
	assert.NotContains(t, out, "NULL")
}

// TestWriteReportNullMarkers renders the zero-valid-row summary.
func TestWriteReportNullMarkers(t *testing.T) {
	res, err := Reduce(disparity.NewField(3, 2))
	require.ErrorIs(t, err, ErrNoValidRows)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, ReportInfo{CropWidth: 3, ImageHeight: 2}, res))

	assert.Contains(t, buf.String(), "#   Average Sample Offset: NULL")
	assert.Contains(t, buf.String(), "#   Average Line Offset:   NULL")
	assert.Equal(t, 2, strings.Count(buf.String(), "NULL"))
}

// TestRecoverGlobalShift runs the full correlation-plus-reduction path
// on a synthetic pair displaced by an exact integer shift with faint
// additive noise, and expects the global offsets back.
func TestRecoverGlobalShift(t *testing.T) {
	const (
		cols, rows = 100, 50
		shiftX     = 3
		shiftY     = -2
		pad        = 16
	)
	rng := rand.New(rand.NewSource(11))

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

	noise := func() float32 { return (rng.Float32() - 0.5) * 0.002 }
	left := raster.NewGray32(cols, rows)
	right := raster.NewGray32(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			left.Set(x, y, scene.At(x+pad, y+pad)+noise())
			right.Set(x, y, scene.At(x-shiftX+pad, y-shiftY+pad)+noise())
		}
	}

	field, err := correlate.Correlate(left, right, correlate.Options{
		Search:      correlate.SearchRange{HMin: -5, HMax: 5, VMin: -5, VMax: 5},
		Kernel:      correlate.Kernel{X: 15, Y: 15},
		Cost:        correlate.AbsoluteDifference,
		LRThreshold: 2,
	})
	require.NoError(t, err)

	res, err := Reduce(field)
	require.NoError(t, err)

	assert.Equal(t, rows, res.ValidRows)
	assert.InDelta(t, shiftX, res.MeanX, 0.5)
	assert.InDelta(t, shiftY, res.MeanY, 0.5)
}
