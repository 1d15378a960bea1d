// Package offset reduces dense disparity fields to per-row and global
// row/column offset statistics, and renders the registration report.
package offset

import (
	"errors"

	"jitreg/internal/disparity"
	"jitreg/internal/stats"
)

// ErrNoValidRows reports a field with no valid cells in any row. The
// global offsets of such a field carry no confidence.
var ErrNoValidRows = errors.New("offset: no valid pixel matches found")

// Result holds per-row mean displacements and single-pass global
// statistics for both axes of a disparity field.
type Result struct {
	// RowVertical and RowHorizontal are per-row mean displacements,
	// indexed by row. Rows without a single valid cell hold zero and do
	// not contribute to the global statistics.
	RowVertical   []float64
	RowHorizontal []float64

	// Global mean and standard deviation per axis, over valid cells.
	MeanX, StdDevX float64
	MeanY, StdDevY float64

	ValidPixels int
	ValidRows   int
}

// Reduce averages the valid cells of each row independently while
// feeding every valid cell into per-axis running accumulators, so the
// global mean and standard deviation come out of the same single pass.
// A field with zero valid rows returns the populated result together
// with ErrNoValidRows; callers can still render a report from it before
// failing.
func Reduce(field *disparity.Field) (*Result, error) {
	cols, rows := field.Cols(), field.Rows()
	res := &Result{
		RowVertical:   make([]float64, rows),
		RowHorizontal: make([]float64, rows),
	}

	var accX, accY stats.Running
	for y := 0; y < rows; y++ {
		var sumH, sumV float64
		n := 0
		for x := 0; x < cols; x++ {
			dx, dy, ok := field.Get(x, y)
			if !ok {
				continue
			}
			sumH += float64(dx)
			sumV += float64(dy)
			n++
			accX.Push(float64(dx))
			accY.Push(float64(dy))
		}
		if n == 0 {
			continue
		}
		res.RowHorizontal[y] = sumH / float64(n)
		res.RowVertical[y] = sumV / float64(n)
		res.ValidPixels += n
		res.ValidRows++
	}

	res.MeanX, res.StdDevX = accX.Mean(), accX.StdDev()
	res.MeanY, res.StdDevY = accY.Mean(), accY.StdDev()

	if res.ValidRows == 0 {
		return res, ErrNoValidRows
	}
	return res, nil
}
