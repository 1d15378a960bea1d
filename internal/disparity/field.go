// Package disparity provides the dense per-pixel displacement field
// produced by stereo correlation, along with the whole-field transforms
// used to undo earlier image alignment.
package disparity

import (
	"jitreg/pkg/geometry"
)

// Field is a dense grid of 2D displacement vectors with a per-cell
// validity flag. Invalid cells carry no displacement and must never
// contribute to aggregates.
type Field struct {
	cols, rows int
	dx, dy     []float32
	valid      []bool
}

// NewField creates a field of the given size with every cell invalid.
func NewField(cols, rows int) *Field {
	n := cols * rows
	return &Field{
		cols:  cols,
		rows:  rows,
		dx:    make([]float32, n),
		dy:    make([]float32, n),
		valid: make([]bool, n),
	}
}

// Cols returns the field width.
func (f *Field) Cols() int { return f.cols }

// Rows returns the field height.
func (f *Field) Rows() int { return f.rows }

// Get returns the displacement at (x, y) and whether the cell is valid.
// The displacement values are meaningless when valid is false.
func (f *Field) Get(x, y int) (dx, dy float32, valid bool) {
	i := y*f.cols + x
	return f.dx[i], f.dy[i], f.valid[i]
}

// Set stores a displacement at (x, y) and marks the cell valid.
func (f *Field) Set(x, y int, dx, dy float32) {
	i := y*f.cols + x
	f.dx[i] = dx
	f.dy[i] = dy
	f.valid[i] = true
}

// Invalidate marks the cell at (x, y) invalid.
func (f *Field) Invalidate(x, y int) {
	f.valid[y*f.cols+x] = false
}

// ValidCount returns the number of valid cells.
func (f *Field) ValidCount() int {
	n := 0
	for _, v := range f.valid {
		if v {
			n++
		}
	}
	return n
}

// TransformBy returns a new field in which every valid displacement has
// been re-expressed through the given homography: for a cell at p holding
// displacement d, the match point p+d is mapped through h and the new
// displacement is h(p+d) - p. Invalid cells stay invalid.
func (f *Field) TransformBy(h geometry.Homography) *Field {
	return f.TransformFunc(h.Apply)
}

// TransformFunc is the generic form of TransformBy: the match point of
// every valid cell is mapped through fn and the displacement recomputed.
func (f *Field) TransformFunc(fn func(geometry.Point2D) geometry.Point2D) *Field {
	out := NewField(f.cols, f.rows)
	for y := 0; y < f.rows; y++ {
		for x := 0; x < f.cols; x++ {
			dx, dy, ok := f.Get(x, y)
			if !ok {
				continue
			}
			p := geometry.Point2D{X: float64(x), Y: float64(y)}
			q := fn(geometry.Point2D{X: p.X + float64(dx), Y: p.Y + float64(dy)})
			out.Set(x, y, float32(q.X-p.X), float32(q.Y-p.Y))
		}
	}
	return out
}

// ClampToBounds invalidates every cell whose match point p+d falls outside
// a cols x rows image, mirroring the removal of disparities that would
// reference pixels beyond the secondary image.
func (f *Field) ClampToBounds(cols, rows int) {
	bounds := geometry.NewRect(0, 0, float64(cols-1), float64(rows-1))
	for y := 0; y < f.rows; y++ {
		for x := 0; x < f.cols; x++ {
			dx, dy, ok := f.Get(x, y)
			if !ok {
				continue
			}
			match := geometry.Point2D{X: float64(x) + float64(dx), Y: float64(y) + float64(dy)}
			if !bounds.Contains(match) {
				f.Invalidate(x, y)
			}
		}
	}
}
