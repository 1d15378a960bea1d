// Package raster provides grayscale floating-point image access for the
// registration pipeline: in-memory buffers, cropped and edge-extended
// views, tile-streamed disk rasters, filtering, and warping.
package raster

import (
	"fmt"
	"math"
)

// Image is read-only access to a grayscale raster. Coordinates passed to
// At must satisfy 0 <= x < Cols() and 0 <= y < Rows().
type Image interface {
	Cols() int
	Rows() int
	At(x, y int) float32
}

// Gray32 is an in-memory grayscale raster with float32 samples.
type Gray32 struct {
	cols, rows int
	pix        []float32
}

// NewGray32 creates a zeroed raster of the given size.
func NewGray32(cols, rows int) *Gray32 {
	return &Gray32{cols: cols, rows: rows, pix: make([]float32, cols*rows)}
}

// Cols returns the raster width in pixels.
func (g *Gray32) Cols() int { return g.cols }

// Rows returns the raster height in pixels.
func (g *Gray32) Rows() int { return g.rows }

// At returns the sample at (x, y).
func (g *Gray32) At(x, y int) float32 { return g.pix[y*g.cols+x] }

// Set stores a sample at (x, y).
func (g *Gray32) Set(x, y int, v float32) { g.pix[y*g.cols+x] = v }

// Crop is a rectangular view into another raster. It performs no copy.
type Crop struct {
	src        Image
	x0, y0     int
	cols, rows int
}

// NewCrop creates a view of src covering cols x rows pixels starting at
// (x0, y0). The window must lie fully inside src.
func NewCrop(src Image, x0, y0, cols, rows int) (*Crop, error) {
	if x0 < 0 || y0 < 0 || cols <= 0 || rows <= 0 ||
		x0+cols > src.Cols() || y0+rows > src.Rows() {
		return nil, fmt.Errorf("crop %dx%d at (%d,%d) outside %dx%d raster",
			cols, rows, x0, y0, src.Cols(), src.Rows())
	}
	return &Crop{src: src, x0: x0, y0: y0, cols: cols, rows: rows}, nil
}

// Cols returns the view width.
func (c *Crop) Cols() int { return c.cols }

// Rows returns the view height.
func (c *Crop) Rows() int { return c.rows }

// At returns the sample at (x, y) in view coordinates.
func (c *Crop) At(x, y int) float32 { return c.src.At(c.x0+x, c.y0+y) }

// EdgeExtend is a view that repeats the nearest border sample for
// coordinates outside the source, and can also present a source at a
// larger nominal size than it really has.
type EdgeExtend struct {
	src        Image
	cols, rows int
}

// NewEdgeExtend creates an edge-extended view of src presented at the given
// size.
func NewEdgeExtend(src Image, cols, rows int) *EdgeExtend {
	return &EdgeExtend{src: src, cols: cols, rows: rows}
}

// Cols returns the nominal width.
func (e *EdgeExtend) Cols() int { return e.cols }

// Rows returns the nominal height.
func (e *EdgeExtend) Rows() int { return e.rows }

// At returns the sample at (x, y), clamping into the source bounds.
func (e *EdgeExtend) At(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= e.src.Cols() {
		x = e.src.Cols() - 1
	}
	if y < 0 {
		y = 0
	} else if y >= e.src.Rows() {
		y = e.src.Rows() - 1
	}
	return e.src.At(x, y)
}

// MinMax scans a raster and returns its minimum and maximum samples.
func MinMax(img Image) (lo, hi float32) {
	lo = float32(math.Inf(1))
	hi = float32(math.Inf(-1))
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			v := img.At(x, y)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Normalize copies a raster, remapping [lo, hi] linearly onto [0, 1] and
// clamping anything outside that range.
func Normalize(img Image, lo, hi float32) *Gray32 {
	out := NewGray32(img.Cols(), img.Rows())
	span := hi - lo
	if span <= 0 {
		return out
	}
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			v := (img.At(x, y) - lo) / span
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			out.Set(x, y, v)
		}
	}
	return out
}

// Materialize copies any Image into a Gray32 buffer.
func Materialize(img Image) *Gray32 {
	out := NewGray32(img.Cols(), img.Rows())
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// Bilinear samples a raster at a fractional position. The second return is
// false when the position falls outside the raster.
func Bilinear(img Image, fx, fy float64) (float32, bool) {
	if fx < 0 || fy < 0 || fx > float64(img.Cols()-1) || fy > float64(img.Rows()-1) {
		return 0, false
	}
	x0 := int(fx)
	y0 := int(fy)
	x1, y1 := x0+1, y0+1
	if x1 >= img.Cols() {
		x1 = x0
	}
	if y1 >= img.Rows() {
		y1 = y0
	}
	ax := float32(fx - float64(x0))
	ay := float32(fy - float64(y0))

	top := img.At(x0, y0)*(1-ax) + img.At(x1, y0)*ax
	bot := img.At(x0, y1)*(1-ax) + img.At(x1, y1)*ax
	return top*(1-ay) + bot*ay, true
}
