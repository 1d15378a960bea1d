package raster

import (
	"gocv.io/x/gocv"
)

// toMat copies a raster into a single-channel 32-bit float OpenCV
// matrix. The caller owns the returned Mat.
func toMat(img Image) gocv.Mat {
	cols, rows := img.Cols(), img.Rows()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.SetFloatAt(y, x, img.At(x, y))
		}
	}
	return m
}

// fromMat copies a single-channel 32-bit float matrix back into an
// in-memory raster.
func fromMat(m gocv.Mat) *Gray32 {
	cols, rows := m.Cols(), m.Rows()
	out := NewGray32(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Set(x, y, m.GetFloatAt(y, x))
		}
	}
	return out
}
