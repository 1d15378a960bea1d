package raster

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"jitreg/pkg/geometry"
)

// WarpHomography resamples src through a homography mapping src-frame
// points into the output frame. Output pixels are filled by inverse
// mapping with bilinear interpolation; pixels whose source position falls
// outside src are left at zero.
func WarpHomography(src Image, h geometry.Homography, cols, rows int) (*Gray32, error) {
	if _, ok := h.Inverse(); !ok {
		return nil, fmt.Errorf("warp: homography is singular")
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, h.M[i][j])
		}
	}

	srcMat := toMat(src)
	defer srcMat.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspective(srcMat, &dst, m, image.Point{X: cols, Y: rows})
	return fromMat(dst), nil
}

// WarpFunc resamples src into a cols x rows output raster. revMap takes a
// position in the output frame and returns the position in src to sample;
// positions outside src leave the output pixel at zero.
func WarpFunc(src Image, revMap func(geometry.Point2D) geometry.Point2D, cols, rows int) *Gray32 {
	out := NewGray32(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p := revMap(geometry.Point2D{X: float64(x), Y: float64(y)})
			if v, ok := Bilinear(src, p.X, p.Y); ok {
				out.Set(x, y, v)
			}
		}
	}
	return out
}
