package raster

import (
	"image"

	"gocv.io/x/gocv"
)

// GaussianBlur smooths a raster with a Gaussian of the given sigma. The
// kernel size is derived from sigma.
func GaussianBlur(img Image, sigma float64) *Gray32 {
	src := toMat(img)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Point{}, sigma, sigma, gocv.BorderDefault)
	return fromMat(dst)
}

// Laplacian applies the 4-neighbor discrete Laplacian.
func Laplacian(img Image) *Gray32 {
	src := toMat(img)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Laplacian(src, &dst, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault)
	return fromMat(dst)
}

// LaplacianOfGaussian band-pass filters a raster: Gaussian blur at the
// given sigma followed by the Laplacian. A sigma of zero returns an
// unfiltered copy.
func LaplacianOfGaussian(img Image, sigma float64) *Gray32 {
	if sigma <= 0 {
		return Materialize(img)
	}
	src := toMat(img)
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{}, sigma, sigma, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Laplacian(blurred, &edges, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault)
	return fromMat(edges)
}

// HalfScale downsamples a raster one pyramid level: Gaussian smoothing
// followed by decimation by two. Each output axis is the ceiling half of
// the input axis.
func HalfScale(img Image) *Gray32 {
	src := toMat(img)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.PyrDown(src, &dst, image.Point{}, gocv.BorderDefault)
	return fromMat(dst)
}
