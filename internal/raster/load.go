package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// LoadGray decodes an image file (PNG, JPEG, or TIFF) into a grayscale
// raster with samples in [0, 1].
func LoadGray(path string) (*Gray32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts a Go image to a grayscale raster with samples in
// [0, 1] using the standard luminance weights.
func FromImage(img image.Image) *Gray32 {
	bounds := img.Bounds()
	out := NewGray32(bounds.Dx(), bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)
			out.Set(x, y, lum/65535.0)
		}
	}
	return out
}

// ToImage converts a raster to an 8-bit grayscale Go image, clamping
// samples into [0, 1].
func ToImage(img Image) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Cols(), img.Rows()))
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			v := img.At(x, y)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return out
}

// SaveGrayPNG writes a raster to disk as an 8-bit grayscale PNG.
func SaveGrayPNG(path string, img Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, ToImage(img)); err != nil {
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	return nil
}
