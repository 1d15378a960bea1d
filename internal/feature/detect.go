package feature

import (
	"jitreg/internal/raster"
)

// Detector locates interest points in a raster and computes their
// descriptors.
type Detector interface {
	Detect(img raster.Image) ([]InterestPoint, error)
}

// Matcher pairs up interest points between two images. The returned lists
// are parallel: the i-th entry of each describes one correspondence.
type Matcher interface {
	Match(a, b []InterestPoint) ([]InterestPoint, []InterestPoint, error)
}
