// Package feature provides interest point detection, matching, duplicate
// culling, and the on-disk caches that make repeated registration runs
// cheap.
package feature

import (
	"jitreg/pkg/geometry"
)

// InterestPoint is a distinctive, repeatably detectable image location
// with an associated descriptor vector. Immutable once computed.
type InterestPoint struct {
	X           float64
	Y           float64
	Scale       float64
	Orientation float64
	Descriptor  []float32
}

// Loc returns the point's 2D location.
func (p InterestPoint) Loc() geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: p.Y}
}

// SamePosition reports whether two interest points sit at exactly the
// same image location.
func (p InterestPoint) SamePosition(other InterestPoint) bool {
	return p.X == other.X && p.Y == other.Y
}

// Locations extracts the 2D locations from a list of interest points.
func Locations(points []InterestPoint) []geometry.Point2D {
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = p.Loc()
	}
	return out
}
