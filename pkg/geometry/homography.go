package geometry

import (
	"math"
)

// Homography represents a 3x3 projective transformation matrix.
// [h00 h01 h02]
// [h10 h11 h12]
// [h20 h21 h22]
// The bottom-right entry is used as-is; no normalization is forced.
type Homography struct {
	M [3][3]float64
}

// IdentityHomography returns the identity transform.
func IdentityHomography() Homography {
	return Homography{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// TranslationHomography returns a pure translation transform.
func TranslationHomography(tx, ty float64) Homography {
	h := IdentityHomography()
	h.M[0][2] = tx
	h.M[1][2] = ty
	return h
}

// Apply applies the projective transform to a point.
// Points mapping to the plane at infinity come back as (+Inf, +Inf).
func (h Homography) Apply(p Point2D) Point2D {
	w := h.M[2][0]*p.X + h.M[2][1]*p.Y + h.M[2][2]
	if w == 0 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{
		X: (h.M[0][0]*p.X + h.M[0][1]*p.Y + h.M[0][2]) / w,
		Y: (h.M[1][0]*p.X + h.M[1][1]*p.Y + h.M[1][2]) / w,
	}
}

// Compose returns this transform composed with another (this * other).
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += h.M[i][k] * other.M[k][j]
			}
			out.M[i][j] = sum
		}
	}
	return out
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	m := h.M
	// Cofactor expansion along the first row.
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]

	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	if math.Abs(det) < 1e-12 {
		return Homography{}, false
	}
	invDet := 1.0 / det

	var out Homography
	out.M[0][0] = c00 * invDet
	out.M[1][0] = c01 * invDet
	out.M[2][0] = c02 * invDet
	out.M[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	out.M[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	out.M[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	out.M[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	out.M[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	out.M[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return out, true
}

// IsIdentity reports whether the transform equals the identity matrix
// within the given tolerance.
func (h Homography) IsIdentity(tol float64) bool {
	id := IdentityHomography()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(h.M[i][j]-id.M[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
