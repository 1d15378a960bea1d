// Package alignment fits the global transform between two overlapping
// images, persists it, and applies or reverses it around the stereo
// correlation stage.
package alignment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"jitreg/pkg/geometry"
)

// Fit failure reasons. Callers are expected to branch on these and fall
// back to the identity transform rather than aborting the pipeline.
var (
	// ErrTooFewPoints means fewer correspondences than a minimal
	// homography sample.
	ErrTooFewPoints = errors.New("homography fit: fewer than 4 correspondences")
	// ErrNoConsensus means no sampled model gathered a minimal inlier set.
	ErrNoConsensus = errors.New("homography fit: RANSAC found no consensus")
)

// minHomographyPoints is the minimal sample size for a projective fit.
const minHomographyPoints = 4

// DefaultTrials is the number of RANSAC samples attempted per fit. The
// correspondence lists arriving here are pre-filtered and fairly clean,
// so a low trial count suffices.
const DefaultTrials = 10

// DefaultInlierThreshold is the reprojection error, in pixels, below
// which a correspondence counts toward a model's consensus set.
const DefaultInlierThreshold = 10.0

// FitResult carries a successfully fitted transform and the size of its
// consensus set.
type FitResult struct {
	H       geometry.Homography
	Inliers int
}

// FitHomography fits a homography mapping src points onto dst points
// using RANSAC over minimal 4-point subsets, then refits over the best
// consensus set with least squares. trials bounds the number of random
// samples; non-positive means DefaultTrials.
func FitHomography(src, dst []geometry.Point2D, trials int) (FitResult, error) {
	if len(src) != len(dst) {
		return FitResult{}, fmt.Errorf("homography fit: point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < minHomographyPoints {
		return FitResult{}, ErrTooFewPoints
	}
	if trials <= 0 {
		trials = DefaultTrials
	}

	n := len(src)
	bestInliers := []int{}
	var bestH geometry.Homography

	for iter := 0; iter < trials; iter++ {
		indices := rand.Perm(n)[:minHomographyPoints]

		sample := make([]geometry.Point2D, minHomographyPoints)
		target := make([]geometry.Point2D, minHomographyPoints)
		for i, idx := range indices {
			sample[i] = src[idx]
			target[i] = dst[idx]
		}

		h, err := solveHomography(sample, target)
		if err != nil {
			continue
		}

		var inliers []int
		for i := range src {
			if h.Apply(src[i]).Distance(dst[i]) < DefaultInlierThreshold {
				inliers = append(inliers, i)
			}
		}

		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestH = h
		}
	}

	if len(bestInliers) < minHomographyPoints {
		return FitResult{}, ErrNoConsensus
	}

	// Recompute using all inliers for a better conditioned estimate.
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}

	refined, err := solveHomography(inlierSrc, inlierDst)
	if err != nil {
		return FitResult{H: bestH, Inliers: len(bestInliers)}, nil
	}
	return FitResult{H: refined, Inliers: len(bestInliers)}, nil
}

// solveHomography computes a homography from N >= 4 point pairs by direct
// linear transform with h22 fixed at 1, solved by QR least squares. Both
// point sets are conditioned first (centroid at the origin, mean distance
// sqrt 2), which keeps the system well behaved for pixel coordinates far
// from the origin.
func solveHomography(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n < minHomographyPoints {
		return geometry.Homography{}, fmt.Errorf("need at least %d points", minHomographyPoints)
	}

	tSrc, src := condition(src)
	tDst, dst := condition(dst)

	hNorm, err := solveDLT(src, dst)
	if err != nil {
		return geometry.Homography{}, err
	}

	tDstInv, ok := tDst.Inverse()
	if !ok {
		return geometry.Homography{}, fmt.Errorf("degenerate conditioning transform")
	}
	return rescale(tDstInv.Compose(hNorm).Compose(tSrc)), nil
}

// condition translates a point set so its centroid sits at the origin and
// scales it to mean distance sqrt 2, returning the applied transform.
func condition(points []geometry.Point2D) (geometry.Homography, []geometry.Point2D) {
	c := geometry.Centroid(points)
	s := 1.0
	if d := geometry.MeanDistance(points, c); d > 0 {
		s = math.Sqrt2 / d
	}

	t := geometry.Homography{M: [3][3]float64{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}}
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = t.Apply(p)
	}
	return t, out
}

// rescale divides a homography through by its lower-right entry so
// equivalent transforms compare equal entry-wise.
func rescale(h geometry.Homography) geometry.Homography {
	w := h.M[2][2]
	if w == 0 {
		return h
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.M[i][j] /= w
		}
	}
	return h
}

func solveDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)

	// Two equations per correspondence:
	//   x' = (h00 x + h01 y + h02) / (h20 x + h21 y + 1)
	//   y' = (h10 x + h11 y + h12) / (h20 x + h21 y + 1)
	A := mat.NewDense(n*2, 8, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -x*xp)
		A.Set(i*2, 7, -y*xp)
		B.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -x*yp)
		A.Set(i*2+1, 7, -y*yp)
		B.SetVec(i*2+1, yp)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.Homography{}, err
	}

	return geometry.Homography{M: [3][3]float64{
		{params.AtVec(0), params.AtVec(1), params.AtVec(2)},
		{params.AtVec(3), params.AtVec(4), params.AtVec(5)},
		{params.AtVec(6), params.AtVec(7), 1},
	}}, nil
}
