package alignment

import (
	"errors"
	"fmt"
	"log/slog"

	"jitreg/internal/disparity"
	"jitreg/internal/feature"
	"jitreg/internal/raster"
	"jitreg/pkg/geometry"
)

// GeoReference is the narrow map-projection capability consumed here.
// Construction of projections belongs to external collaborators.
type GeoReference interface {
	// IsProjected reports whether the image carries a non-identity map
	// projection.
	IsProjected() bool
	// PixelToWorld maps an image pixel position to world coordinates.
	PixelToWorld(p geometry.Point2D) geometry.Point2D
	// WorldToPixel maps world coordinates to an image pixel position.
	WorldToPixel(p geometry.Point2D) geometry.Point2D
}

// Aligner applies or reverses the global alignment between two images
// around the correlation stage. Per image pair it commits to one of two
// branches: a map-projection-derived transform when both images carry a
// real projection, or the persisted homography otherwise.
//
// Note: in the pipeline this was ported from, the georeference objects
// were never populated before the branch test ran, so the map-projected
// branch could never be taken there. Both branches are kept meaningful
// and tested here; callers without projection data pass nil references.
type Aligner struct {
	store     *feature.Store
	outPrefix string
	trials    int
	log       *slog.Logger

	// KeypointAlignment disables the feature-based fit when false; the
	// identity matrix is persisted instead.
	KeypointAlignment bool
}

// NewAligner creates an aligner. trials bounds RANSAC sampling per fit;
// non-positive means DefaultTrials.
func NewAligner(store *feature.Store, outPrefix string, trials int, log *slog.Logger) *Aligner {
	return &Aligner{
		store:             store,
		outPrefix:         outPrefix,
		trials:            trials,
		log:               log,
		KeypointAlignment: true,
	}
}

// bothProjected is the single branch test used by Prep and Correct.
func bothProjected(geoA, geoB GeoReference) bool {
	return geoA != nil && geoB != nil && geoA.IsProjected() && geoB.IsProjected()
}

// geoMap builds the point mapping from the frame of src into the frame
// of dst via world coordinates.
func geoMap(src, dst GeoReference) func(geometry.Point2D) geometry.Point2D {
	return func(p geometry.Point2D) geometry.Point2D {
		return dst.WorldToPixel(src.PixelToWorld(p))
	}
}

// Prep produces the pre-aligned image pair fed to stereo correlation:
// the first image unchanged (beyond normalization done by the caller)
// and the second warped into its frame.
//
// Map-projected branch: the first image's projection becomes the common
// frame and the second image is warped into it; no homography file is
// written. Unprojected branch: a homography is fitted from cached
// interest point matches (identity on fit failure, with a warning) and
// persisted for the later disparity correction.
func (a *Aligner) Prep(pathA, pathB string, imgA, imgB raster.Image, geoA, geoB GeoReference) (*raster.Gray32, *raster.Gray32, error) {
	if bothProjected(geoA, geoB) {
		a.log.Info("map projected images detected, placing both into the same map projection")
		// Reverse lookup: for each output pixel in A's frame, find the
		// source position in B.
		warped := raster.WarpFunc(imgB, geoMap(geoA, geoB), imgA.Cols(), imgA.Rows())
		return raster.Materialize(imgA), warped, nil
	}

	a.log.Info("unprojected images detected, aligning with feature-based matching")
	h := geometry.IdentityHomography()
	if a.KeypointAlignment {
		h = a.determineAlignment(pathA, pathB, imgA, imgB)
	}

	if err := WriteAlignMatrix(AlignMatrixPath(a.outPrefix), h); err != nil {
		return nil, nil, err
	}

	warped, err := raster.WarpHomography(imgB, h, imgA.Cols(), imgA.Rows())
	if err != nil {
		return nil, nil, err
	}
	return raster.Materialize(imgA), warped, nil
}

// determineAlignment runs the cached interest point pipeline and fits a
// homography mapping image B coordinates onto image A. Any fit failure
// degrades to the identity transform.
func (a *Aligner) determineAlignment(pathA, pathB string, imgA, imgB raster.Image) geometry.Homography {
	matchedA, matchedB, err := a.store.LoadOrCompute(pathA, pathB, imgA, imgB)
	if err != nil {
		a.log.Warn("automatic alignment failed, proceeding without alignment", "error", err)
		return geometry.IdentityHomography()
	}
	a.log.Info("putative matches", "count", len(matchedA))

	ptsA, ptsB := feature.RemoveDuplicates(matchedA, matchedB)
	a.log.Debug("removed duplicate matches", "count", len(matchedA)-len(ptsA))

	result, err := FitHomography(feature.Locations(ptsB), feature.Locations(ptsA), a.trials)
	if err != nil {
		a.log.Warn("automatic alignment failed, proceeding without alignment", "error", err)
		return geometry.IdentityHomography()
	}
	a.log.Debug("alignment matrix fitted", "inliers", result.Inliers)
	return result.H
}

// Correct reverses the pre-alignment on a disparity field produced by
// correlation, re-expressing disparities in the second image's original
// pixel coordinates.
//
// In the unprojected branch the persisted alignment matrix is required;
// a missing or unreadable file is returned as an error the caller must
// treat as fatal. Vectors landing outside the second image's original
// bounds (cols x rows) are invalidated.
func (a *Aligner) Correct(field *disparity.Field, cols, rows int, geoA, geoB GeoReference) (*disparity.Field, error) {
	if bothProjected(geoA, geoB) {
		a.log.Info("map projected images detected, correcting through the common projection")
		// Match points live in the common (first image) frame; map them
		// back into the second image's native frame.
		return field.TransformFunc(geoMap(geoA, geoB)), nil
	}

	a.log.Info("removing the effects of interest point alignment from the disparity map")
	h, err := ReadAlignMatrix(AlignMatrixPath(a.outPrefix))
	if err != nil {
		return nil, err
	}

	// The persisted matrix maps B into A's frame; undoing the alignment
	// on match points needs the opposite direction.
	inv, ok := h.Inverse()
	if !ok {
		return nil, fmt.Errorf("alignment matrix %s is singular", AlignMatrixPath(a.outPrefix))
	}

	out := field.TransformBy(inv)
	out.ClampToBounds(cols, rows)
	return out, nil
}

// IsFitFailure reports whether an error is one of the recoverable
// homography fit failures.
func IsFitFailure(err error) bool {
	return errors.Is(err, ErrTooFewPoints) || errors.Is(err, ErrNoConsensus)
}
