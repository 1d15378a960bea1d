package alignment

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"jitreg/pkg/geometry"
)

// AlignSuffix is appended to the run's output prefix to form the
// alignment transform file name.
const AlignSuffix = "-align.mat"

// AlignMatrixPath derives the alignment transform path for a run prefix.
func AlignMatrixPath(outPrefix string) string {
	return outPrefix + AlignSuffix
}

// WriteAlignMatrix persists the alignment homography. The file is the
// single source of truth for how the second image was warped onto the
// first.
func WriteAlignMatrix(path string, h geometry.Homography) error {
	dense := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dense.Set(i, j, h.M[i][j])
		}
	}

	data, err := dense.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal alignment matrix: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write alignment matrix %s: %w", path, err)
	}
	return nil
}

// ReadAlignMatrix loads a previously persisted alignment homography.
// Callers that need the matrix to reverse a disparity field must treat
// any error here as fatal; continuing without the original alignment
// would silently corrupt downstream geometry.
func ReadAlignMatrix(path string) (geometry.Homography, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("read alignment matrix %s: %w", path, err)
	}

	var dense mat.Dense
	if err := dense.UnmarshalBinary(data); err != nil {
		return geometry.Homography{}, fmt.Errorf("parse alignment matrix %s: %w", path, err)
	}
	r, c := dense.Dims()
	if r != 3 || c != 3 {
		return geometry.Homography{}, fmt.Errorf("alignment matrix %s: got %dx%d, want 3x3", path, r, c)
	}

	var h geometry.Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.M[i][j] = dense.At(i, j)
		}
	}
	return h, nil
}
