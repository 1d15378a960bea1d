package feature

import (
	"fmt"

	"gocv.io/x/gocv"

	"jitreg/internal/raster"
)

// ORBDetector detects interest points with OpenCV's ORB operator. The
// binary descriptors come back widened to float32 so they fit the common
// InterestPoint shape used by the matcher and the cache codec.
type ORBDetector struct{}

// Detect runs ORB detection and description on a raster.
func (ORBDetector) Detect(img raster.Image) ([]InterestPoint, error) {
	mat, err := rasterToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	orb := gocv.NewORB()
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	keypoints, desc := orb.DetectAndCompute(mat, mask)
	defer desc.Close()

	if len(keypoints) != desc.Rows() {
		return nil, fmt.Errorf("orb: %d keypoints but %d descriptor rows", len(keypoints), desc.Rows())
	}

	points := make([]InterestPoint, len(keypoints))
	for i, kp := range keypoints {
		d := make([]float32, desc.Cols())
		for j := range d {
			d[j] = float32(desc.GetUCharAt(i, j))
		}
		points[i] = InterestPoint{
			X:           kp.X,
			Y:           kp.Y,
			Scale:       kp.Size,
			Orientation: kp.Angle,
			Descriptor:  d,
		}
	}
	return points, nil
}

// rasterToMat converts a [0,1] grayscale raster to an 8-bit OpenCV matrix.
func rasterToMat(img raster.Image) (gocv.Mat, error) {
	cols, rows := img.Cols(), img.Rows()
	if cols <= 0 || rows <= 0 {
		return gocv.Mat{}, fmt.Errorf("orb: empty raster %dx%d", cols, rows)
	}
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := img.At(x, y)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			mat.SetUCharAt(y, x, uint8(v*255+0.5))
		}
	}
	return mat, nil
}
