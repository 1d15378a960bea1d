package disparity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitreg/pkg/geometry"
)

func sampleField() *Field {
	f := NewField(12, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			if (x+y)%3 == 0 {
				continue // leave a scattering of invalid cells
			}
			f.Set(x, y, float32(x)*0.25-1, float32(y)*0.5-2)
		}
	}
	return f
}

// TestField_ValidityGuard verifies invalid cells report no displacement.
func TestField_ValidityGuard(t *testing.T) {
	f := NewField(4, 4)
	_, _, ok := f.Get(1, 1)
	assert.False(t, ok)

	f.Set(1, 1, 3, -2)
	dx, dy, ok := f.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, float32(3), dx)
	assert.Equal(t, float32(-2), dy)

	f.Invalidate(1, 1)
	_, _, ok = f.Get(1, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, f.ValidCount())
}

// TestField_TransformRoundTrip applies a homography and its inverse and
// checks every originally-valid cell is recovered within tolerance.
func TestField_TransformRoundTrip(t *testing.T) {
	f := sampleField()

	h := geometry.Homography{M: [3][3]float64{
		{1.01, 0.003, 4.0},
		{-0.002, 0.998, -2.5},
		{1e-5, -2e-5, 1.0},
	}}
	inv, ok := h.Inverse()
	require.True(t, ok)

	back := f.TransformBy(h).TransformBy(inv)
	require.Equal(t, f.Cols(), back.Cols())
	require.Equal(t, f.Rows(), back.Rows())

	for y := 0; y < f.Rows(); y++ {
		for x := 0; x < f.Cols(); x++ {
			dx, dy, valid := f.Get(x, y)
			bdx, bdy, bvalid := back.Get(x, y)
			require.Equal(t, valid, bvalid, "validity changed at (%d,%d)", x, y)
			if valid {
				assert.InDelta(t, float64(dx), float64(bdx), 1e-6)
				assert.InDelta(t, float64(dy), float64(bdy), 1e-6)
			}
		}
	}
}

// TestField_TransformByTranslation checks the displacement arithmetic
// against a hand-computed pure translation.
func TestField_TransformByTranslation(t *testing.T) {
	f := NewField(4, 4)
	f.Set(1, 1, 2, 0)

	out := f.TransformBy(geometry.TranslationHomography(5, -1))
	dx, dy, ok := out.Get(1, 1)
	require.True(t, ok)
	// h(p+d) - p = (1+2+5, 1+0-1) - (1,1) = (7, -1)
	assert.InDelta(t, 7, dx, 1e-6)
	assert.InDelta(t, -1, dy, 1e-6)
}

// TestField_ClampToBounds verifies cells pointing outside the secondary
// image are invalidated and the rest survive.
func TestField_ClampToBounds(t *testing.T) {
	f := NewField(10, 10)
	f.Set(2, 2, 1, 1)    // lands at (3,3), in bounds
	f.Set(9, 9, 3, 0)    // lands at (12,9), outside a 10x10 image
	f.Set(0, 0, -1, 0)   // lands at (-1,0), outside
	f.ClampToBounds(10, 10)

	_, _, ok := f.Get(2, 2)
	assert.True(t, ok)
	_, _, ok = f.Get(9, 9)
	assert.False(t, ok)
	_, _, ok = f.Get(0, 0)
	assert.False(t, ok)
}

// TestCodec_RoundTrip verifies the binary format preserves values and
// validity exactly.
func TestCodec_RoundTrip(t *testing.T) {
	f := sampleField()
	path := filepath.Join(t.TempDir(), "d.disp")
	require.NoError(t, WriteFile(path, f))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, f.Cols(), got.Cols())
	require.Equal(t, f.Rows(), got.Rows())
	for y := 0; y < f.Rows(); y++ {
		for x := 0; x < f.Cols(); x++ {
			dx, dy, valid := f.Get(x, y)
			gdx, gdy, gvalid := got.Get(x, y)
			require.Equal(t, valid, gvalid)
			if valid {
				assert.Equal(t, dx, gdx)
				assert.Equal(t, dy, gdy)
			}
		}
	}
}

// TestCodec_RejectsBadInput covers truncated and mislabeled payloads.
func TestCodec_RejectsBadInput(t *testing.T) {
	_, err := Decode([]byte("nope"))
	assert.Error(t, err)

	data := Encode(sampleField())
	_, err = Decode(data[:len(data)-5])
	assert.Error(t, err)
}
