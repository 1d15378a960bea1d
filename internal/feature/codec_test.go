package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePoints() []InterestPoint {
	return []InterestPoint{
		{X: 1.5, Y: -2.25, Scale: 3, Orientation: 0.5, Descriptor: []float32{1, 2, 3, 4}},
		{X: 100, Y: 200, Scale: 1, Orientation: -1.25, Descriptor: []float32{9, 8}},
		{X: 0, Y: 0}, // no descriptor
	}
}

// TestPointsCodec_RoundTrip verifies point sequences survive serialization.
func TestPointsCodec_RoundTrip(t *testing.T) {
	points := samplePoints()
	got, err := DecodePoints(EncodePoints(points))
	require.NoError(t, err)
	assert.Equal(t, points, got)

	empty, err := DecodePoints(EncodePoints(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestMatchesCodec_RoundTrip verifies parallel sequences survive together.
func TestMatchesCodec_RoundTrip(t *testing.T) {
	a := samplePoints()
	b := []InterestPoint{
		{X: 4, Y: 5, Descriptor: []float32{7}},
		{X: 6, Y: 7},
		{X: 8, Y: 9},
	}

	data, err := EncodeMatches(a, b)
	require.NoError(t, err)

	gotA, gotB, err := DecodeMatches(data)
	require.NoError(t, err)
	assert.Equal(t, a, gotA)
	assert.Equal(t, b, gotB)
}

// TestMatchesCodec_RejectsUnequalLists verifies the parallel-list invariant.
func TestMatchesCodec_RejectsUnequalLists(t *testing.T) {
	_, err := EncodeMatches(samplePoints(), samplePoints()[:1])
	assert.Error(t, err)
}

// TestCodec_RejectsGarbage covers bad magic and truncated payloads.
func TestCodec_RejectsGarbage(t *testing.T) {
	_, err := DecodePoints([]byte("bogus data"))
	assert.Error(t, err)

	data := EncodePoints(samplePoints())
	_, err = DecodePoints(data[:len(data)-3])
	assert.Error(t, err)

	_, _, err = DecodeMatches([]byte("JIP1"))
	assert.Error(t, err)
}

// TestCodec_CorruptCountDoesNotOverallocate feeds a header claiming far
// more records than the payload holds. Decoding must fail on the missing
// records without sizing a slice to the bogus count.
func TestCodec_CorruptCountDoesNotOverallocate(t *testing.T) {
	data := []byte{'J', 'I', 'P', '1', 0xff, 0xff, 0xff, 0x7f}
	data = append(data, make([]byte, 36)...) // one empty record

	_, err := DecodePoints(data)
	assert.Error(t, err)
}
