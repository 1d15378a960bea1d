package feature

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitreg/internal/cache"
	"jitreg/internal/raster"
)

type countingDetector struct {
	calls  int
	points []InterestPoint
}

func (d *countingDetector) Detect(raster.Image) ([]InterestPoint, error) {
	d.calls++
	return d.points, nil
}

type countingMatcher struct {
	calls int
}

func (m *countingMatcher) Match(a, b []InterestPoint) ([]InterestPoint, []InterestPoint, error) {
	m.calls++
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[:n], b[:n], nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testStore() (*Store, *cache.MemStore, *countingDetector, *countingMatcher) {
	mem := cache.NewMemStore()
	det := &countingDetector{points: samplePoints()}
	matcher := &countingMatcher{}
	return NewStore(mem, det, matcher, silentLogger()), mem, det, matcher
}

// TestStore_ColdPathDetectsAndPersists verifies the from-scratch path
// writes both per-image caches and the match cache.
func TestStore_ColdPathDetectsAndPersists(t *testing.T) {
	store, mem, det, matcher := testStore()
	img := raster.NewGray32(4, 4)

	a, b, err := store.LoadOrCompute("/data/left.png", "/data/right.png", img, img)
	require.NoError(t, err)
	assert.Len(t, a, len(b))

	assert.Equal(t, 2, det.calls)
	assert.Equal(t, 1, matcher.calls)
	assert.True(t, mem.Exists("left.ipts"))
	assert.True(t, mem.Exists("right.ipts"))
	assert.True(t, mem.Exists("left__right.match"))
}

// TestStore_MatchCacheHitSkipsEverything verifies a full cache hit reads
// the match file and never invokes detection or matching.
func TestStore_MatchCacheHitSkipsEverything(t *testing.T) {
	store, mem, det, matcher := testStore()
	img := raster.NewGray32(4, 4)

	wantA := samplePoints()[:2]
	wantB := samplePoints()[1:]
	data, err := EncodeMatches(wantA, wantB)
	require.NoError(t, err)
	require.NoError(t, mem.Write("left__right.match", data))

	a, b, err := store.LoadOrCompute("/data/left.png", "/data/right.png", img, img)
	require.NoError(t, err)
	assert.Equal(t, wantA, a)
	assert.Equal(t, wantB, b)

	assert.Equal(t, 0, det.calls)
	assert.Equal(t, 0, matcher.calls)
	// No writes happen on a full hit.
	assert.Equal(t, 1, mem.WriteCount["left__right.match"])
}

// TestStore_PointCacheHitSkipsDetection verifies tier two: cached point
// files feed matching directly.
func TestStore_PointCacheHitSkipsDetection(t *testing.T) {
	store, mem, det, matcher := testStore()
	img := raster.NewGray32(4, 4)

	require.NoError(t, mem.Write("left.ipts", EncodePoints(samplePoints())))
	require.NoError(t, mem.Write("right.ipts", EncodePoints(samplePoints())))

	_, _, err := store.LoadOrCompute("/data/left.png", "/data/right.png", img, img)
	require.NoError(t, err)

	assert.Equal(t, 0, det.calls)
	assert.Equal(t, 1, matcher.calls)
	assert.True(t, mem.Exists("left__right.match"))
}

// TestCacheKey_Derivation verifies filename-derived keys.
func TestCacheKey_Derivation(t *testing.T) {
	assert.Equal(t, "image1", CacheKey("/some/dir/image1.cub"))
	assert.Equal(t, "image1", CacheKey("image1.png"))
	assert.Equal(t, "noext", CacheKey("noext"))
	assert.Equal(t, "a__b.match", MatchKey("/x/a.tif", "/y/b.tif"))
}
