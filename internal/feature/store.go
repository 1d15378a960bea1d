package feature

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"jitreg/internal/cache"
	"jitreg/internal/raster"
)

// Cache key extensions for per-image point files and pair match files.
const (
	PointsExt  = ".ipts"
	MatchesExt = ".match"
)

// CacheKey derives the cache key stem for an image path: the base name
// with its extension removed.
func CacheKey(imagePath string) string {
	base := filepath.Base(imagePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// MatchKey derives the combined cache key for an image pair.
func MatchKey(pathA, pathB string) string {
	return CacheKey(pathA) + "__" + CacheKey(pathB) + MatchesExt
}

// Store wraps a detector and matcher with a three-tier persistent cache.
type Store struct {
	cache   cache.Store
	det     Detector
	matcher Matcher
	log     *slog.Logger
}

// NewStore creates an interest point store over the given blob store.
func NewStore(c cache.Store, det Detector, matcher Matcher, log *slog.Logger) *Store {
	return &Store{cache: c, det: det, matcher: matcher, log: log}
}

// LoadOrCompute returns matched correspondences for an image pair,
// reading cached results where they exist.
//
// Lookup order:
//  1. a combined match file for the pair (skips detection and matching),
//  2. per-image point files for both images (skips detection),
//  3. detection from scratch, persisting the per-image point files.
//
// Whenever matching runs, the resulting correspondence list is persisted
// under the combined key. A full cache hit performs no writes.
func (s *Store) LoadOrCompute(pathA, pathB string, imgA, imgB raster.Image) ([]InterestPoint, []InterestPoint, error) {
	matchKey := MatchKey(pathA, pathB)
	if s.cache.Exists(matchKey) {
		s.log.Info("found cached interest point match file", "key", matchKey)
		data, err := s.cache.Read(matchKey)
		if err != nil {
			return nil, nil, err
		}
		return DecodeMatches(data)
	}

	keyA := CacheKey(pathA) + PointsExt
	keyB := CacheKey(pathB) + PointsExt

	var pointsA, pointsB []InterestPoint
	if s.cache.Exists(keyA) && s.cache.Exists(keyB) {
		s.log.Info("found cached interest point files", "keys", []string{keyA, keyB})
		var err error
		if pointsA, err = s.readPoints(keyA); err != nil {
			return nil, nil, err
		}
		if pointsB, err = s.readPoints(keyB); err != nil {
			return nil, nil, err
		}
	} else {
		s.log.Info("locating interest points", "imageA", pathA, "imageB", pathB)
		var err error
		if pointsA, err = s.det.Detect(imgA); err != nil {
			return nil, nil, fmt.Errorf("detect %s: %w", pathA, err)
		}
		s.log.Info("located interest points", "image", pathA, "count", len(pointsA))
		if pointsB, err = s.det.Detect(imgB); err != nil {
			return nil, nil, fmt.Errorf("detect %s: %w", pathB, err)
		}
		s.log.Info("located interest points", "image", pathB, "count", len(pointsB))

		if err := s.cache.Write(keyA, EncodePoints(pointsA)); err != nil {
			return nil, nil, err
		}
		if err := s.cache.Write(keyB, EncodePoints(pointsB)); err != nil {
			return nil, nil, err
		}
	}

	s.log.Info("matching interest points")
	matchedA, matchedB, err := s.matcher.Match(pointsA, pointsB)
	if err != nil {
		return nil, nil, fmt.Errorf("match %s and %s: %w", pathA, pathB, err)
	}

	data, err := EncodeMatches(matchedA, matchedB)
	if err != nil {
		return nil, nil, err
	}
	if err := s.cache.Write(matchKey, data); err != nil {
		return nil, nil, err
	}
	s.log.Info("cached matches", "key", matchKey, "count", len(matchedA))

	return matchedA, matchedB, nil
}

func (s *Store) readPoints(key string) ([]InterestPoint, error) {
	data, err := s.cache.Read(key)
	if err != nil {
		return nil, err
	}
	return DecodePoints(data)
}
