package feature

import (
	"fmt"
	"math"
)

// RatioMatcher matches descriptors by L2 distance with Lowe's ratio test:
// a candidate is accepted only when its best match is clearly better than
// its second best. With CrossCheck set the match must also be mutually
// best in the reverse direction.
type RatioMatcher struct {
	// Ratio is the maximum allowed best/second-best distance ratio.
	Ratio float64
	// CrossCheck enables symmetric best-match verification.
	CrossCheck bool
}

// NewRatioMatcher creates a matcher with the given acceptance ratio.
func NewRatioMatcher(ratio float64, crossCheck bool) *RatioMatcher {
	return &RatioMatcher{Ratio: ratio, CrossCheck: crossCheck}
}

// Match pairs points of a with points of b.
func (m *RatioMatcher) Match(a, b []InterestPoint) ([]InterestPoint, []InterestPoint, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil, fmt.Errorf("matcher: empty point list (%d and %d points)", len(a), len(b))
	}

	forward := make([]int, len(a))
	for i := range a {
		forward[i] = m.bestFor(a[i], b)
	}

	var reverse []int
	if m.CrossCheck {
		reverse = make([]int, len(b))
		for j := range b {
			reverse[j] = m.bestFor(b[j], a)
		}
	}

	var outA, outB []InterestPoint
	for i, j := range forward {
		if j < 0 {
			continue
		}
		if m.CrossCheck && reverse[j] != i {
			continue
		}
		outA = append(outA, a[i])
		outB = append(outB, b[j])
	}
	return outA, outB, nil
}

// bestFor returns the index of the best candidate passing the ratio test,
// or -1 when the match is ambiguous.
func (m *RatioMatcher) bestFor(p InterestPoint, candidates []InterestPoint) int {
	best, second := math.Inf(1), math.Inf(1)
	bestIdx := -1
	for j := range candidates {
		d := descriptorDistance(p.Descriptor, candidates[j].Descriptor)
		if d < best {
			second = best
			best = d
			bestIdx = j
		} else if d < second {
			second = d
		}
	}
	if bestIdx < 0 {
		return -1
	}
	if second > 0 && best/second > m.Ratio {
		return -1
	}
	return bestIdx
}

// descriptorDistance is the L2 distance between two descriptor vectors.
// Vectors of different lengths are treated as infinitely far apart.
func descriptorDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
