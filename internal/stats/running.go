// Package stats provides streaming statistics accumulators.
package stats

import (
	"math"
)

// Running is a single-pass mean/variance accumulator using Welford's
// algorithm (Knuth TAOCP vol 2, 3rd edition, page 232). It holds the sample
// count, running mean, and running sum of squared deviations, so the mean
// and variance of an arbitrarily long sequence can be computed without
// buffering the values.
type Running struct {
	n    int
	mean float64
	m2   float64
}

// Push adds a value to the accumulator.
func (r *Running) Push(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

// Count returns the number of values pushed so far.
func (r *Running) Count() int {
	return r.n
}

// Mean returns the running mean, or 0 if no values have been pushed.
func (r *Running) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.mean
}

// Variance returns the sample variance, or 0 for fewer than two values.
func (r *Running) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// StdDev returns the sample standard deviation.
func (r *Running) StdDev() float64 {
	return math.Sqrt(r.Variance())
}

// Clear resets the accumulator to its initial state.
func (r *Running) Clear() {
	r.n = 0
	r.mean = 0
	r.m2 = 0
}
