// Package correlate computes dense disparity fields between two
// nearly-aligned image windows by bounded 2D search, either exhaustively
// or through a coarse-to-fine pyramid.
package correlate

import (
	"math"

	"jitreg/internal/raster"
)

// CostFunc selects the per-window matching cost.
type CostFunc int

const (
	// AbsoluteDifference sums |l - r| over the kernel window.
	AbsoluteDifference CostFunc = iota
	// SquaredDifference sums (l - r)^2 over the kernel window.
	SquaredDifference
	// CrossCorrelation uses normalized cross-correlation; the cost is
	// its negation so lower is always better.
	CrossCorrelation
)

// String returns the report-facing name of the cost function.
func (c CostFunc) String() string {
	switch c {
	case SquaredDifference:
		return "SQUARED_DIFFERENCE"
	case CrossCorrelation:
		return "CROSS_CORRELATION"
	default:
		return "ABSOLUTE_DIFFERENCE"
	}
}

// windowCost evaluates the matching cost between the kernel window
// centered at (lx, ly) in left and at (rx, ry) in right. Windows are
// edge-extended, so centers anywhere inside the images are legal.
func windowCost(left, right *raster.EdgeExtend, lx, ly, rx, ry int, k Kernel, cost CostFunc) float64 {
	hx, hy := k.X/2, k.Y/2

	switch cost {
	case CrossCorrelation:
		var sumL, sumR float64
		n := float64(k.X * k.Y)
		for dy := -hy; dy <= hy; dy++ {
			for dx := -hx; dx <= hx; dx++ {
				sumL += float64(left.At(lx+dx, ly+dy))
				sumR += float64(right.At(rx+dx, ry+dy))
			}
		}
		meanL, meanR := sumL/n, sumR/n

		var num, varL, varR float64
		for dy := -hy; dy <= hy; dy++ {
			for dx := -hx; dx <= hx; dx++ {
				l := float64(left.At(lx+dx, ly+dy)) - meanL
				r := float64(right.At(rx+dx, ry+dy)) - meanR
				num += l * r
				varL += l * l
				varR += r * r
			}
		}
		denom := math.Sqrt(varL * varR)
		if denom == 0 {
			// A flat window matches everything equally; treat as the
			// worst possible correlation.
			return 1
		}
		return -num / denom

	case SquaredDifference:
		var sum float64
		for dy := -hy; dy <= hy; dy++ {
			for dx := -hx; dx <= hx; dx++ {
				d := float64(left.At(lx+dx, ly+dy)) - float64(right.At(rx+dx, ry+dy))
				sum += d * d
			}
		}
		return sum

	default: // AbsoluteDifference
		var sum float64
		for dy := -hy; dy <= hy; dy++ {
			for dx := -hx; dx <= hx; dx++ {
				sum += math.Abs(float64(left.At(lx+dx, ly+dy)) - float64(right.At(rx+dx, ry+dy)))
			}
		}
		return sum
	}
}
