package formulas

import (
	"math"
	"sort"
)

// CalculateCVaR calculates Conditional Value at Risk (expected shortfall):
// the mean of the worst ceil(n*(1-confidence)) returns. At least one return
// is always in the tail. The result is a return, negative for losses.
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 1e-9 absorbs representation error, e.g. 20*(1-0.95) = 1.0000000000000009
	tailCount := int(math.Ceil(float64(len(sorted))*(1.0-confidence) - 1e-9))
	tailCount = max(1, min(tailCount, len(sorted)))

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}
