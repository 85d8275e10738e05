package formulas

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0..100) of data using linear
// interpolation between order statistics:
//
//	h = (n-1) * p/100
//	P = x[floor(h)] + (h - floor(h)) * (x[floor(h)+1] - x[floor(h)])
//
// where x is data sorted ascending. This is the "linear" definition used by
// numpy and R type 7. The input slice is not modified. Empty input returns NaN.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}

	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
