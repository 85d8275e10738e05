package formulas

// DrawdownMetrics represents drawdown analysis results
type DrawdownMetrics struct {
	MaxDrawdown       float64 `json:"max_drawdown"`     // Maximum drawdown as a fraction (0.25 = 25% below peak)
	CurrentDrawdown   float64 `json:"current_drawdown"` // Drawdown of the last point from its peak
	PeriodsInDrawdown int     `json:"periods_in_drawdown"`
	PeakValue         float64 `json:"peak_value"`
	CurrentValue      float64 `json:"current_value"`
}

// CumulativeCurve compounds returns into a growth curve that starts at 1.0.
// The curve has one more point than the return series.
func CumulativeCurve(returns []float64) []float64 {
	curve := make([]float64, len(returns)+1)
	curve[0] = 1.0
	for i, r := range returns {
		curve[i+1] = curve[i] * (1 + r)
	}
	return curve
}

// CalculateDrawdownMetrics walks a value series once, tracking the running peak.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
func CalculateDrawdownMetrics(values []float64) DrawdownMetrics {
	if len(values) == 0 {
		return DrawdownMetrics{}
	}

	maxDrawdown := 0.0
	peak := values[0]
	peakIndex := 0

	for i, v := range values {
		if v > peak {
			peak = v
			peakIndex = i
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	current := values[len(values)-1]
	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = (peak - current) / peak
	}

	return DrawdownMetrics{
		MaxDrawdown:       maxDrawdown,
		CurrentDrawdown:   currentDrawdown,
		PeriodsInDrawdown: len(values) - 1 - peakIndex,
		PeakValue:         peak,
		CurrentValue:      current,
	}
}

// MaxDrawdown returns the largest peak-to-trough decline of the cumulative
// return curve, as a fraction.
func MaxDrawdown(returns []float64) float64 {
	return CalculateDrawdownMetrics(CumulativeCurve(returns)).MaxDrawdown
}
