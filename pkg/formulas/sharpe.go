package formulas

// SharpeRatio calculates (annualReturn - riskFreeRate) / annualVolatility.
// All inputs are annual fractions. Zero volatility has no Sharpe ratio and returns nil.
func SharpeRatio(annualReturn, riskFreeRate, annualVolatility float64) *float64 {
	if annualVolatility == 0 {
		return nil
	}
	sharpe := (annualReturn - riskFreeRate) / annualVolatility
	return &sharpe
}
