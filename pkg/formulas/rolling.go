package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RollingVolatility returns the annualized volatility of daily returns over a
// trailing window of period returns, one value per return from the first full
// window onward. talib's StdDev uses the population (n) denominator, so values
// differ slightly from AnnualizedVolatility over the same returns.
// The output always has len(returns)-period+1 entries; a window talib cannot
// evaluate yields NaN at its position.
func RollingVolatility(prices []float64, period int) []float64 {
	returns := CalculateReturns(prices)
	if period < 2 || len(returns) < period {
		return []float64{}
	}

	raw := talib.StdDev(returns, period, 1.0)

	out := make([]float64, len(returns)-period+1)
	for i := range out {
		out[i] = raw[period-1+i] * math.Sqrt(TradingDaysPerYear)
	}
	return out
}
