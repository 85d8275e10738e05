// Package returns derives periodic simple returns from price series and
// combines per-ticker return series into a weighted portfolio series.
package returns

import (
	"fmt"
	"iter"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// DefaultMinObservations is the minimum number of price observations a
// ticker needs before its returns feed any risk calculation.
const DefaultMinObservations = 30

// Policy declares the minimum-history rule applied by Calculator.
type Policy struct {
	MinObservations int
}

// DefaultPolicy returns the 30-observation policy.
func DefaultPolicy() Policy {
	return Policy{MinObservations: DefaultMinObservations}
}

// Series is a materialized return series. Dates[i] is the date of the close
// that ends period i.
type Series struct {
	Ticker string      `json:"ticker"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of returns.
func (s Series) Len() int {
	return len(s.Values)
}

// Tail returns the last n returns (or the whole series when shorter).
func (s Series) Tail(n int) Series {
	if n < 0 || n >= len(s.Values) {
		return s
	}
	start := len(s.Values) - n
	return Series{Ticker: s.Ticker, Dates: s.Dates[start:], Values: s.Values[start:]}
}

// Returns lazily yields (date, r_t) with r_t = (p_t - p_{t-1}) / p_{t-1}.
// The sequence is one element shorter than the price series.
func Returns(prices domain.PriceSeries) iter.Seq2[time.Time, float64] {
	return func(yield func(time.Time, float64) bool) {
		for i := 1; i < len(prices.Points); i++ {
			prev := prices.Points[i-1].Close
			r := 0.0
			if prev != 0 {
				r = (prices.Points[i].Close - prev) / prev
			}
			if !yield(prices.Points[i].Date, r) {
				return
			}
		}
	}
}

// Collect materializes the return series of prices without applying any policy.
func Collect(prices domain.PriceSeries) Series {
	n := max(len(prices.Points)-1, 0)
	s := Series{
		Ticker: prices.Ticker,
		Dates:  make([]time.Time, 0, n),
		Values: make([]float64, 0, n),
	}
	for date, r := range Returns(prices) {
		s.Dates = append(s.Dates, date)
		s.Values = append(s.Values, r)
	}
	return s
}

// Calculator applies a Policy before computing returns.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a calculator. A non-positive minimum falls back to the default.
func NewCalculator(policy Policy) *Calculator {
	if policy.MinObservations <= 0 {
		policy.MinObservations = DefaultMinObservations
	}
	return &Calculator{policy: policy}
}

// Policy returns the calculator's policy.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Compute validates prices against the policy and returns their return series.
func (c *Calculator) Compute(prices domain.PriceSeries) (Series, error) {
	if prices.Len() < c.policy.MinObservations {
		return Series{}, &domain.InsufficientDataError{
			Ticker: prices.Ticker,
			Have:   prices.Len(),
			Need:   c.policy.MinObservations,
		}
	}
	if err := prices.Validate(); err != nil {
		return Series{}, err
	}
	return Collect(prices), nil
}

// CurrentWeights returns value_i / total_value per ticker, aggregating
// duplicate tickers. The result is empty when the total value is zero.
func CurrentWeights(holdings []domain.Holding) map[string]float64 {
	total := domain.TotalValue(holdings)
	weights := make(map[string]float64, len(holdings))
	if total <= 0 {
		return weights
	}
	for _, h := range holdings {
		weights[h.Ticker] += h.Value() / total
	}
	return weights
}

// alignedLength is the length shared by the tails of all series.
func alignedLength(series []Series) int {
	if len(series) == 0 {
		return 0
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		n = min(n, s.Len())
	}
	return n
}

// Portfolio combines per-ticker series into Σ w_i r_i,t with constant weights.
// Series are aligned on their most recent observations by index position;
// dates are taken from the first series. Weights are used as given, so a
// set of series whose weights do not sum to one yields a partial portfolio.
func Portfolio(series []Series, weights map[string]float64) (Series, error) {
	n := alignedLength(series)
	out := Series{Ticker: "PORTFOLIO", Dates: make([]time.Time, n), Values: make([]float64, n)}
	if n == 0 {
		return out, nil
	}

	copy(out.Dates, series[0].Tail(n).Dates)
	for _, s := range series {
		w, ok := weights[s.Ticker]
		if !ok {
			return Series{}, fmt.Errorf("no weight for %s", s.Ticker)
		}
		tail := s.Tail(n)
		for i, r := range tail.Values {
			out.Values[i] += w * r
		}
	}
	return out, nil
}

// PortfolioOverTime is Portfolio with a weight per ticker per period.
// schedule[ticker] must have one weight for every aligned period.
func PortfolioOverTime(series []Series, schedule map[string][]float64) (Series, error) {
	n := alignedLength(series)
	out := Series{Ticker: "PORTFOLIO", Dates: make([]time.Time, n), Values: make([]float64, n)}
	if n == 0 {
		return out, nil
	}

	copy(out.Dates, series[0].Tail(n).Dates)
	for _, s := range series {
		ws, ok := schedule[s.Ticker]
		if !ok {
			return Series{}, fmt.Errorf("no weight series for %s", s.Ticker)
		}
		if len(ws) < n {
			return Series{}, fmt.Errorf("weight series for %s has %d points, need %d", s.Ticker, len(ws), n)
		}
		ws = ws[len(ws)-n:]
		tail := s.Tail(n)
		for i, r := range tail.Values {
			out.Values[i] += ws[i] * r
		}
	}
	return out, nil
}
