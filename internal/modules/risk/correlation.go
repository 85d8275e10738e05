package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
)

// CorrelationMatrix holds pairwise return correlations between tickers.
// Row and column i belong to Tickers[i].
type CorrelationMatrix struct {
	Tickers []string
	Matrix  *mat.SymDense
	index   map[string]int
}

// NewCorrelationMatrix wraps a symmetric matrix whose order matches tickers.
func NewCorrelationMatrix(tickers []string, m *mat.SymDense) (*CorrelationMatrix, error) {
	if m == nil {
		return nil, fmt.Errorf("correlation matrix is nil")
	}
	if n := m.SymmetricDim(); n != len(tickers) {
		return nil, fmt.Errorf("correlation matrix is %dx%d but %d tickers were given", n, n, len(tickers))
	}
	index := make(map[string]int, len(tickers))
	for i, t := range tickers {
		if _, dup := index[t]; dup {
			return nil, fmt.Errorf("duplicate ticker %s in correlation matrix", t)
		}
		index[t] = i
	}
	return &CorrelationMatrix{Tickers: tickers, Matrix: m, index: index}, nil
}

// CorrelationFromReturns estimates a correlation matrix from return series
// aligned on their most recent observations. It needs at least two series
// with at least two shared periods.
func CorrelationFromReturns(series []returns.Series) (*CorrelationMatrix, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 return series, got %d", len(series))
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		n = min(n, s.Len())
	}
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 aligned returns, got %d", n)
	}

	tickers := make([]string, len(series))
	x := mat.NewDense(n, len(series), nil)
	for j, s := range series {
		tickers[j] = s.Ticker
		tail := s.Tail(n)
		for i, r := range tail.Values {
			x.Set(i, j, r)
		}
	}

	corr := mat.NewSymDense(len(series), nil)
	stat.CorrelationMatrix(corr, x, nil)
	// A constant series has zero variance and correlates as NaN; treat it
	// as uncorrelated with everything else.
	for i := range tickers {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < len(tickers); j++ {
			if math.IsNaN(corr.At(i, j)) {
				corr.SetSym(i, j, 0)
			}
		}
	}
	return NewCorrelationMatrix(tickers, corr)
}

// CorrelationFromPrices estimates correlations over the window from every
// history with at least minObs closes. It returns nil without error when
// fewer than two histories qualify.
func CorrelationFromPrices(prices map[string]domain.PriceSeries, window domain.Window, minObs int) (*CorrelationMatrix, error) {
	series := make([]returns.Series, 0, len(prices))
	for _, p := range prices {
		p = p.Tail(window.Observations())
		if p.Len() >= minObs {
			series = append(series, returns.Collect(p))
		}
	}
	if len(series) < 2 {
		return nil, nil
	}
	return CorrelationFromReturns(series)
}

// Rho returns the correlation between two tickers. A ticker is always
// perfectly correlated with itself; unknown pairs report ok=false.
func (c *CorrelationMatrix) Rho(a, b string) (float64, bool) {
	if a == b {
		return 1, true
	}
	i, okA := c.index[a]
	j, okB := c.index[b]
	if !okA || !okB {
		return 0, false
	}
	rho := c.Matrix.At(i, j)
	if math.IsNaN(rho) {
		return 0, true
	}
	return rho, true
}

// quadraticForm returns uᵀ R u where R is the correlation submatrix for tickers.
func (c *CorrelationMatrix) quadraticForm(tickers []string, u []float64) float64 {
	r := mat.NewSymDense(len(tickers), nil)
	for i, a := range tickers {
		for j := i; j < len(tickers); j++ {
			rho, _ := c.Rho(a, tickers[j])
			r.SetSym(i, j, rho)
		}
	}
	v := mat.NewVecDense(len(u), u)
	return mat.Inner(v, r, v)
}
