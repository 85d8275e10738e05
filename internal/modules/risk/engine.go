// Package risk computes volatility, beta, historical Value-at-Risk, Sharpe
// ratio and max drawdown for a portfolio snapshot.
//
// The Engine is stateless: every method works on the values it is given and
// keeps nothing between calls. I/O and caching live in Service.
package risk

import (
	"fmt"
	"math"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/pkg/formulas"
)

// MinBetaObservations is the fewest aligned return pairs beta can use.
const MinBetaObservations = 2

// Engine computes risk metrics from materialized return series.
type Engine struct {
	calc    *returns.Calculator
	workers int
}

// NewEngine creates an engine using policy for the per-ticker history minimum.
// workers bounds the per-ticker fan-out; values below one mean one worker per CPU.
func NewEngine(policy returns.Policy, workers int) *Engine {
	return &Engine{
		calc:    returns.NewCalculator(policy),
		workers: workers,
	}
}

// Policy returns the minimum-history policy in force.
func (e *Engine) Policy() returns.Policy {
	return e.calc.Policy()
}

// Volatility returns the annualized volatility of a ticker's returns as a
// percentage. It fails with *domain.InsufficientDataError below the policy minimum.
func (e *Engine) Volatility(prices domain.PriceSeries) (float64, error) {
	series, err := e.calc.Compute(prices)
	if err != nil {
		return 0, err
	}
	return formulas.AnnualizedVolatility(series.Values) * 100, nil
}

// PortfolioVolatility aggregates per-ticker volatilities (percent) into a
// portfolio volatility (percent).
//
// Without a correlation matrix it uses the uncorrelated approximation
// σp = √(Σ wi² σi²). With one, the full form adds Σ_{i≠j} wi wj σi σj ρij;
// pairs the matrix does not cover get ρ = 0.
// Tickers missing from vols are skipped; weights are used as given.
func (e *Engine) PortfolioVolatility(tickers []string, vols, weights map[string]float64, corr *CorrelationMatrix) float64 {
	included := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := vols[t]; ok {
			included = append(included, t)
		}
	}
	if len(included) == 0 {
		return 0
	}

	// u_i = w_i σ_i as fractions
	u := make([]float64, len(included))
	for i, t := range included {
		u[i] = weights[t] * vols[t] / 100
	}

	var variance float64
	if corr == nil {
		for _, x := range u {
			variance += x * x
		}
	} else {
		variance = corr.quadraticForm(included, u)
	}
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance) * 100
}

// Beta returns cov(portfolio, benchmark) / var(benchmark) over the dates both
// series share.
func (e *Engine) Beta(portfolio, benchmark returns.Series) (float64, error) {
	bench := make(map[int64]float64, benchmark.Len())
	for i, d := range benchmark.Dates {
		bench[domain.TruncateDay(d).Unix()] = benchmark.Values[i]
	}

	p := make([]float64, 0, portfolio.Len())
	b := make([]float64, 0, portfolio.Len())
	for i, d := range portfolio.Dates {
		if r, ok := bench[domain.TruncateDay(d).Unix()]; ok {
			p = append(p, portfolio.Values[i])
			b = append(b, r)
		}
	}

	if len(p) < MinBetaObservations {
		return 0, &domain.InsufficientDataError{Ticker: benchmark.Ticker, Have: len(p), Need: MinBetaObservations}
	}

	variance := formulas.Variance(b)
	if variance == 0 {
		return 0, fmt.Errorf("benchmark %s has zero variance over %d aligned observations", benchmark.Ticker, len(b))
	}
	return formulas.Covariance(p, b) / variance, nil
}

// VaR is a historical Value-at-Risk estimate at one confidence level.
type VaR struct {
	ConfidenceLevel float64 `json:"confidence_level" msgpack:"confidence_level"`
	Dollar          float64 `json:"var_dollar" msgpack:"var_dollar"`
	Percentage      float64 `json:"var_percentage" msgpack:"var_percentage"`
	// ExpectedShortfall is the mean loss in the tail beyond VaR, as a percentage.
	ExpectedShortfall float64 `json:"expected_shortfall_percentage" msgpack:"expected_shortfall_percentage"`
}

// ValueAtRisk takes the (1-c)×100th percentile q of the return distribution
// using linear interpolation between order statistics. The reported loss is
// max(0, -q): a percentile that is itself a gain means no loss at that level.
func (e *Engine) ValueAtRisk(portfolioReturns []float64, portfolioValue, confidence float64) (VaR, error) {
	if err := domain.ValidateConfidenceLevel(confidence); err != nil {
		return VaR{}, err
	}
	if len(portfolioReturns) == 0 {
		return VaR{}, &domain.InsufficientDataError{Need: 1}
	}

	q := formulas.Percentile(portfolioReturns, (1-confidence)*100)
	loss := math.Max(0, -q)
	shortfall := math.Max(0, -formulas.CalculateCVaR(portfolioReturns, confidence))

	return VaR{
		ConfidenceLevel:   confidence,
		Dollar:            portfolioValue * loss,
		Percentage:        loss * 100,
		ExpectedShortfall: shortfall * 100,
	}, nil
}

// SharpeRatio is (annualized mean return - riskFreeRate) / volatility, with
// volatility given as a percentage. It returns nil when volatility is zero.
func (e *Engine) SharpeRatio(portfolioReturns []float64, riskFreeRate, volatilityPct float64) *float64 {
	if len(portfolioReturns) == 0 {
		return nil
	}
	return formulas.SharpeRatio(formulas.AnnualizeMeanReturn(portfolioReturns), riskFreeRate, volatilityPct/100)
}

// MaxDrawdown is the largest peak-to-trough decline of the cumulative return
// curve, as a percentage.
func (e *Engine) MaxDrawdown(portfolioReturns []float64) float64 {
	return formulas.MaxDrawdown(portfolioReturns) * 100
}
