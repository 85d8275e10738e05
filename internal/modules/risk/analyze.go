package risk

import (
	"errors"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/pkg/formulas"
)

// Volatility methods reported in Result.
const (
	MethodUncorrelated = "uncorrelated"
	MethodCorrelated   = "correlated"
)

// Snapshot is everything one risk analysis reads. Nothing in it is mutated.
type Snapshot struct {
	AsOf     time.Time
	Holdings []domain.Holding
	// Prices holds each ticker's history; a missing ticker is reported as excluded.
	Prices map[string]domain.PriceSeries
	// Benchmark is optional; without it beta is not computed.
	Benchmark    *domain.PriceSeries
	RiskFreeRate float64
	// Correlation switches portfolio volatility to the full covariance form.
	Correlation *CorrelationMatrix
	// WeightSchedule optionally replaces the constant current weights with a
	// weight per ticker per period, aligned on the most recent returns.
	WeightSchedule map[string][]float64
}

// Request carries the caller-selected parameters.
type Request struct {
	Window           domain.Window
	ConfidenceLevels []float64
}

// DefaultConfidenceLevels is used when a request names none.
var DefaultConfidenceLevels = []float64{0.95}

// Normalize validates the request, filling defaults. It runs before any
// computation so a bad parameter rejects the whole call.
func (r Request) Normalize() (Request, error) {
	if r.Window == "" {
		r.Window = domain.DefaultWindow
	}
	if err := r.Window.Validate(); err != nil {
		return Request{}, err
	}
	if len(r.ConfidenceLevels) == 0 {
		r.ConfidenceLevels = slices.Clone(DefaultConfidenceLevels)
	}
	for _, c := range r.ConfidenceLevels {
		if err := domain.ValidateConfidenceLevel(c); err != nil {
			return Request{}, err
		}
	}
	levels := slices.Clone(r.ConfidenceLevels)
	slices.Sort(levels)
	r.ConfidenceLevels = slices.Compact(levels)
	return r, nil
}

// Exclusion records a ticker left out of the aggregate and why.
type Exclusion struct {
	Ticker string `json:"ticker" msgpack:"ticker"`
	Reason string `json:"reason" msgpack:"reason"`
	Have   int    `json:"observations" msgpack:"observations"`
	Need   int    `json:"required" msgpack:"required"`
}

// VolatilityResult is the portfolio and per-ticker annualized volatility, in percent.
type VolatilityResult struct {
	Portfolio  float64            `json:"portfolio" msgpack:"portfolio"`
	Method     string             `json:"method" msgpack:"method"`
	Securities map[string]float64 `json:"securities" msgpack:"securities"`
}

// Result is a full risk analysis tagged with its window and as-of date.
// Pointer metrics are nil when they could not be computed; Unavailable says why.
type Result struct {
	Window           domain.Window     `json:"window" msgpack:"window"`
	AsOf             time.Time         `json:"as_of" msgpack:"as_of"`
	PortfolioValue   float64           `json:"portfolio_value" msgpack:"portfolio_value"`
	Observations     int               `json:"observations" msgpack:"observations"`
	Volatility       VolatilityResult  `json:"volatility" msgpack:"volatility"`
	Beta             *float64          `json:"beta" msgpack:"beta"`
	VaR              []VaR             `json:"value_at_risk" msgpack:"value_at_risk"`
	SharpeRatio      *float64          `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	MaxDrawdown      *float64          `json:"max_drawdown" msgpack:"max_drawdown"`
	AnnualizedReturn *float64          `json:"annualized_return" msgpack:"annualized_return"`
	Excluded         []Exclusion       `json:"excluded" msgpack:"excluded"`
	Unavailable      map[string]string `json:"unavailable,omitempty" msgpack:"unavailable"`
	Empty            bool              `json:"empty" msgpack:"empty"`
}

type tickerOutcome struct {
	series returns.Series
	vol    float64
	err    error
}

// Analyze runs every metric over the snapshot. Only request-parameter
// violations are returned as errors; per-ticker and per-metric problems are
// reported inside the result.
func (e *Engine) Analyze(snap Snapshot, req Request) (Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Window:         req.Window,
		AsOf:           snap.AsOf,
		PortfolioValue: domain.TotalValue(snap.Holdings),
		Volatility:     VolatilityResult{Method: MethodUncorrelated, Securities: map[string]float64{}},
		VaR:            []VaR{},
		Excluded:       []Exclusion{},
		Unavailable:    map[string]string{},
	}
	if result.PortfolioValue <= 0 {
		result.Empty = true
		return result, nil
	}

	tickers := domain.Tickers(snap.Holdings)
	outcomes := e.perTicker(tickers, snap.Prices, req.Window)

	included := make([]string, 0, len(tickers))
	series := make([]returns.Series, 0, len(tickers))
	for i, t := range tickers {
		o := outcomes[i]
		if o.err != nil {
			result.Excluded = append(result.Excluded, exclusionFor(t, o.err))
			continue
		}
		included = append(included, t)
		series = append(series, o.series)
		result.Volatility.Securities[t] = o.vol
	}

	// Excluded capital stays in the denominator; weights are not renormalized.
	weights := returns.CurrentWeights(snap.Holdings)
	if snap.Correlation != nil {
		result.Volatility.Method = MethodCorrelated
	}
	result.Volatility.Portfolio = e.PortfolioVolatility(included, result.Volatility.Securities, weights, snap.Correlation)

	if len(series) == 0 {
		for _, metric := range []string{"value_at_risk", "sharpe_ratio", "max_drawdown", "beta"} {
			result.Unavailable[metric] = "no ticker has enough price history"
		}
		return result, nil
	}

	var portfolio returns.Series
	if snap.WeightSchedule != nil {
		portfolio, err = returns.PortfolioOverTime(series, snap.WeightSchedule)
	} else {
		portfolio, err = returns.Portfolio(series, weights)
	}
	if err != nil {
		return Result{}, err
	}
	result.Observations = portfolio.Len()

	for _, c := range req.ConfidenceLevels {
		v, err := e.ValueAtRisk(portfolio.Values, result.PortfolioValue, c)
		if err != nil {
			result.Unavailable["value_at_risk"] = err.Error()
			break
		}
		result.VaR = append(result.VaR, v)
	}

	annual := formulas.AnnualizeMeanReturn(portfolio.Values)
	result.AnnualizedReturn = &annual

	result.SharpeRatio = e.SharpeRatio(portfolio.Values, snap.RiskFreeRate, result.Volatility.Portfolio)
	if result.SharpeRatio == nil {
		result.Unavailable["sharpe_ratio"] = "portfolio volatility is zero"
	}

	mdd := e.MaxDrawdown(portfolio.Values)
	result.MaxDrawdown = &mdd

	if snap.Benchmark == nil {
		result.Unavailable["beta"] = "no benchmark history"
	} else {
		bench := returns.Collect(snap.Benchmark.Tail(req.Window.Observations()))
		beta, err := e.Beta(portfolio, bench)
		if err != nil {
			result.Unavailable["beta"] = err.Error()
		} else {
			result.Beta = &beta
		}
	}

	return result, nil
}

// perTicker computes each ticker's returns and volatility in parallel.
// Outcomes are index-aligned with tickers so results stay deterministic.
func (e *Engine) perTicker(tickers []string, prices map[string]domain.PriceSeries, window domain.Window) []tickerOutcome {
	outcomes := make([]tickerOutcome, len(tickers))
	workers := e.workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range tickers {
		g.Go(func() error {
			p, ok := prices[t]
			if !ok {
				p = domain.PriceSeries{}
			}
			p.Ticker = t
			p = p.Tail(window.Observations())
			s, err := e.calc.Compute(p)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i] = tickerOutcome{series: s, vol: formulas.AnnualizedVolatility(s.Values) * 100}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func exclusionFor(ticker string, err error) Exclusion {
	ex := Exclusion{Ticker: ticker, Reason: err.Error()}
	var insufficient *domain.InsufficientDataError
	if errors.As(err, &insufficient) {
		ex.Reason = "insufficient price history"
		ex.Have = insufficient.Have
		ex.Need = insufficient.Need
	}
	return ex
}
