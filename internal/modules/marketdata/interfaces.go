// Package marketdata provides the collaborators that feed the analytics
// engine: price history, benchmark history, the risk-free rate, ticker
// classification and options chains. It owns all I/O; the engine only sees
// the materialized results.
package marketdata

import (
	"context"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// PriceHistoryProvider returns a ticker's most recent daily closes for a window,
// in chronological order.
type PriceHistoryProvider interface {
	PriceHistory(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error)
}

// BenchmarkProvider returns the broad-market index history used for beta.
type BenchmarkProvider interface {
	BenchmarkHistory(ctx context.Context, window domain.Window) (domain.PriceSeries, error)
}

// RiskFreeRateProvider returns the annual risk-free rate as a fraction.
type RiskFreeRateProvider interface {
	RiskFreeRate(ctx context.Context) (float64, error)
}

// MetadataProvider returns a ticker's sector, industry and asset class.
// Unknown tickers get domain.DefaultMetadata.
type MetadataProvider interface {
	TickerMetadata(ctx context.Context, ticker string) (domain.TickerMetadata, error)
}

// OptionsChainProvider returns the current options chain for a ticker.
type OptionsChainProvider interface {
	OptionsChain(ctx context.Context, ticker string) ([]domain.OptionQuote, error)
}

// FixedRiskFreeRate is a RiskFreeRateProvider backed by configuration.
type FixedRiskFreeRate float64

// RiskFreeRate implements RiskFreeRateProvider.
func (r FixedRiskFreeRate) RiskFreeRate(context.Context) (float64, error) {
	return float64(r), nil
}

// Benchmark serves one ticker's history as the market benchmark.
type Benchmark struct {
	Ticker  string
	History PriceHistoryProvider
}

// BenchmarkHistory implements BenchmarkProvider.
func (b Benchmark) BenchmarkHistory(ctx context.Context, window domain.Window) (domain.PriceSeries, error) {
	return b.History.PriceHistory(ctx, b.Ticker, window)
}
